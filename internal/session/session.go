// Package session ties the live channel to the local upload cache.
//
// A [Session] owns one [stream.Manager]. Every frame is decoded, merged into the [store.StatusStore]
// and then passed to the [notify.Policy], after which the [Observer] is told what happened.
package session

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardx/internal/clock"
	"github.com/desertthunder/cardx/internal/events"
	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/notify"
	"github.com/desertthunder/cardx/internal/shared"
	"github.com/desertthunder/cardx/internal/store"
	"github.com/desertthunder/cardx/internal/stream"
)

// DefaultConnectDelay is the wait between [Session.Start] and the first dial.
const DefaultConnectDelay = 100 * time.Millisecond

// Observer is told about every decoded event and connection change.
type Observer interface {
	// StatusChanged is called after ev was merged. applied reports whether a listed upload matched.
	StatusChanged(ev models.StatusEvent, applied bool)
	ConnectionChanged(state stream.State)
}

// ObserverFuncs adapts optional functions to an [Observer].
type ObserverFuncs struct {
	Status     func(ev models.StatusEvent, applied bool)
	Connection func(state stream.State)
}

func (o ObserverFuncs) StatusChanged(ev models.StatusEvent, applied bool) {
	if o.Status != nil {
		o.Status(ev, applied)
	}
}

func (o ObserverFuncs) ConnectionChanged(state stream.State) {
	if o.Connection != nil {
		o.Connection(state)
	}
}

// Options configures a [Session].
type Options struct {
	Dialer   stream.Dialer
	Store    *store.StatusStore
	Notifier notify.Notifier
	Observer Observer
	Clock    clock.Clock

	ReconnectDelay time.Duration
	ConnectDelay   time.Duration
	AlertOnFinal   bool

	Logger *log.Logger
}

// Session is the owner of the live status subsystem.
type Session struct {
	manager  *stream.Manager
	decoder  *events.Decoder
	store    *store.StatusStore
	policy   *notify.Policy
	observer Observer
	clock    clock.Clock
	delay    time.Duration
	logger   *log.Logger

	mu       sync.Mutex
	closed   bool
	starter  *clock.Timer
	startGen int
}

// New creates an idle [Session].
func New(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.ConnectDelay <= 0 {
		opts.ConnectDelay = DefaultConnectDelay
	}
	if opts.Store == nil {
		opts.Store = store.New()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NotifierFunc(func(notify.Alert) notify.Handle { return &notify.BasicHandle{} })
	}
	if opts.Observer == nil {
		opts.Observer = ObserverFuncs{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	s := &Session{
		decoder:  events.NewDecoder(shared.WithLogger(opts.Logger, "component", "events")),
		store:    opts.Store,
		policy:   notify.NewPolicy(opts.Notifier, notify.WithAlertOnFinal(opts.AlertOnFinal)),
		observer: opts.Observer,
		clock:    opts.Clock,
		delay:    opts.ConnectDelay,
		logger:   shared.WithLogger(opts.Logger, "component", "session"),
	}
	s.manager = stream.NewManager(stream.Options{
		Dialer:         opts.Dialer,
		Handler:        &handler{s: s},
		Clock:          opts.Clock,
		ReconnectDelay: opts.ReconnectDelay,
		Logger:         opts.Logger,
	})
	return s
}

// Start connects with token after the connect delay. Calling Start again restarts the delay.
func (s *Session) Start(token string) error {
	if token == "" {
		s.logger.Warn("not starting live updates without a token")
		return shared.ErrMissingCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return stream.ErrClosed
	}
	if s.starter != nil {
		s.starter.Stop()
	}
	s.startGen++
	gen := s.startGen
	s.starter = s.clock.AfterFunc(s.delay, func() { s.begin(token, gen) })
	return nil
}

func (s *Session) begin(token string, gen int) {
	s.mu.Lock()
	if s.closed || gen != s.startGen {
		s.mu.Unlock()
		return
	}
	s.starter = nil
	s.mu.Unlock()

	if err := s.manager.Connect(token); err != nil {
		s.logger.Warn("connect failed", "error", err)
	}
}

// Close cancels a pending start and tears the channel down. No observer or notifier call happens after
// Close returns. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.starter != nil {
		s.starter.Stop()
		s.starter = nil
	}
	s.mu.Unlock()

	s.manager.Close()
	s.logger.Debug("session closed")
}

// State returns the connection state of the channel.
func (s *Session) State() stream.State { return s.manager.State() }

// Store returns the cache the session writes to.
func (s *Session) Store() *store.StatusStore { return s.store }

// Policy returns the alert policy.
func (s *Session) Policy() *notify.Policy { return s.policy }

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type handler struct{ s *Session }

func (h *handler) OnConnect() {
	if h.s.isClosed() {
		return
	}
	h.s.observer.ConnectionChanged(stream.StateConnected)
}

func (h *handler) OnMessage(frame string) {
	s := h.s
	if s.isClosed() {
		return
	}
	ev, ok := s.decoder.Decode(frame)
	if !ok {
		return
	}

	applied := s.store.Apply(ev)
	if !applied {
		s.logger.Debug("event for unlisted upload", "upload_id", ev.UploadID)
	}
	s.policy.Observe(ev)
	s.observer.StatusChanged(ev, applied)
}

func (h *handler) OnDisconnect() {
	if h.s.isClosed() {
		return
	}
	h.s.observer.ConnectionChanged(stream.StateDisconnected)
}

func (h *handler) OnError(err error) {
	if h.s.isClosed() {
		return
	}
	h.s.observer.ConnectionChanged(stream.StateReconnectScheduled)
}
