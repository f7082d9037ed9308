package stream

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardx/internal/clock"
	"github.com/desertthunder/cardx/internal/shared"
)

// DefaultReconnectDelay is the fixed wait between a transport failure and the next dial.
const DefaultReconnectDelay = 10 * time.Second

// ErrClosed is returned by [Manager.Connect] after [Manager.Close].
var ErrClosed = errors.New("stream manager closed")

// Options configures a [Manager].
type Options struct {
	Dialer  Dialer
	Handler Handler
	// Clock defaults to [clock.Real].
	Clock clock.Clock
	// ReconnectDelay defaults to [DefaultReconnectDelay]. There is no backoff and no jitter.
	ReconnectDelay time.Duration
	Logger         *log.Logger
}

// Manager owns at most one push channel at a time.
type Manager struct {
	dialer  Dialer
	handler Handler
	clock   clock.Clock
	delay   time.Duration
	logger  *log.Logger

	// dispatchMu serializes handler calls. Lock order: dispatchMu, then mu.
	dispatchMu sync.Mutex

	mu       sync.Mutex
	closed   bool
	state    State
	token    string
	connID   int
	channel  Channel
	timer    *clock.Timer
	timerGen int
}

// NewManager creates a disconnected [Manager].
func NewManager(opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Handler == nil {
		opts.Handler = HandlerFuncs{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Manager{
		dialer:  opts.Dialer,
		handler: opts.Handler,
		clock:   opts.Clock,
		delay:   opts.ReconnectDelay,
		logger:  shared.WithLogger(opts.Logger, "component", "stream"),
		state:   StateDisconnected,
	}
}

// Connect opens a new channel authenticated with token, replacing any open channel and cancelling
// a pending reconnect. The connection id advances on every call.
func (m *Manager) Connect(token string) error {
	if token == "" {
		m.logger.Warn("refusing to connect without a token")
		return shared.ErrMissingCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.connectLocked(token)
	return nil
}

func (m *Manager) connectLocked(token string) {
	m.releaseLocked()
	m.stopTimerLocked()

	m.token = token
	m.connID++
	m.state = StateConnecting

	id := m.connID
	m.logger.Debug("dialing", "connection_id", id)
	m.channel = m.dialer.Dial(Params{Token: token, ConnectionID: id}, &connListener{m: m, id: id})
}

// Disconnect closes the channel and cancels any pending reconnect. OnDisconnect is called only if
// something was torn down, so repeated calls are no-ops.
func (m *Manager) Disconnect() {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.mu.Lock()
	torn := m.teardownLocked()
	m.mu.Unlock()

	if torn {
		m.handler.OnDisconnect()
	}
}

// Close ends the session. Liveness is revoked before the channel is torn down, and no handler method
// is called after Close returns. Close is terminal and idempotent.
func (m *Manager) Close() {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	torn := m.teardownLocked()
	m.mu.Unlock()

	m.logger.Debug("closed")
	if torn {
		m.handler.OnDisconnect()
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ConnectionID returns the id of the most recent dial, or 0 if none happened.
func (m *Manager) ConnectionID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connID
}

// Connected reports whether the current channel is open.
func (m *Manager) Connected() bool {
	return m.State() == StateConnected
}

// Closed reports whether [Manager.Close] was called.
func (m *Manager) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) teardownLocked() bool {
	hadChannel := m.releaseLocked()
	hadTimer := m.stopTimerLocked()
	m.state = StateDisconnected
	return hadChannel || hadTimer
}

func (m *Manager) releaseLocked() bool {
	if m.channel == nil {
		return false
	}
	m.logger.Debug("closing channel", "connection_id", m.connID)
	m.channel.Close()
	m.channel = nil
	return true
}

func (m *Manager) stopTimerLocked() bool {
	if m.timer == nil {
		return false
	}
	m.timer.Stop()
	m.timer = nil
	m.timerGen++
	return true
}

func (m *Manager) scheduleLocked() {
	m.timerGen++
	gen := m.timerGen
	m.logger.Info("reconnect scheduled", "delay", m.delay, "connection_id", m.connID)
	m.timer = m.clock.AfterFunc(m.delay, func() { m.reconnect(gen) })
}

func (m *Manager) reconnect(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.timer == nil || m.timerGen != gen {
		return
	}
	m.timer = nil
	m.logger.Info("reconnecting", "previous_connection_id", m.connID)
	m.connectLocked(m.token)
}

// liveLocked reports whether callbacks for connection id may still reach the handler.
func (m *Manager) liveLocked(id int) bool {
	return !m.closed && m.channel != nil && id == m.connID
}

func (m *Manager) handleOpen(id int) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.mu.Lock()
	if !m.liveLocked(id) {
		m.mu.Unlock()
		return
	}
	m.state = StateConnected
	m.mu.Unlock()

	m.logger.Info("connected", "connection_id", id)
	m.handler.OnConnect()
}

func (m *Manager) handleMessage(id int, frame string) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.mu.Lock()
	live := m.liveLocked(id)
	m.mu.Unlock()
	if !live {
		return
	}

	m.handler.OnMessage(frame)
}

func (m *Manager) handleError(id int, err error) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.mu.Lock()
	if !m.liveLocked(id) {
		m.mu.Unlock()
		return
	}
	m.releaseLocked()
	m.state = StateReconnectScheduled
	if m.timer == nil && m.token != "" {
		m.scheduleLocked()
	}
	m.mu.Unlock()

	m.logger.Warn("channel failed", "connection_id", id, "error", err)
	m.handler.OnError(err)
}

// connListener binds transport callbacks to the connection id they were dialed for.
type connListener struct {
	m  *Manager
	id int
}

func (l *connListener) OnOpen()                { l.m.handleOpen(l.id) }
func (l *connListener) OnMessage(frame string) { l.m.handleMessage(l.id, frame) }
func (l *connListener) OnError(err error)      { l.m.handleError(l.id, err) }
