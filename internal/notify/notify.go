// Package notify decides which status events raise a user-visible alert and keeps at most one alert on screen.
package notify

import (
	"fmt"
	"sync"

	"github.com/desertthunder/cardx/internal/models"
)

// Level is the severity of an [Alert].
type Level int

const (
	LevelSuccess Level = iota
	LevelFailure
)

func (l Level) String() string {
	if l == LevelFailure {
		return "failure"
	}
	return "success"
}

// Alert is one message shown to the user.
type Alert struct {
	Level    Level
	UploadID int
	Message  string
}

// Handle references an alert that has been shown.
type Handle interface {
	// Active reports whether the alert is still visible.
	Active() bool
	// Dismiss hides the alert. Dismissing twice is a no-op.
	Dismiss()
}

// Notifier displays alerts.
type Notifier interface {
	Notify(a Alert) Handle
}

// NotifierFunc adapts a function to a [Notifier].
type NotifierFunc func(a Alert) Handle

func (f NotifierFunc) Notify(a Alert) Handle { return f(a) }

// BasicHandle is a [Handle] whose visibility is a flag. OnDismiss, if set, runs once on the first Dismiss.
type BasicHandle struct {
	OnDismiss func()

	mu        sync.Mutex
	dismissed bool
}

func (h *BasicHandle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.dismissed
}

func (h *BasicHandle) Dismiss() {
	h.mu.Lock()
	if h.dismissed {
		h.mu.Unlock()
		return
	}
	h.dismissed = true
	fn := h.OnDismiss
	h.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Option configures a [Policy].
type Option func(*Policy)

// WithAlertOnFinal also alerts on final events that carry a terminal status.
func WithAlertOnFinal(enabled bool) Option {
	return func(p *Policy) { p.alertOnFinal = enabled }
}

// Policy turns status events into alerts, replacing the previous alert each time.
type Policy struct {
	notifier     Notifier
	alertOnFinal bool

	mu   sync.Mutex
	last Handle
}

// NewPolicy creates a [Policy] that shows alerts through n.
func NewPolicy(n Notifier, opts ...Option) *Policy {
	p := &Policy{notifier: n}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Observe shows an alert for ev if it warrants one and reports whether it did.
// A still visible previous alert is dismissed first.
func (p *Policy) Observe(ev models.StatusEvent) bool {
	alert, ok := p.AlertFor(ev)
	if !ok {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last != nil && p.last.Active() {
		p.last.Dismiss()
	}
	p.last = p.notifier.Notify(alert)
	return true
}

// AlertFor returns the alert ev would raise, without showing it.
//
// Kind initial never alerts. A status_update with status done is a success, any event of kind error
// is a failure. Final events alert only with [WithAlertOnFinal].
func (p *Policy) AlertFor(ev models.StatusEvent) (Alert, bool) {
	switch {
	case ev.Kind == models.KindInitial:
		return Alert{}, false
	case ev.Kind == models.KindError:
		return failure(ev), true
	case ev.Kind == models.KindStatusUpdate && ev.Status == models.StatusDone:
		return success(ev), true
	case ev.Kind == models.KindFinal && p.alertOnFinal && ev.Status.IsTerminal():
		if ev.Status == models.StatusError {
			return failure(ev), true
		}
		return success(ev), true
	default:
		return Alert{}, false
	}
}

// Current returns the handle of the last alert shown, or nil.
func (p *Policy) Current() Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Dismiss hides the current alert, if any.
func (p *Policy) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != nil {
		p.last.Dismiss()
	}
}

func success(ev models.StatusEvent) Alert {
	return Alert{Level: LevelSuccess, UploadID: ev.UploadID, Message: fmt.Sprintf("Upload #%d completed", ev.UploadID)}
}

func failure(ev models.StatusEvent) Alert {
	msg := fmt.Sprintf("Upload #%d failed", ev.UploadID)
	if ev.Error != "" {
		msg += ": " + ev.Error
	}
	return Alert{Level: LevelFailure, UploadID: ev.UploadID, Message: msg}
}
