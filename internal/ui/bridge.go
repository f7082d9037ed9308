package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/notify"
	"github.com/desertthunder/cardx/internal/session"
	"github.com/desertthunder/cardx/internal/stream"
)

var (
	_ session.Observer = (*Bridge)(nil)
	_ notify.Notifier  = (*Bridge)(nil)
)

// Bridge carries session callbacks into the bubbletea update loop.
//
// It implements [session.Observer] and [notify.Notifier]. Sends never block: when the buffer is full
// the message is dropped and the next status message repaints the rows anyway.
type Bridge struct {
	mu     sync.Mutex
	ch     chan tea.Msg
	closed bool
}

// NewBridge creates a [Bridge] buffering up to size messages.
func NewBridge(size int) *Bridge {
	return &Bridge{ch: make(chan tea.Msg, max(size, 1))}
}

func (b *Bridge) StatusChanged(ev models.StatusEvent, applied bool) {
	b.send(statusChangedMsg(ev, applied))
}

func (b *Bridge) ConnectionChanged(state stream.State) {
	b.send(connectionChangedMsg(state))
}

// Notify shows a as a toast. A toast that could not be queued gets an already dismissed handle.
func (b *Bridge) Notify(a notify.Alert) notify.Handle {
	h := &notify.BasicHandle{}
	if !b.send(toastMsg(a, h)) {
		h.Dismiss()
	}
	return h
}

// send queues msg and reports whether it was accepted.
func (b *Bridge) send(msg tea.Msg) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	select {
	case b.ch <- msg:
		return true
	default:
		return false
	}
}

// Wait returns a command that delivers the next bridged message.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-b.ch
		if !ok {
			return bridgeClosedMsg()
		}
		return msg
	}
}

// Close stops delivery. Pending messages are still drained by Wait.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}
