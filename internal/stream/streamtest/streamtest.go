// Package streamtest provides an in-memory [stream.Dialer] for tests.
package streamtest

import (
	"errors"
	"sync"

	"github.com/desertthunder/cardx/internal/stream"
)

// ErrDropped is the default error delivered by [Channel.Fail].
var ErrDropped = errors.New("connection dropped")

// Dialer records every dial and hands back test-controlled channels.
type Dialer struct {
	mu    sync.Mutex
	dials []*Channel
}

// Dial implements [stream.Dialer]. It never calls the listener.
func (d *Dialer) Dial(p stream.Params, l stream.Listener) stream.Channel {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch := &Channel{Params: p, listener: l}
	d.dials = append(d.dials, ch)
	return ch
}

// Count returns the number of dials so far.
func (d *Dialer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

// Last returns the most recent channel, or nil.
func (d *Dialer) Last() *Channel {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.dials) == 0 {
		return nil
	}
	return d.dials[len(d.dials)-1]
}

// Channels returns every channel dialed, oldest first.
func (d *Dialer) Channels() []*Channel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Channel(nil), d.dials...)
}

// OpenCount returns the number of channels that have not been closed.
func (d *Dialer) OpenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, ch := range d.dials {
		if !ch.Closed() {
			n++
		}
	}
	return n
}

// Channel is a fake push channel. Its trigger methods keep working after Close
// so tests can simulate callbacks racing with teardown.
type Channel struct {
	Params   stream.Params
	listener stream.Listener

	mu     sync.Mutex
	closes int
}

// Close implements [stream.Channel].
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
}

// Closed reports whether Close was called at least once.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes > 0
}

// CloseCount returns how many times Close was called.
func (c *Channel) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// Open delivers the open notification.
func (c *Channel) Open() { c.listener.OnOpen() }

// Send delivers one frame.
func (c *Channel) Send(frame string) { c.listener.OnMessage(frame) }

// Fail delivers a transport error, [ErrDropped] if err is nil.
func (c *Channel) Fail(err error) {
	if err == nil {
		err = ErrDropped
	}
	c.listener.OnError(err)
}
