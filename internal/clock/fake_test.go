package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClock(t *testing.T) {
	t.Run("AfterFunc fires on Advance", func(t *testing.T) {
		c := Fake(epoch)
		fired := 0
		c.AfterFunc(10*time.Second, func() { fired++ })

		c.Advance(9 * time.Second)
		if fired != 0 {
			t.Fatalf("expected timer not to fire before deadline, fired %d", fired)
		}
		if c.PendingCount() != 1 {
			t.Errorf("expected 1 pending timer, got %d", c.PendingCount())
		}

		c.Advance(time.Second)
		if fired != 1 {
			t.Errorf("expected timer to fire once, fired %d", fired)
		}
		if c.PendingCount() != 0 {
			t.Errorf("expected no pending timers, got %d", c.PendingCount())
		}
	})

	t.Run("Stop cancels", func(t *testing.T) {
		c := Fake(epoch)
		fired := false
		timer := c.AfterFunc(time.Second, func() { fired = true })

		if !timer.Stop() {
			t.Error("expected Stop to report an active timer")
		}
		if timer.Stop() {
			t.Error("expected second Stop to report false")
		}

		c.Advance(time.Minute)
		if fired {
			t.Error("stopped timer should not fire")
		}
	})

	t.Run("callbacks may reschedule", func(t *testing.T) {
		c := Fake(epoch)
		var times []time.Time
		var tick func()
		tick = func() {
			times = append(times, c.Now())
			if len(times) < 3 {
				c.AfterFunc(time.Second, tick)
			}
		}
		c.AfterFunc(time.Second, tick)

		c.Advance(time.Second)
		c.Advance(time.Second)
		c.Advance(time.Second)

		if len(times) != 3 {
			t.Fatalf("expected 3 ticks, got %d", len(times))
		}
	})

	t.Run("fires in deadline order", func(t *testing.T) {
		c := Fake(epoch)
		var order []int
		c.AfterFunc(3*time.Second, func() { order = append(order, 3) })
		c.AfterFunc(1*time.Second, func() { order = append(order, 1) })
		c.AfterFunc(2*time.Second, func() { order = append(order, 2) })

		c.Advance(5 * time.Second)

		if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("non-positive delay runs immediately", func(t *testing.T) {
		c := Fake(epoch)
		fired := false
		timer := c.AfterFunc(0, func() { fired = true })
		if !fired {
			t.Error("expected immediate call")
		}
		if timer.Stop() {
			t.Error("expected Stop to report false for a fired timer")
		}
	})
}
