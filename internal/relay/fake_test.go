package relay

import (
	stderrors "errors"
	"sync"
	"time"
)

type fakeTimer struct {
	mu      sync.Mutex
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fire runs the callback unless the timer was stopped, as time.AfterFunc would.
func (t *fakeTimer) fire() {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	f := t.f
	t.mu.Unlock()
	f()
}

// fireAnyway runs the callback even after Stop, modelling a timer that
// already started firing when Stop was called.
func (t *fakeTimer) fireAnyway() {
	t.f()
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

type fakeChannel struct {
	id      string
	ev      Events
	postErr error

	mu     sync.Mutex
	posted [][]byte
	closes int
}

func (c *fakeChannel) ID() string { return c.id }

func (c *fakeChannel) Post(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posted = append(c.posted, msg)
	return c.postErr
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return stderrors.New("already closed")
}

func (c *fakeChannel) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func (c *fakeChannel) reply(msg string) { c.ev.OnMessage([]byte(msg)) }

func (c *fakeChannel) drop(err error) { c.ev.OnDisconnect(err) }

type fakeDialer struct {
	ch      *fakeChannel
	dialErr error
	hosts   []string

	// onDial runs inside Dial after the events are captured.
	onDial func(ch *fakeChannel)
}

func (d *fakeDialer) Dial(host string, ev Events) (Channel, error) {
	d.hosts = append(d.hosts, host)
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	d.ch.ev = ev
	if d.onDial != nil {
		d.onDial(d.ch)
	}
	return d.ch, nil
}

// collector counts deliveries.
type collector struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (c *collector) deliver(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

func (c *collector) all() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Outcome(nil), c.outcomes...)
}
