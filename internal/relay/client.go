package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hpungsan/ideashelf/internal/capture"
	"github.com/hpungsan/ideashelf/internal/logger"
)

// DefaultTimeout bounds how long a relay waits for the host.
const DefaultTimeout = 5 * time.Second

// Client relays capture records to one fixed host. No exchange is ever
// retried; each failure is reported once and is final.
type Client struct {
	dialer  Dialer
	host    string
	timeout time.Duration
	clock   Clock
	log     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithClock replaces the wall clock used for the response timer.
func WithClock(c Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(cl *Client) { cl.log = l }
}

// NewClient returns a client for host. A non-positive timeout uses DefaultTimeout.
func NewClient(d Dialer, host string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		dialer:  d,
		host:    host,
		timeout: timeout,
		clock:   SystemClock,
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the response bound of the client.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Send relays rec and blocks until its outcome is known.
func (c *Client) Send(rec *capture.Record) Outcome {
	result := make(chan Outcome, 1)
	c.Relay(rec, func(o Outcome) { result <- o })
	return <-result
}

// Relay sends rec over a fresh channel and calls deliver exactly once with
// the first of: the host's reply, the channel closing, or the timer firing.
// deliver may run on another goroutine after Relay returns.
func (c *Client) Relay(rec *capture.Record, deliver func(Outcome)) {
	x := &exchange{
		deliver: deliver,
		started: time.Now(),
		log:     c.log.With(logger.String("capture_id", rec.ID)),
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		x.settle(TransportError(fmt.Sprintf("encode record: %v", err)))
		return
	}

	ch, err := c.dialer.Dial(c.host, Events{
		OnMessage:    x.onMessage,
		OnDisconnect: x.onDisconnect,
	})
	if err != nil {
		x.settle(TransportError(err.Error()))
		return
	}
	x.attach(ch)
	x.arm(c.clock, c.timeout)

	if err := ch.Post(payload); err != nil {
		if x.settle(TransportError(err.Error())) {
			x.stopTimer()
		}
		x.closeChannel()
	}
}

// exchange is the state of one relay. settled is the one-shot latch every
// event source must win before delivering.
type exchange struct {
	settled atomic.Bool
	deliver func(Outcome)
	started time.Time
	log     logger.Logger

	mu          sync.Mutex
	ch          Channel
	timer       Timer
	closeWanted bool
}

// settle delivers o if no other outcome has been delivered. It reports
// whether o won.
func (x *exchange) settle(o Outcome) bool {
	if !x.settled.CompareAndSwap(false, true) {
		x.log.Debug("late relay event ignored", logger.String("kind", o.Kind.String()))
		return false
	}
	x.log.Info("relay settled",
		logger.String("kind", o.Kind.String()),
		logger.Duration("elapsed", time.Since(x.started)),
	)
	x.deliver(o)
	return true
}

func (x *exchange) onMessage(msg []byte) {
	if x.settle(parseResponse(msg)) {
		x.stopTimer()
	}
	x.closeChannel()
}

func (x *exchange) onDisconnect(err error) {
	reason := "host disconnected"
	if err != nil {
		reason = err.Error()
	}
	if x.settle(TransportError(reason)) {
		x.stopTimer()
	}
	x.closeChannel()
}

func (x *exchange) onTimeout(d time.Duration) {
	if x.settle(TimedOut(d)) {
		x.closeChannel()
	}
}

// arm starts the response timer unless an outcome is already latched.
func (x *exchange) arm(clock Clock, d time.Duration) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.settled.Load() {
		return
	}
	x.timer = clock.AfterFunc(d, func() { x.onTimeout(d) })
}

func (x *exchange) stopTimer() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.timer != nil {
		x.timer.Stop()
	}
}

// attach records the open channel, closing it at once if an event already asked for that.
// x.log is shared with event goroutines that may already be running, so it is never reassigned.
func (x *exchange) attach(ch Channel) {
	x.mu.Lock()
	x.ch = ch
	wanted := x.closeWanted
	x.mu.Unlock()

	x.log.Debug("relay channel attached", logger.String("channel_id", ch.ID()))
	if wanted {
		x.closeChannel()
	}
}

// closeChannel closes the channel best-effort; close errors never change the outcome.
func (x *exchange) closeChannel() {
	x.mu.Lock()
	ch := x.ch
	if ch == nil {
		x.closeWanted = true
	}
	x.mu.Unlock()

	if ch == nil {
		return
	}
	if err := ch.Close(); err != nil {
		x.log.Debug("channel close failed", logger.Error(err))
	}
}
