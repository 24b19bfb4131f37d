package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CZERTAINLY/dfswatch/internal/model"
)

// DefaultInterval is the idle time between two probes.
const DefaultInterval = 360 * time.Second

// Replies relayed to the operator.
const (
	MsgStarted        = "Monitor started."
	MsgAlreadyRunning = "Monitor is already running."
	MsgStopping       = "Monitor stopping."
	MsgNotRunning     = "Monitor is not running."
)

// Run is the handle of a spawned worker loop.
type Run struct {
	ID        uuid.UUID
	Recipient string
	Started   time.Time
	done      chan struct{}
}

// Done is closed once the loop has exited and the state is Stopped.
func (r Run) Done() <-chan struct{} {
	return r.done
}

type Controller struct {
	prober   model.Prober
	notifier model.Notifier
	interval time.Duration

	mx    sync.Mutex
	state State
	run   *Run
	sig   *Signal
	wg    sync.WaitGroup
}

type Option func(*Controller)

// WithInterval changes the idle time between probes. Non-positive values are
// ignored.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

func NewController(prober model.Prober, notifier model.Notifier, opts ...Option) *Controller {
	c := &Controller{
		prober:   prober,
		notifier: notifier,
		interval: DefaultInterval,
		state:    Stopped,
		sig:      NewSignal(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start spawns the worker loop bound to recipient when the monitor is
// stopped, otherwise returns model.ErrAlreadyRunning. ctx bounds the lifetime
// of the loop, so it must outlive the caller's request. Start does not wait
// for the first probe.
func (c *Controller) Start(ctx context.Context, recipient string) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.state != Stopped {
		return model.ErrAlreadyRunning
	}

	// a wake-up left behind by the previous loop belongs to it
	if c.sig.drain() {
		slog.DebugContext(ctx, "dropped stale stop signal")
	}

	run := &Run{
		ID:        uuid.New(),
		Recipient: recipient,
		Started:   time.Now().UTC(),
		done:      make(chan struct{}),
	}
	c.state = Running
	c.run = run
	c.wg.Go(func() {
		c.loop(ctx, run)
	})
	return nil
}

// Stop asks a running loop to exit and wakes up its idle wait. It returns
// model.ErrNotRunning when the monitor is stopped or already stopping. Stop
// does not wait for the loop, use Run().Done() for that.
func (c *Controller) Stop() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.state != Running {
		return model.ErrNotRunning
	}
	c.state = Stopping
	c.sig.Notify()
	return nil
}

func (c *Controller) State() State {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.state
}

// Run returns the handle of the active loop, if any.
func (c *Controller) Run() (Run, bool) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.run == nil {
		return Run{}, false
	}
	return *c.run, true
}

func (c *Controller) Interval() time.Duration {
	return c.interval
}

// Wait blocks until every loop spawned so far has exited. It must not be
// called concurrently with Start.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// finish is the only place which writes Stopped.
func (c *Controller) finish(run *Run) {
	c.mx.Lock()
	c.state = Stopped
	c.run = nil
	c.mx.Unlock()
	close(run.done)
}

func StartReply(err error) string {
	switch {
	case err == nil:
		return MsgStarted
	case errors.Is(err, model.ErrAlreadyRunning):
		return MsgAlreadyRunning
	default:
		return "Monitor failed to start: " + err.Error()
	}
}

func StopReply(err error) string {
	switch {
	case err == nil:
		return MsgStopping
	case errors.Is(err, model.ErrNotRunning):
		return MsgNotRunning
	default:
		return "Monitor failed to stop: " + err.Error()
	}
}

func ProbeFailedReply(err error) string {
	return "Monitor stopped: probe failed: " + err.Error()
}
