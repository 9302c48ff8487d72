package autosave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cramkle/app/internal/content"
	"cramkle/app/internal/notify"
)

// Persister sends a snapshot to the backing store and returns the persisted
// content. It is called from its own goroutine.
type Persister interface {
	Persist(ctx context.Context, target Target, raw content.Raw) (content.Raw, error)
}

// PersistFunc adapts a function to Persister.
type PersistFunc func(ctx context.Context, target Target, raw content.Raw) (content.Raw, error)

func (f PersistFunc) Persist(ctx context.Context, target Target, raw content.Raw) (content.Raw, error) {
	return f(ctx, target, raw)
}

type Option func(*Controller)

func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithDelay overrides the debounce delay of the target slot.
func WithDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithSavedDisplay sets how long the saved state is shown before idle.
func WithSavedDisplay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.savedDisplay = d
		}
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithObserver registers a callback for every outcome transition. It runs
// with the controller lock held and must not call back into the controller.
func WithObserver(fn func(Outcome)) Option {
	return func(c *Controller) { c.observer = fn }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithContext sets the parent context of persistence requests.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.ctx = ctx }
}

// WithRequestTimeout bounds each persistence request. Zero means no limit.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// Controller debounces content changes for one target. At most one request
// is in flight; a delay that elapses meanwhile dispatches once the request
// resolves.
type Controller struct {
	target       Target
	persister    Persister
	clock        Clock
	delay        time.Duration
	savedDisplay time.Duration
	timeout      time.Duration
	notifier     notify.Notifier
	observer     func(Outcome)
	logger       zerolog.Logger
	ctx          context.Context

	mu        sync.Mutex
	pending   *content.Raw
	timer     Timer
	timerGen  uint64
	revert    Timer
	revertGen uint64
	inFlight  bool
	queued    bool
	failed    *content.Raw
	outcome   Outcome
	closed    bool
	outbox    []notify.Notification

	requests sync.WaitGroup
}

func New(target Target, persister Persister, opts ...Option) *Controller {
	c := &Controller{
		target:       target,
		persister:    persister,
		clock:        RealClock{},
		delay:        target.DefaultDelay(),
		savedDisplay: SavedDisplay,
		notifier:     notify.Discard,
		logger:       zerolog.Nop(),
		ctx:          context.Background(),
		outcome:      Outcome{State: StateIdle, Target: target},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("target", target.String()).Logger()
	return c
}

func (c *Controller) Target() Target {
	return c.target
}

// Outcome returns the current save outcome.
func (c *Controller) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome.clone()
}

// ContentChanged records raw as the latest snapshot and restarts the delay.
func (c *Controller) ContentChanged(raw content.Raw) {
	snap := raw.Clone()

	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return
	}

	c.pending = &snap
	c.queued = false
	c.stopTimer()
	c.stopRevert()

	c.timerGen++
	gen := c.timerGen
	c.timer = c.clock.AfterFunc(c.delay, func() { c.fire(gen) })
}

// Retry resends the snapshot of the failed request without waiting for the
// delay. It reports whether a request was dispatched.
func (c *Controller) Retry() bool {
	c.mu.Lock()
	defer c.unlock()
	if c.closed || c.inFlight || c.outcome.State != StateFailed || c.failed == nil {
		return false
	}
	c.logger.Debug().Msg("retrying failed save")
	c.dispatch(*c.failed)
	return true
}

// Close cancels the pending delay and detaches the controller. A request
// already in flight completes in the background and its result is dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimer()
	c.stopRevert()
	c.pending = nil
	c.queued = false
	c.failed = nil
	c.outcome = Outcome{State: StateIdle, Target: c.target}
}

// Wait blocks until every request dispatched so far has returned. Results
// of requests that return after Close are still dropped.
func (c *Controller) Wait() {
	c.requests.Wait()
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	defer c.unlock()
	if c.closed || gen != c.timerGen {
		return
	}
	c.timer = nil
	if c.pending == nil {
		return
	}
	if c.inFlight {
		c.queued = true
		c.logger.Debug().Msg("save in flight, deferring dispatch")
		return
	}
	snap := *c.pending
	c.pending = nil
	c.dispatch(snap)
}

// dispatch must be called with c.mu held.
func (c *Controller) dispatch(snap content.Raw) {
	c.stopRevert()
	c.inFlight = true
	c.setOutcome(Outcome{State: StateSaving, Target: c.target, Snapshot: &snap})

	c.requests.Add(1)
	go c.run(snap)
}

func (c *Controller) run(snap content.Raw) {
	defer c.requests.Done()

	ctx := c.ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	_, err := c.persister.Persist(ctx, c.target, snap.Clone())
	c.complete(snap, err, time.Since(start))
}

func (c *Controller) complete(snap content.Raw, err error, took time.Duration) {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		c.logger.Debug().Err(err).Msg("discarding result for closed target")
		return
	}
	c.inFlight = false

	if err != nil {
		c.failed = &snap
		failure := &PersistFailedError{Target: c.target, Snapshot: snap.Clone(), Err: err}
		c.logger.Warn().Err(err).Dur("duration", took).Msg("save failed")
		c.setOutcome(Outcome{State: StateFailed, Target: c.target, Snapshot: &snap, Err: failure})
		c.outbox = append(c.outbox, notify.Notification{
			Message:    fmt.Sprintf("An error has occurred when saving the %s", c.target.Label()),
			ActionText: "Retry",
			Target:     c.target.String(),
			Action:     func() { c.Retry() },
		})
	} else {
		c.failed = nil
		c.logger.Debug().Dur("duration", took).Msg("saved")
		c.revertGen++
		gen := c.revertGen
		c.revert = c.clock.AfterFunc(c.savedDisplay, func() { c.revertToIdle(gen) })
		c.setOutcome(Outcome{State: StateSaved, Target: c.target})
	}

	if c.queued {
		c.queued = false
		if c.pending != nil {
			next := *c.pending
			c.pending = nil
			c.dispatch(next)
		}
	}
}

func (c *Controller) revertToIdle(gen uint64) {
	c.mu.Lock()
	defer c.unlock()
	if c.closed || gen != c.revertGen || c.outcome.State != StateSaved {
		return
	}
	c.revert = nil
	c.setOutcome(Outcome{State: StateIdle, Target: c.target})
}

func (c *Controller) setOutcome(o Outcome) {
	c.outcome = o
	if c.observer != nil {
		c.observer(o.clone())
	}
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *Controller) stopRevert() {
	if c.revert != nil {
		c.revert.Stop()
		c.revert = nil
	}
	c.revertGen++
}

// unlock releases c.mu and then delivers queued notifications, so a notifier
// may call Retry synchronously.
func (c *Controller) unlock() {
	out := c.outbox
	c.outbox = nil
	c.mu.Unlock()
	for _, n := range out {
		c.notifier.Notify(n)
	}
}
