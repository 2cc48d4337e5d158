package coordinator

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	"github.com/stacklok/toolhive-mime-registry/internal/notify"
	pkgsync "github.com/stacklok/toolhive-mime-registry/internal/sync"
)

// MinInterval is the shortest schedule period. A zero interval is clamped to it.
const MinInterval = time.Second

// ErrCyclePanicked is reported on the failure channel when a scheduled cycle panics
var ErrCyclePanicked = errors.New("scheduled synchronization panicked")

// Coordinator runs synchronization cycles on a fixed schedule
type Coordinator interface {
	// Configure replaces the current schedule. A negative interval disables
	// scheduling; any other interval (re)starts the ticker. A cycle already
	// in flight is left to finish.
	Configure(ctx context.Context, interval time.Duration)

	// Interval returns the active period, or config.IntervalDisabled
	Interval() time.Duration

	// Stop disables scheduling and waits for in-flight cycles to return
	Stop()
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager  pkgsync.Manager
	notifier *notify.Notifier

	// mu guards the schedule fields below
	mu       gosync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}

	// cycles tracks in-flight scheduled cycles
	cycles  gosync.WaitGroup
	running atomic.Bool

	// cycleMu guards cancelCycle, the cancel func of the latest cycle
	cycleMu     gosync.Mutex
	cancelCycle context.CancelFunc
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithNotifier routes scheduled cycle failures to n
func WithNotifier(n *notify.Notifier) Option {
	return func(c *defaultCoordinator) {
		c.notifier = n
	}
}

// New creates a disabled coordinator for manager
func New(manager pkgsync.Manager, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		manager:  manager,
		interval: config.IntervalDisabled,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Configure replaces the current schedule
func (c *defaultCoordinator) Configure(ctx context.Context, interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	if interval < 0 {
		zap.S().Infow("Scheduled synchronization disabled")
		return
	}
	if interval == 0 {
		interval = MinInterval
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.interval = interval
	c.cancel = cancel
	c.done = done

	go c.run(loopCtx, ctx, interval, done)

	zap.S().Infow("Scheduled synchronization configured", "interval", interval)
}

// Interval returns the active period
func (c *defaultCoordinator) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Stop disables scheduling, cancels the in-flight cycle and waits for it
func (c *defaultCoordinator) Stop() {
	c.mu.Lock()
	stopped := c.stopLocked()
	c.mu.Unlock()

	c.cycleMu.Lock()
	if c.cancelCycle != nil {
		c.cancelCycle()
		c.cancelCycle = nil
	}
	c.cycleMu.Unlock()

	c.cycles.Wait()
	if stopped {
		zap.S().Infow("Scheduled synchronization stopped")
	}
}

// stopLocked cancels the ticker goroutine and waits for it to exit. Cycles
// started by the ticker are not cancelled. Callers hold mu.
func (c *defaultCoordinator) stopLocked() bool {
	if c.cancel == nil {
		return false
	}

	c.cancel()
	<-c.done

	c.cancel = nil
	c.done = nil
	c.interval = config.IntervalDisabled
	return true
}

// run ticks until loopCtx is done. Cycles derive from parent, so replacing
// the schedule does not cancel them.
func (c *defaultCoordinator) run(loopCtx, parent context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.tick(parent)
		case <-loopCtx.Done():
			return
		}
	}
}

// tick starts a cycle unless the previous scheduled cycle is still running
func (c *defaultCoordinator) tick(parent context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		zap.S().Debugw("Previous scheduled cycle still running, skipping tick")
		return
	}

	cycleCtx, cancel := context.WithCancel(parent)
	c.cycleMu.Lock()
	c.cancelCycle = cancel
	c.cycleMu.Unlock()

	c.cycles.Add(1)
	go func() {
		defer c.cycles.Done()
		defer c.running.Store(false)
		defer cancel()
		c.performSync(cycleCtx)
	}()
}

// performSync runs one cycle and publishes its failure, if any
func (c *defaultCoordinator) performSync(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrCyclePanicked, r)
			zap.S().Errorw("Scheduled synchronization panicked", "panic", r)
			c.notifier.NotifyFailure(err)
		}
	}()

	startTime := time.Now()
	delta, err := c.manager.Synchronize(ctx, false)
	if err != nil {
		if ctx.Err() != nil {
			zap.S().Debugw("Scheduled synchronization cancelled", "error", err)
			return
		}
		zap.S().Errorw("Scheduled synchronization failed",
			"duration", time.Since(startTime),
			"error", err)
		c.notifier.NotifyFailure(err)
		return
	}

	zap.S().Debugw("Scheduled synchronization completed",
		"duration", time.Since(startTime),
		"added", delta.Count())
}
