package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyjia/expense-claims/internal/domain/event"
)

// Dispatcher routes post-commit events to registered observers. Observers
// run after the business transaction has committed, so nothing they do can
// undo or fail the operation that emitted the event.
type Dispatcher interface {
	// Observe registers an observer that runs inline before Dispatch returns
	Observe(eventType event.Type, name string, handler Handler)

	// ObserveAsync registers an observer that runs on its own goroutine,
	// detached from the caller's cancellation
	ObserveAsync(eventType event.Type, name string, handler Handler)

	// Dispatch runs every inline observer in registration order and starts
	// the asynchronous ones. A failing observer does not stop the others;
	// inline failures are joined into the returned error.
	Dispatch(ctx context.Context, evt *event.Event) error

	// Observers lists what is registered for an event type
	Observers(eventType event.Type) []ObserverInfo

	// Close rejects further events and waits for running async observers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	mu        sync.RWMutex
	observers map[event.Type][]observer
	logger    Logger

	onAsyncFailure AsyncFailureHook
	asyncTimeout   time.Duration
	inFlight       chan struct{}

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// WithAsyncFailureHook routes async observer failures to hook
func WithAsyncFailureHook(hook AsyncFailureHook) Option {
	return func(d *eventDispatcher) {
		d.onAsyncFailure = hook
	}
}

// WithAsyncTimeout bounds each async observer run. Zero means no deadline.
func WithAsyncTimeout(timeout time.Duration) Option {
	return func(d *eventDispatcher) {
		d.asyncTimeout = timeout
	}
}

// WithMaxInFlight caps how many async observers run at once. Excess runs
// wait for a slot on their own goroutine; Dispatch never blocks on them.
func WithMaxInFlight(n int) Option {
	return func(d *eventDispatcher) {
		if n > 0 {
			d.inFlight = make(chan struct{}, n)
		}
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		observers: make(map[event.Type][]observer),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *eventDispatcher) Observe(eventType event.Type, name string, handler Handler) {
	d.register(eventType, name, handler, false)
}

func (d *eventDispatcher) ObserveAsync(eventType event.Type, name string, handler Handler) {
	d.register(eventType, name, handler, true)
}

func (d *eventDispatcher) register(eventType event.Type, name string, handler Handler, async bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.observers[eventType] = append(d.observers[eventType], observer{
		ObserverInfo: ObserverInfo{Name: name, EventType: eventType, Async: async},
		handler:      handler,
	})

	if d.logger != nil {
		d.logger.Info("Observer registered",
			"event_type", eventType,
			"observer", name,
			"async", async,
		)
	}
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}

	d.mu.RLock()
	observers := append([]observer(nil), d.observers[evt.Type]...)
	d.mu.RUnlock()

	var errs []error
	for _, o := range observers {
		if o.Async {
			d.runAsync(ctx, evt, o)
			continue
		}
		if err := d.safeExecute(ctx, evt, o); err != nil {
			d.logFailure("Observer failed", evt, o, err)
			errs = append(errs, fmt.Errorf("observer %s failed: %w", o.Name, err))
		}
	}

	return errors.Join(errs...)
}

// runAsync executes o on a goroutine tracked by the dispatcher's wait group
func (d *eventDispatcher) runAsync(ctx context.Context, evt *event.Event, o observer) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if d.inFlight != nil {
			d.inFlight <- struct{}{}
			defer func() { <-d.inFlight }()
		}

		runCtx := context.WithoutCancel(ctx)
		if d.asyncTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, d.asyncTimeout)
			defer cancel()
		}

		if err := d.safeExecute(runCtx, evt, o); err != nil {
			d.logFailure("Async observer failed", evt, o, err)
			if d.onAsyncFailure != nil {
				d.onAsyncFailure(evt, o.Name, err)
			}
		}
	}()
}

func (d *eventDispatcher) Observers(eventType event.Type) []ObserverInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]ObserverInfo, 0, len(d.observers[eventType]))
	for _, o := range d.observers[eventType] {
		result = append(result, o.ObserverInfo)
	}
	return result
}

func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}

	if d.logger != nil {
		d.logger.Info("Closing dispatcher, waiting for async observers")
	}

	d.wg.Wait()

	if d.logger != nil {
		d.logger.Info("Dispatcher closed")
	}

	return nil
}

// safeExecute runs an observer with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, o observer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panic: %v", r)
		}
	}()

	return o.handler(ctx, evt)
}

func (d *eventDispatcher) logFailure(msg string, evt *event.Event, o observer, err error) {
	if d.logger == nil {
		return
	}
	d.logger.Error(msg,
		"event_type", evt.Type,
		"event_id", evt.ID,
		"entity_type", evt.EntityType,
		"entity_id", evt.EntityID,
		"observer", o.Name,
		"error", err,
	)
}
