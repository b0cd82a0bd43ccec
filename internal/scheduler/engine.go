package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	ckerrors "github.com/makerio90/checklist/internal/errors"
	"github.com/makerio90/checklist/internal/logfields"
	"github.com/makerio90/checklist/internal/metrics"
	"github.com/makerio90/checklist/internal/model"
	"github.com/makerio90/checklist/internal/retry"
	"github.com/makerio90/checklist/internal/storage"
)

const DefaultInterval = 10 * time.Second

var (
	ErrHalted         = errors.New("scheduler: engine halted after a persistence failure")
	ErrStopped        = errors.New("scheduler: engine stopped")
	ErrAlreadyStarted = errors.New("scheduler: engine already started")
)

// ResetEvent reports one checklist reset. Cleared lists the labels that
// were checked when the reset happened, in display order.
type ResetEvent struct {
	Checklist string
	At        time.Time
	Due       time.Time
	Cleared   []string
}

type Option func(*Engine)

func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

func WithEventBuffer(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.eventBuffer = n
		}
	}
}

// Engine advances every checklist of a collection through its reset cycle
// and writes each one back to the store on every tick.
type Engine struct {
	coll        *model.Collection
	store       storage.Store
	clock       clockwork.Clock
	interval    time.Duration
	policy      retry.Policy
	logger      *slog.Logger
	recorder    metrics.Recorder
	eventBuffer int

	// tickMu serializes passes so records reach the store in tick order.
	tickMu  sync.Mutex
	closed  bool
	events  chan ResetEvent
	dropped atomic.Uint64

	failed   chan error
	failOnce sync.Once
	halted   atomic.Bool
	failMu   sync.Mutex
	failErr  error

	mu      sync.Mutex
	sched   gocron.Scheduler
	runCtx  context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
}

func NewEngine(coll *model.Collection, store storage.Store, opts ...Option) (*Engine, error) {
	if coll == nil {
		return nil, errors.New("scheduler: nil collection")
	}
	if store == nil {
		return nil, errors.New("scheduler: nil store")
	}
	e := &Engine{
		coll:        coll,
		store:       store,
		clock:       clockwork.NewRealClock(),
		interval:    DefaultInterval,
		policy:      retry.DefaultPolicy(),
		logger:      slog.Default(),
		recorder:    metrics.Nop{},
		eventBuffer: 16,
		failed:      make(chan error, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.policy.Validate(); err != nil {
		return nil, err
	}
	e.events = make(chan ResetEvent, e.eventBuffer)
	return e, nil
}

func (e *Engine) Interval() time.Duration { return e.interval }

// Events delivers resets without ever blocking the engine. The channel is
// closed by Stop.
func (e *Engine) Events() <-chan ResetEvent { return e.events }

// Failed receives the first persistence error that halted the engine.
func (e *Engine) Failed() <-chan error { return e.failed }

// Dropped counts reset events discarded because the buffer was full.
func (e *Engine) Dropped() uint64 { return e.dropped.Load() }

// Err returns the error that halted the engine, or nil while it is healthy.
func (e *Engine) Err() error {
	e.failMu.Lock()
	defer e.failMu.Unlock()
	return e.failErr
}

type step struct {
	computed bool
	reset    bool
	due      time.Time
	cleared  []string
}

// advance applies one lifecycle step to c: compute the next reset when it
// is unknown, then reset if it is due. A reset leaves next_reset absent so
// the following tick computes the next cycle.
func advance(c *model.Checklist, now time.Time) (step, error) {
	var st step
	if c.NextReset == nil && c.Schedule != nil {
		next, err := c.Schedule.NextAfter(now)
		if err != nil {
			return st, err
		}
		c.NextReset = &next
		st.computed = true
	}
	if c.NextReset != nil && !now.Before(*c.NextReset) {
		st.reset = true
		st.due = *c.NextReset
		for _, label := range c.Order {
			if c.Tasks[label] {
				st.cleared = append(st.cleared, label)
			}
		}
		c.Reset()
	}
	return st, nil
}

func recordOf(c *model.Checklist) storage.Record {
	return storage.Record{Name: c.Name, NextReset: c.NextReset, Tasks: c.Tasks}.Clone()
}

// Tick runs one pass over the collection. The lifecycle step for every
// checklist happens under the collection lock; the resulting records are
// written after it is released.
func (e *Engine) Tick(ctx context.Context) error {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	if e.closed {
		return ErrStopped
	}
	if e.halted.Load() {
		return ErrHalted
	}

	started := e.clock.Now()
	now := started.UTC()
	var (
		records []storage.Record
		resets  []ResetEvent
	)
	_ = e.coll.Update(func(lists []*model.Checklist) error {
		records = make([]storage.Record, 0, len(lists))
		for _, c := range lists {
			st, err := advance(c, now)
			if err != nil {
				e.logger.Warn("Cannot compute next reset",
					logfields.Checklist(c.Name),
					logfields.Schedule(c.Schedule.String()),
					logfields.Error(err))
			}
			if st.computed {
				e.recorder.NextResetComputed(c.Name)
				e.logger.Debug("Computed next reset",
					logfields.Checklist(c.Name),
					logfields.NextReset(c.NextReset))
			}
			if st.reset {
				e.recorder.ChecklistReset(c.Name)
				resets = append(resets, ResetEvent{Checklist: c.Name, At: now, Due: st.due, Cleared: st.cleared})
			}
			records = append(records, recordOf(c))
		}
		return nil
	})

	for _, ev := range resets {
		e.logger.Info("Checklist reset",
			logfields.Checklist(ev.Checklist),
			logfields.Count(len(ev.Cleared)),
			slog.Time("due", ev.Due))
	}

	if err := e.persist(ctx, records); err != nil {
		return err
	}
	for _, ev := range resets {
		e.emit(ev)
	}
	e.recorder.TickCompleted(e.clock.Since(started))
	return nil
}

// Flush writes the current state of every checklist without advancing it.
func (e *Engine) Flush(ctx context.Context) error {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	if e.halted.Load() {
		return ErrHalted
	}
	var records []storage.Record
	_ = e.coll.Update(func(lists []*model.Checklist) error {
		records = make([]storage.Record, 0, len(lists))
		for _, c := range lists {
			records = append(records, recordOf(c))
		}
		return nil
	})
	return e.persist(ctx, records)
}

func (e *Engine) persist(ctx context.Context, records []storage.Record) error {
	for _, rec := range records {
		if err := e.save(ctx, rec); err != nil {
			// A cancelled pass is not a store failure; Stop flushes afterwards.
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return err
			}
			e.fail(err)
			return err
		}
	}
	return nil
}

func (e *Engine) save(ctx context.Context, rec storage.Record) error {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := e.policy.Delay(attempt)
			select {
			case <-ctx.Done():
				return ckerrors.PersistenceWrite(rec.Name, attempt, ctx.Err())
			case <-e.clock.After(delay):
			}
		}
		err := e.store.Save(ctx, rec)
		if err == nil {
			e.recorder.SaveSucceeded()
			return nil
		}
		e.recorder.SaveFailed()
		if attempt >= e.policy.MaxRetries {
			return ckerrors.PersistenceWrite(rec.Name, attempt+1, err)
		}
		e.logger.Warn("Record write failed, retrying",
			logfields.Checklist(rec.Name),
			logfields.Attempt(attempt+1),
			logfields.DelayMS(e.policy.Delay(attempt+1)),
			logfields.Error(err))
	}
}

func (e *Engine) fail(err error) {
	e.halted.Store(true)
	e.failOnce.Do(func() {
		e.failMu.Lock()
		e.failErr = err
		e.failMu.Unlock()
		e.logger.Error("Lifecycle engine halted", logfields.Error(err))
		e.failed <- err
	})
}

func (e *Engine) emit(ev ResetEvent) {
	select {
	case e.events <- ev:
	default:
		e.dropped.Add(1)
	}
}

// Start runs Tick every interval on a gocron job, beginning immediately.
// A pass that overruns the interval delays the next one instead of
// overlapping it.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}
	s, err := gocron.NewScheduler(gocron.WithClock(e.clock))
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	e.runCtx, e.cancel = context.WithCancel(context.Background())
	_, err = s.NewJob(
		gocron.DurationJob(e.interval),
		gocron.NewTask(e.runTick),
		gocron.WithName("checklist-lifecycle"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		e.cancel()
		_ = s.Shutdown()
		return fmt.Errorf("failed to create lifecycle job: %w", err)
	}
	e.sched = s
	e.started = true
	e.logger.Info("Starting lifecycle engine", slog.Duration("interval", e.interval))
	s.Start()
	return nil
}

func (e *Engine) runTick() {
	err := e.Tick(e.runCtx)
	switch {
	case err == nil, errors.Is(err, ErrHalted), errors.Is(err, ErrStopped):
	case errors.Is(err, context.Canceled):
		e.logger.Debug("Tick cancelled")
	default:
		e.logger.Error("Tick failed", logfields.Error(err))
	}
}

// Stop shuts the job down, writes every checklist one last time and closes
// Events. It is safe to call more than once.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	s := e.sched
	e.mu.Unlock()

	e.logger.Info("Stopping lifecycle engine")
	e.cancel()
	shutdownErr := s.Shutdown()

	flushErr := e.Flush(context.Background())
	if errors.Is(flushErr, ErrHalted) {
		flushErr = nil
	}

	e.tickMu.Lock()
	e.closed = true
	close(e.events)
	e.tickMu.Unlock()

	if flushErr != nil {
		return flushErr
	}
	if shutdownErr != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", shutdownErr)
	}
	return nil
}
