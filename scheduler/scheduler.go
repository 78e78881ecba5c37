// Package scheduler drives a machine's tasks at their declared exact
// frequencies (spec.md section 4.3). A Scheduler is frontend-driven by
// default (the host calls Run once per frame) or may be handed its own
// dedicated goroutine via StartDedicated.
package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kay-lambdadelta/multiemu-sub000/address"
	"github.com/kay-lambdadelta/multiemu-sub000/logger"
	"github.com/kay-lambdadelta/multiemu-sub000/rational"
)

// TaskFunc is invoked once a task's debt reaches at least one period. slice
// is floor(debt), the number of periods to run in this invocation; the
// scheduler subtracts slice from the task's debt afterwards regardless of
// what the callback does.
type TaskFunc func(slice int64)

// Task is a single scheduled unit of work: a component-owned callback plus
// its exact period and accumulated debt (spec.md section 4.3, "State per
// task").
type Task struct {
	Path   address.ComponentPath
	Name   string
	period rational.Rational
	debt   rational.Rational
	fn     TaskFunc
}

// defaultCatchUpCeiling bounds how much wall-clock time a single tick will
// convert into task debt (spec.md section 4.3, "Catch-up and slow-down").
// It is deliberately a wall-clock bound, not a per-task period count: a
// task's ordinary per-tick debt scales with its own frequency (a 1000Hz
// task driven by one 16ms frontend Run call legitimately owes it 16
// periods; a ~1MHz CPU task against the same 16ms frame legitimately owes
// it tens of thousands), and none of that is pathological. What is
// pathological is the tick's *elapsed argument itself* being huge — a
// frontend that skipped calling Run for seconds (paused, stalled, a
// debugger breakpoint) — so the ceiling clamps elapsed before it is ever
// turned into periods, uniformly across every task in the tick.
var defaultCatchUpCeiling = time.Second

// Scheduler holds every task declared for one machine and runs them in
// deterministic, insertion order (spec.md section 4.3, "Execution order of
// tasks within a tick is deterministic").
type Scheduler struct {
	mu    sync.Mutex
	tasks []*Task

	// CatchUpCeiling bounds the elapsed wall-clock duration a single tick
	// will process. A tick whose elapsed argument exceeds it is clamped
	// down to it before debt is computed, and the excess real time is
	// discarded rather than caught up. Defaults to one second; set before
	// the first Run/StartDedicated call.
	CatchUpCeiling time.Duration

	group    *errgroup.Group
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{CatchUpCeiling: defaultCatchUpCeiling}
}

// AddTask registers a task at the given exact period (in seconds). fn is
// the closure a ComponentBuilder constructed around registry.Interact or
// registry.InteractMut, depending on whether the task was declared via
// insert_task or insert_task_mut (spec.md section 4.3, "Tasks with
// mutation vs read-only"); the scheduler itself never touches the
// registry directly.
func (s *Scheduler) AddTask(path address.ComponentPath, name string, period rational.Rational, fn TaskFunc) *Task {
	t := &Task{Path: path, Name: name, period: period, debt: rational.FromInt(0), fn: fn}
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return t
}

// Len returns the number of registered tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Run consumes a single frontend-driven tick of up to budget (spec.md
// section 4.3, "Frontend-driven"). Because tasks execute serially and a
// tick is a single pass over every task's debt, a call to Run always
// finishes the full tick it starts; there is no partial-tick state to
// resume.
func (s *Scheduler) Run(budget time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick(budget)
}

// tick advances every task's debt by elapsed/period periods and runs any
// task whose debt has reached at least one period. Must be called with
// s.mu held.
func (s *Scheduler) tick(elapsed time.Duration) {
	if s.CatchUpCeiling > 0 && elapsed > s.CatchUpCeiling {
		logger.Logf("scheduler", "tick elapsed %s exceeded catch-up ceiling %s; discarding excess", elapsed, s.CatchUpCeiling)
		elapsed = s.CatchUpCeiling
	}

	elapsedPeriods := rational.New(elapsed.Nanoseconds(), int64(time.Second))
	one := rational.FromInt(1)

	for _, t := range s.tasks {
		t.debt = t.debt.Add(elapsedPeriods.Quo(t.period))

		if t.debt.Cmp(one) >= 0 {
			slice := t.debt.Floor()
			t.fn(slice)
			t.debt = t.debt.Sub(rational.FromInt(slice))
		}
	}
}

// StartDedicated runs the scheduler on its own goroutine with a steady
// pacing loop, ticking at tickRate (spec.md section 4.3, "Self-driven").
// The loop sleeps between ticks via a rate.Limiter rather than busy
// spinning, and stops cleanly when ctx is cancelled or Stop is called.
func (s *Scheduler) StartDedicated(ctx context.Context, tickRate rational.Rational) {
	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	s.cancel = cancel
	s.group = group

	limiter := rate.NewLimiter(rate.Limit(tickRate.Float64()), 1)

	group.Go(func() error {
		last := time.Now()
		for {
			if err := limiter.Wait(groupCtx); err != nil {
				return nil
			}
			now := time.Now()
			elapsed := now.Sub(last)
			last = now

			s.mu.Lock()
			s.tick(elapsed)
			s.mu.Unlock()
		}
	})
}

// Stop signals a dedicated-thread scheduler to halt and waits for it to
// join (spec.md section 5, "Cancellation & shutdown"). Any task already in
// flight is allowed to complete before the loop exits. Stop is a no-op on
// a scheduler that was never started in dedicated mode, and safe to call
// more than once.
func (s *Scheduler) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		if s.cancel == nil {
			return
		}
		s.cancel()
		err = s.group.Wait()
	})
	return err
}

// Debt returns t's current accumulated debt, in periods. Intended for
// diagnostics; not part of the scheduling algorithm itself.
func (t *Task) Debt() rational.Rational {
	return t.debt
}
