package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/kay-lambdadelta/multiemu-sub000/rational"
	"github.com/kay-lambdadelta/multiemu-sub000/scheduler"
)

// Scenario E — a 1000Hz task driven by a 16ms frontend budget should be
// handed slices summing to 16 periods per Run call, with leftover debt
// carried to the next call rather than lost.
func TestScenarioFrontendDrivenBudget(t *testing.T) {
	s := scheduler.New()
	var invocations int64
	task := s.AddTask("cpu", "clock", rational.Frequency(1000, 1).Reciprocal(), func(slice int64) {
		invocations += slice
	})

	s.Run(16 * time.Millisecond)

	if invocations != 16 {
		t.Fatalf("expected 16 invocations, got %d", invocations)
	}
	if task.Debt().Sign() < 0 {
		t.Fatalf("debt must never go negative, got %s", task.Debt())
	}

	// remaining fractional debt (0 here, since 16ms is exactly 16 periods
	// of a 1000Hz task) should carry across calls.
	s.Run(1500 * time.Microsecond)
	if invocations != 17 {
		t.Fatalf("expected leftover debt to carry and trigger a 17th invocation, got %d", invocations)
	}
}

func TestDeterministicInsertionOrder(t *testing.T) {
	s := scheduler.New()
	var order []string
	s.AddTask("a", "first", rational.FromInt(1000).Reciprocal(), func(int64) { order = append(order, "first") })
	s.AddTask("b", "second", rational.FromInt(1000).Reciprocal(), func(int64) { order = append(order, "second") })
	s.AddTask("c", "third", rational.FromInt(1000).Reciprocal(), func(int64) { order = append(order, "third") })

	s.Run(time.Millisecond)
	s.Run(time.Millisecond)

	want := []string{"first", "second", "third", "first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("expected %d invocations, got %d: %v", len(want), len(order), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected deterministic order %v, got %v", want, order)
		}
	}
}

func TestCatchUpCeilingClampsPathologicalElapsed(t *testing.T) {
	s := scheduler.New()
	s.CatchUpCeiling = 10 * time.Millisecond

	var slices []int64
	s.AddTask("slow", "tick", rational.Frequency(1000, 1).Reciprocal(), func(slice int64) {
		slices = append(slices, slice)
	})

	// a full second of elapsed time (e.g. the frontend stalled) against a
	// 1000Hz task would normally accrue 1000 periods of debt; the ceiling
	// clamps the tick's elapsed argument itself to 10ms before it is ever
	// turned into periods, so only 10 periods are owed.
	s.Run(time.Second)

	if len(slices) != 1 {
		t.Fatalf("expected exactly one invocation, got %d", len(slices))
	}
	if slices[0] != 10 {
		t.Fatalf("expected catch-up ceiling to clamp elapsed to 10 periods, got %d", slices[0])
	}
}

// TestCatchUpCeilingNeverClampsOrdinaryDebt proves the fast-task and
// frontend-frame scenarios from spec.md section 8 Scenario E are never
// clamped by the default ceiling: a 1000Hz task owes 16 periods to a
// single 16ms frame, and a ~1MHz task owes tens of thousands — both are
// ordinary per-tick debt, not a pathological elapsed gap, so the default
// one-second ceiling must leave them untouched.
func TestCatchUpCeilingNeverClampsOrdinaryDebt(t *testing.T) {
	s := scheduler.New()

	var cpuInvocations int64
	s.AddTask("cpu", "clock", rational.Frequency(1000, 1).Reciprocal(), func(slice int64) {
		cpuInvocations += slice
	})

	var chipInvocations int64
	s.AddTask("chip", "clock", rational.Frequency(1_000_000, 1).Reciprocal(), func(slice int64) {
		chipInvocations += slice
	})

	s.Run(16 * time.Millisecond)

	if cpuInvocations != 16 {
		t.Fatalf("expected 16 ordinary invocations, got %d", cpuInvocations)
	}
	if chipInvocations != 16_000 {
		t.Fatalf("expected 16000 ordinary invocations, got %d", chipInvocations)
	}
}

func TestNoInvocationBelowOnePeriod(t *testing.T) {
	s := scheduler.New()
	var invoked bool
	s.AddTask("a", "slow", rational.FromInt(1).Reciprocal(), func(int64) { invoked = true })

	s.Run(500 * time.Millisecond)
	if invoked {
		t.Fatalf("expected no invocation before a full period has accrued")
	}

	s.Run(600 * time.Millisecond)
	if !invoked {
		t.Fatalf("expected an invocation once accrued debt reached one period")
	}
}

func TestDedicatedStartStop(t *testing.T) {
	s := scheduler.New()
	var count int
	s.AddTask("a", "fast", rational.Frequency(1000, 1).Reciprocal(), func(slice int64) {
		count += int(slice)
	})

	s.StartDedicated(context.Background(), rational.FromInt(200))
	time.Sleep(50 * time.Millisecond)

	if err := s.Stop(); err != nil {
		t.Fatalf("unexpected error stopping scheduler: %s", err)
	}
	if count == 0 {
		t.Fatalf("expected the dedicated loop to have ticked at least once")
	}

	// Stop must be idempotent.
	if err := s.Stop(); err != nil {
		t.Fatalf("unexpected error on second Stop: %s", err)
	}
}
