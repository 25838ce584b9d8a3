package breaker

import (
	"testing"
	"time"

	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/clock"
)

func TestTripsAfterThreeFailures(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	b := New(clk)

	for i := 0; i < FailureThreshold; i++ {
		ok, probe := b.Admit()
		if !ok || probe {
			t.Fatalf("attempt %d: expected plain admission, got ok=%v probe=%v", i, ok, probe)
		}
		b.OnFailure()
	}

	snap := b.Snapshot()
	if snap.Status != Open {
		t.Fatalf("expected OPEN after %d consecutive failures, got %s", FailureThreshold, snap.Status)
	}

	if ok, _ := b.Admit(); ok {
		t.Fatal("expected breaker to refuse admission immediately after opening")
	}
}

func TestRateLimitedDoesNotTripBreaker(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	b := New(clk)

	for i := 0; i < FailureThreshold+2; i++ {
		b.Admit()
		b.OnRateLimited()
	}

	snap := b.Snapshot()
	if snap.Status != Closed {
		t.Fatalf("rate-limited outcomes must never trip the breaker, got %s", snap.Status)
	}
	if snap.ConsecutiveFailures != 0 {
		t.Fatalf("rate-limited outcomes must never touch consecutive_failures, got %d", snap.ConsecutiveFailures)
	}
}

func TestHalfOpenProbeSuccessCloses(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	b := New(clk)
	for i := 0; i < FailureThreshold; i++ {
		b.Admit()
		b.OnFailure()
	}

	clk.Advance((ResetSeconds - 1) * time.Second)
	if _, ok := b.Admit(); ok {
		t.Fatal("expected no admission before reaching the reset window")
	}

	clk.Advance(2 * time.Second)
	ok, probe := b.Admit()
	if !ok || !probe {
		t.Fatalf("expected a winning probe at t+61s, got ok=%v probe=%v", ok, probe)
	}
	b.OnSuccess()

	snap := b.Snapshot()
	if snap.Status != Closed || snap.ConsecutiveFailures != 0 {
		t.Fatalf("expected CLOSED with zero failures after a winning probe, got %+v", snap)
	}
}

func TestHalfOpenProbeFailureReopens(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	b := New(clk)
	for i := 0; i < FailureThreshold; i++ {
		b.Admit()
		b.OnFailure()
	}
	clk.Advance(ResetSeconds * time.Second)

	ok, probe := b.Admit()
	if !ok || !probe {
		t.Fatalf("expected winning probe, got ok=%v probe=%v", ok, probe)
	}
	b.OnFailure()

	snap := b.Snapshot()
	if snap.Status != Open {
		t.Fatalf("expected OPEN after a failed probe, got %s", snap.Status)
	}
	if snap.HalfOpenInFlight {
		t.Fatal("expected half_open_in_flight cleared after probe resolution")
	}
}

func TestOnlyOneProbeInFlight(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	b := New(clk)
	for i := 0; i < FailureThreshold; i++ {
		b.Admit()
		b.OnFailure()
	}
	clk.Advance(ResetSeconds * time.Second)

	ok1, probe1 := b.Admit()
	ok2, probe2 := b.Admit()
	if !(ok1 && probe1) {
		t.Fatal("first caller should win the probe")
	}
	if ok2 {
		t.Fatal("second concurrent caller must not also be admitted while the probe resolves")
	}
	_ = probe2
}

func TestSuccessResetsFailuresFromAnyState(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	b := New(clk)
	b.Admit()
	b.OnFailure()
	b.Admit()
	b.OnSuccess()

	snap := b.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.Status != Closed {
		t.Fatalf("expected reset to CLOSED/0 after success, got %+v", snap)
	}
}
