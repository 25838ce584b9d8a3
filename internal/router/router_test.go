package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/classify"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/clock"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/cost"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/providers"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/state"
)

// scriptedClient returns a fixed, scripted sequence of results on each call.
type scriptedClient struct {
	calls   int
	results []providers.Result
	errs    []error
}

func (c *scriptedClient) Chat(ctx context.Context, prompt, model string) (providers.Result, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return providers.Result{}, c.errs[i]
	}
	if i < len(c.results) {
		return c.results[i], nil
	}
	return providers.Result{Content: "ok", LatencyMs: 10, Cost: 0.001}, nil
}

func newTestRouter(specs []state.ProviderSpec, clk *clock.Fake, clients providers.Registry) (*Router, *state.Store) {
	store := state.NewStore(clk, specs)
	r := New(store, cost.NewEstimator(), classify.Default(), clients)
	return r, store
}

func TestBreakerTripsAfterThreeFailures(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	specs := []state.ProviderSpec{{Name: "X", Model: "m", CostPerToken: 0.001, RateLimitRPM: 1000}}
	fail := &scriptedClient{errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")}}
	r, store := newTestRouter(specs, clk, providers.Registry{"X": fail})

	for i := 0; i < 3; i++ {
		_, err := r.Route(context.Background(), state.ChatRequest{Prompt: "hello"})
		if _, ok := err.(*NoProvidersAvailable); !ok {
			t.Fatalf("attempt %d: expected NoProvidersAvailable, got %v", i, err)
		}
	}

	b, _ := store.Breaker("X")
	if b.Snapshot().Status.String() != "OPEN" {
		t.Fatalf("expected breaker OPEN after 3 failures, got %s", b.Snapshot().Status)
	}

	// A fourth selection within 60s must exclude X entirely.
	_, err := r.Route(context.Background(), state.ChatRequest{Prompt: "hello"})
	var npa *NoProvidersAvailable
	if !errors.As(err, &npa) || npa.Attempted != 0 {
		t.Fatalf("expected an empty selection (Attempted=0) once X is OPEN, got %v", err)
	}
}

func TestHalfOpenProbeSuccessRecovers(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	specs := []state.ProviderSpec{{Name: "X", Model: "m", CostPerToken: 0.001, RateLimitRPM: 1000}}
	fail := &scriptedClient{errs: []error{errors.New("e1"), errors.New("e2"), errors.New("e3")}}
	r, store := newTestRouter(specs, clk, providers.Registry{"X": fail})

	for i := 0; i < 3; i++ {
		r.Route(context.Background(), state.ChatRequest{Prompt: "hello"})
	}
	clk.Advance(61 * time.Second)

	succeed := &scriptedClient{results: []providers.Result{{Content: "back", LatencyMs: 5, Cost: 0.002}}}
	r.Clients["X"] = succeed

	resp, err := r.Route(context.Background(), state.ChatRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("expected the probe to succeed, got %v", err)
	}
	if resp.ProviderUsed != "X" {
		t.Fatalf("expected X to serve the probe, got %s", resp.ProviderUsed)
	}

	b, _ := store.Breaker("X")
	snap := b.Snapshot()
	if snap.Status.String() != "CLOSED" || snap.ConsecutiveFailures != 0 {
		t.Fatalf("expected CLOSED/0 after a winning probe, got %+v", snap)
	}
}

func TestBudgetExceededRecordsNoMetrics(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	specs := []state.ProviderSpec{{Name: "X", Model: "m", CostPerToken: 0.001, RateLimitRPM: 1000}}
	succeed := &scriptedClient{}
	r, store := newTestRouter(specs, clk, providers.Registry{"X": succeed})
	store.AddUserSpend("u", 1.05)

	_, err := r.Route(context.Background(), state.ChatRequest{Prompt: "hello", UserID: "u"})
	var be *BudgetExceeded
	if !errors.As(err, &be) {
		t.Fatalf("expected BudgetExceeded, got %v", err)
	}
	if succeed.calls != 0 {
		t.Fatal("expected no provider call once the budget gate rejects the request")
	}
	global, _ := store.Snapshot()
	if global.Requests != 0 {
		t.Fatalf("expected no metrics recorded for a budget-rejected request, got %+v", global)
	}
}

func TestFallbackOnRateLimitThenSuccess(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	specs := []state.ProviderSpec{
		{Name: "A", Model: "m", CostPerToken: 0.001, RateLimitRPM: 1},
		{Name: "B", Model: "m", CostPerToken: 0.001, RateLimitRPM: 1000},
	}
	clientA := &scriptedClient{}
	clientB := &scriptedClient{results: []providers.Result{{Content: "from B", LatencyMs: 5, Cost: 0.003}}}
	r, store := newTestRouter(specs, clk, providers.Registry{"A": clientA, "B": clientB})

	limiterA, _ := store.RateLimiter("A")
	limiterA.Admit() // exhaust A's single slot

	resp, err := r.Route(context.Background(), state.ChatRequest{Prompt: "hello", Preferences: &state.RequestPreferences{Priority: state.PriorityCost}})
	if err != nil {
		t.Fatalf("expected fallback to B to succeed, got %v", err)
	}
	if resp.ProviderUsed != "B" {
		t.Fatalf("expected B to serve the request, got %s", resp.ProviderUsed)
	}
	if clientA.calls != 0 {
		t.Fatal("expected A to never be invoked once rate-limited")
	}

	bA, _ := store.Breaker("A")
	if bA.Snapshot().Status.String() != "CLOSED" {
		t.Fatal("expected A's breaker to remain CLOSED after a rate-limit skip")
	}

	_, providersSnap := store.Snapshot()
	if providersSnap["A"].RateLimited != 1 {
		t.Fatalf("expected A to record one rate_limited outcome, got %+v", providersSnap["A"])
	}
}

// A rate-limiter refusal for this attempt must never touch the breaker: if
// a different, concurrent request already won the single HALF_OPEN probe
// slot on the same provider, a local rate-limit rejection here must not
// steal or corrupt that probe's outcome out from under its legitimate
// holder.
func TestRateLimitRefusalDoesNotDisturbConcurrentProbe(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	specs := []state.ProviderSpec{{Name: "X", Model: "m", CostPerToken: 0.001, RateLimitRPM: 1}}
	client := &scriptedClient{}
	r, store := newTestRouter(specs, clk, providers.Registry{"X": client})

	b, _ := store.Breaker("X")
	for i := 0; i < 3; i++ {
		b.Admit()
		b.OnFailure()
	}
	clk.Advance(61 * time.Second)

	// A concurrent request wins the only HALF_OPEN probe slot.
	admitted, isProbe := b.Admit()
	if !admitted || !isProbe {
		t.Fatalf("expected the concurrent caller to win the probe, got admitted=%v isProbe=%v", admitted, isProbe)
	}

	// X's rate window is exhausted as well. Selection already leaves X out
	// while its probe is in flight (the breaker's WouldAdmit is false in
	// HALF_OPEN), so this Route touches neither X's limiter nor its breaker.
	limiter, _ := store.RateLimiter("X")
	limiter.Admit()

	_, err := r.Route(context.Background(), state.ChatRequest{Prompt: "hello"})
	var npa *NoProvidersAvailable
	if !errors.As(err, &npa) {
		t.Fatalf("expected NoProvidersAvailable, got %v", err)
	}
	if client.calls != 0 {
		t.Fatal("expected the provider to never be invoked once rate-limited")
	}

	snap := b.Snapshot()
	if !snap.HalfOpenInFlight || snap.Status.String() != "HALF_OPEN" {
		t.Fatalf("expected the concurrent probe to remain untouched by the rate-limit refusal, got %+v", snap)
	}

	// The legitimate probe holder can still resolve it correctly.
	b.OnSuccess()
	snap = b.Snapshot()
	if snap.Status.String() != "CLOSED" || snap.HalfOpenInFlight {
		t.Fatalf("expected the probe holder's own outcome to resolve cleanly, got %+v", snap)
	}
}

func TestValidationErrorsOnEmptyPrompt(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	r, _ := newTestRouter(nil, clk, providers.Registry{})
	_, err := r.Route(context.Background(), state.ChatRequest{Prompt: ""})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for empty prompt, got %v", err)
	}
}

func TestNoProvidersAvailableWhenSelectionEmpty(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	r, _ := newTestRouter(nil, clk, providers.Registry{})
	_, err := r.Route(context.Background(), state.ChatRequest{Prompt: "hello"})
	var npa *NoProvidersAvailable
	if !errors.As(err, &npa) {
		t.Fatalf("expected NoProvidersAvailable, got %v", err)
	}
}
