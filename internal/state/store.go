package state

import (
	"sync"

	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/breaker"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/clock"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/ratewindow"
)

// Outcome labels one attempt's result for metrics accounting.
type Outcome string

const (
	Success     Outcome = "success"
	Failure     Outcome = "failure"
	RateLimited Outcome = "rate_limited"
)

// BudgetCapUSD is the per-user cumulative spend gate (§4.7 step 1).
const BudgetCapUSD = 1.00

type metricsEntry struct {
	mu                      sync.Mutex
	requests                int64
	success                 int64
	failures                int64
	rateLimited             int64
	totalLatencyMsOnSuccess int64
	totalCost               float64
}

type spendEntry struct {
	mu     sync.Mutex
	amount float64
}

// Store is the single owned value passed to each request handler. It holds
// one breaker and one rate window per provider (created once, at startup,
// from the immutable ProviderSpec catalog), plus lazily-created per-user
// spend entries and a manual-down flag set. One mutex guards the
// manual-down flags and another only the insertion of new spend entries;
// neither is held across an external call or a breaker or limiter's own
// internal critical section.
type Store struct {
	clk clock.Clock

	specs    map[string]ProviderSpec
	order    []string // deterministic iteration order, load order
	breakers map[string]*breaker.Breaker
	limiters map[string]*ratewindow.Limiter
	metrics  map[string]*metricsEntry

	mu         sync.RWMutex // guards manualDown
	manualDown map[string]bool

	spendMu sync.Mutex // guards lazy spend-entry insertion
	spend   map[string]*spendEntry
}

func NewStore(clk clock.Clock, specs []ProviderSpec) *Store {
	s := &Store{
		clk:        clk,
		specs:      make(map[string]ProviderSpec, len(specs)),
		breakers:   make(map[string]*breaker.Breaker, len(specs)),
		limiters:   make(map[string]*ratewindow.Limiter, len(specs)),
		metrics:    make(map[string]*metricsEntry, len(specs)),
		manualDown: make(map[string]bool),
		spend:      make(map[string]*spendEntry),
	}
	for _, spec := range specs {
		s.specs[spec.Name] = spec
		s.order = append(s.order, spec.Name)
		s.breakers[spec.Name] = breaker.New(clk)
		s.limiters[spec.Name] = ratewindow.New(clk, spec.RateLimitRPM)
		s.metrics[spec.Name] = &metricsEntry{}
	}
	return s
}

// Providers returns the static catalog in load order.
func (s *Store) Providers() []ProviderSpec {
	out := make([]ProviderSpec, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.specs[name])
	}
	return out
}

func (s *Store) Spec(name string) (ProviderSpec, bool) {
	spec, ok := s.specs[name]
	return spec, ok
}

func (s *Store) Breaker(name string) (*breaker.Breaker, bool) {
	b, ok := s.breakers[name]
	return b, ok
}

func (s *Store) RateLimiter(name string) (*ratewindow.Limiter, bool) {
	l, ok := s.limiters[name]
	return l, ok
}

// IsManualDown reports whether an operator has flagged name down.
func (s *Store) IsManualDown(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manualDown[name]
}

// SetManualDown flips the flag. It reports false if name is not a known
// provider, so the HTTP layer can surface a 404.
func (s *Store) SetManualDown(name string, down bool) bool {
	if _, ok := s.specs[name]; !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manualDown[name] = down
	return true
}

// GetUserSpend returns a user's cumulative charged cost, 0 if never charged.
func (s *Store) GetUserSpend(userID string) float64 {
	e := s.spendEntryFor(userID, false)
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.amount
}

// AddUserSpend charges amount to userID, creating the entry lazily.
func (s *Store) AddUserSpend(userID string, amount float64) {
	e := s.spendEntryFor(userID, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.amount += amount
}

func (s *Store) spendEntryFor(userID string, create bool) *spendEntry {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	e, ok := s.spend[userID]
	if !ok {
		if !create {
			return nil
		}
		e = &spendEntry{}
		s.spend[userID] = e
	}
	return e
}

// BumpMetrics records one attempt's outcome for name. latencyMs and cost
// are only meaningful (and only counted) on Success.
func (s *Store) BumpMetrics(name string, outcome Outcome, latencyMs int64, cost float64) {
	m, ok := s.metrics[name]
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	switch outcome {
	case Success:
		m.success++
		m.totalLatencyMsOnSuccess += latencyMs
		m.totalCost += cost
	case Failure:
		m.failures++
	case RateLimited:
		m.rateLimited++
	}
}

// Snapshot returns a consistent, derived view of every provider plus the
// global rollup (§4.8). Each provider's metrics are read under its own
// short lock; no lock is held across providers.
func (s *Store) Snapshot() (GlobalMetricsView, map[string]ProviderMetricsView) {
	providers := make(map[string]ProviderMetricsView, len(s.order))
	var global GlobalMetricsView
	var totalSuccessLatency int64

	for _, name := range s.order {
		m := s.metrics[name]
		m.mu.Lock()
		requests, success, failures, rateLimited := m.requests, m.success, m.failures, m.rateLimited
		totalLatency, totalCost := m.totalLatencyMsOnSuccess, m.totalCost
		m.mu.Unlock()

		view := ProviderMetricsView{
			Name:        name,
			Requests:    requests,
			Success:     success,
			Failures:    failures,
			RateLimited: rateLimited,
			TotalCost:   totalCost,
			IsDown:      s.IsManualDown(name),
		}
		if requests > 0 {
			view.SuccessRate = float64(success) / float64(requests)
		}
		if success > 0 {
			view.AvgLatencyMs = float64(totalLatency) / float64(success)
		}
		if b, ok := s.breakers[name]; ok {
			view.CircuitStatus = b.Snapshot().Status.String()
		}
		providers[name] = view

		global.Requests += requests
		global.Success += success
		global.Failures += failures
		global.RateLimited += rateLimited
		global.TotalCost += totalCost
		totalSuccessLatency += totalLatency
	}

	if global.Requests > 0 {
		global.SuccessRate = float64(global.Success) / float64(global.Requests)
	}
	if global.Success > 0 {
		global.AvgLatencyMs = float64(totalSuccessLatency) / float64(global.Success)
	}
	return global, providers
}
