package providers

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/cost"
)

// MockClient simulates a backend with a configurable latency distribution
// and error rate, for local development and tests without real API keys.
type MockClient struct {
	name         string
	meanMs       float64
	p95Ms        float64
	errorRate    float64
	costPerToken float64
	estimator    *cost.Estimator
	rng          *rand.Rand
}

func NewMockClient(name string, meanMs, p95Ms, errorRate, costPerToken float64, estimator *cost.Estimator) *MockClient {
	return &MockClient{
		name:         name,
		meanMs:       meanMs,
		p95Ms:        p95Ms,
		errorRate:    errorRate,
		costPerToken: costPerToken,
		estimator:    estimator,
		rng:          rand.New(rand.NewSource(rand.Int63())),
	}
}

// sampleLatency draws from a lognormal distribution tuned to the configured
// mean and p95, the way the reference mock provider does it.
func (m *MockClient) sampleLatency() time.Duration {
	mean, p95 := m.meanMs, m.p95Ms
	if p95 < mean {
		p95 = mean
	}
	const z = 1.64485362695
	f := func(s float64) float64 { return math.Exp(s*(z-s/2)) - p95/mean }
	lo, hi := 1e-6, 3.0
	for i := 0; i < 40; i++ {
		mid := (lo + hi) / 2
		if f(mid) > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}
	sigma := (lo + hi) / 2
	mu := math.Log(mean) - sigma*sigma/2
	x := math.Exp(mu + sigma*m.rng.NormFloat64())
	if x < 0 {
		x = 0
	}
	if x > 3*p95 {
		x = 3 * p95
	}
	return time.Duration(x * float64(time.Millisecond))
}

func (m *MockClient) Chat(ctx context.Context, prompt, model string) (Result, error) {
	d := m.sampleLatency()
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return Result{}, OtherError(ctx.Err())
	case <-timer.C:
	}

	if m.rng.Float64() < m.errorRate {
		if m.rng.Float64() < 0.5 {
			return Result{}, RateLimitedError(errors.New("mock: rate limited"))
		}
		return Result{}, OtherError(errors.New("mock: simulated failure"))
	}

	tokens := m.estimator.EstimateTokens(prompt, model)
	if tokens == 0 {
		tokens = 1
	}
	return Result{
		Content:   "(mock) response to: " + truncate(prompt, 40),
		LatencyMs: d.Milliseconds(),
		Cost:      float64(tokens) * m.costPerToken,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
