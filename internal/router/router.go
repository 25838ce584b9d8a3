// Package router implements the per-request procedure from spec.md §4.7:
// gate on budget, select an ordered candidate list, invoke candidates in
// order with fallback on failure or rate-limit, and account for the
// outcome of every attempt.
package router

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/breaker"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/classify"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/cost"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/providers"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/selection"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/state"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/telemetry"
)

// DefaultTimeout is used when a request doesn't set timeout_ms; spec.md
// §4.7 leaves the exact value up to the implementation.
const DefaultTimeout = 30 * time.Second

var tracer = otel.Tracer("llm-router/router")

// Router owns no state of its own beyond references to the collaborators
// it orchestrates; the State Store is the single owned mutable value,
// passed in at construction and shared across every request.
type Router struct {
	Store     *state.Store
	Estimator *cost.Estimator
	Keywords  classify.Keywords
	Clients   providers.Registry

	DefaultTimeout time.Duration
}

func New(store *state.Store, estimator *cost.Estimator, keywords classify.Keywords, clients providers.Registry) *Router {
	return &Router{
		Store:          store,
		Estimator:      estimator,
		Keywords:       keywords,
		Clients:        clients,
		DefaultTimeout: DefaultTimeout,
	}
}

// Route runs the full request procedure and returns either a ChatResponse
// or one of *ValidationError, *BudgetExceeded, *NoProvidersAvailable.
func (r *Router) Route(ctx context.Context, req state.ChatRequest) (state.ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "router.route")
	defer span.End()

	if err := validate(req); err != nil {
		return state.ChatResponse{}, err
	}

	if req.UserID != "" {
		if spend := r.Store.GetUserSpend(req.UserID); spend > state.BudgetCapUSD {
			telemetry.BudgetRejectedTotal.Inc()
			log.Warn().Str("user_id", req.UserID).Float64("spend", spend).Msg("budget exceeded")
			return state.ChatResponse{}, &BudgetExceeded{UserID: req.UserID, Spend: spend}
		}
	}

	prefs := state.RequestPreferences{}
	if req.Preferences != nil {
		prefs = *req.Preferences
	}

	candidates, label := selection.Select(r.Store, r.Estimator, r.Keywords, req.Prompt, prefs)
	span.SetAttributes(attribute.String("classify.label", string(label)), attribute.Int("candidates", len(candidates)))
	if len(candidates) == 0 {
		return state.ChatResponse{}, &NoProvidersAvailable{Attempted: 0}
	}

	timeout := r.timeoutFor(prefs)
	attempted := 0

	for _, cand := range candidates {
		attempted++
		name := cand.Spec.Name

		client, ok := r.Clients[name]
		if !ok {
			log.Warn().Str("provider", name).Msg("selected provider has no registered client, skipping")
			continue
		}

		limiter, _ := r.Store.RateLimiter(name)
		if !limiter.Admit() {
			r.Store.BumpMetrics(name, state.RateLimited, 0, 0)
			telemetry.RequestsTotal.WithLabelValues(name, "rate_limited").Inc()
			telemetry.ErrorsTotal.WithLabelValues(name, "rate_limited").Inc()
			log.Debug().Str("provider", name).Msg("rate limit exhausted, trying next candidate")
			continue
		}

		b, _ := r.Store.Breaker(name)
		admitted, isProbe := b.Admit()
		if !admitted {
			log.Debug().Str("provider", name).Msg("breaker closed the window between selection and invocation, skipping")
			continue
		}
		if isProbe {
			log.Info().Str("provider", name).Msg("half-open probe in flight")
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := client.Chat(callCtx, req.Prompt, cand.Spec.Model)
		cancel()

		if err == nil {
			b.OnSuccess()
			r.Store.BumpMetrics(name, state.Success, result.LatencyMs, result.Cost)
			telemetry.RequestsTotal.WithLabelValues(name, "success").Inc()
			telemetry.LatencyMs.WithLabelValues(name).Observe(float64(result.LatencyMs))
			telemetry.CostUSDTotal.WithLabelValues(name).Add(result.Cost)
			telemetry.CBState.WithLabelValues(name).Set(circuitGauge(b))
			if req.UserID != "" {
				r.Store.AddUserSpend(req.UserID, result.Cost)
			}
			return state.ChatResponse{
				ProviderUsed: name,
				Content:      result.Content,
				LatencyMs:    result.LatencyMs,
				Cost:         result.Cost,
			}, nil
		}

		if providers.IsRateLimited(err) {
			if isProbe {
				b.OnRateLimited()
			}
			r.Store.BumpMetrics(name, state.RateLimited, 0, 0)
			telemetry.RequestsTotal.WithLabelValues(name, "rate_limited").Inc()
			telemetry.ErrorsTotal.WithLabelValues(name, "rate_limited").Inc()
			log.Debug().Str("provider", name).Err(err).Msg("provider reported rate limit, trying next candidate")
			continue
		}

		b.OnFailure()
		r.Store.BumpMetrics(name, state.Failure, 0, 0)
		telemetry.RequestsTotal.WithLabelValues(name, "failure").Inc()
		telemetry.ErrorsTotal.WithLabelValues(name, "provider_failure").Inc()
		telemetry.CBState.WithLabelValues(name).Set(circuitGauge(b))
		log.Warn().Str("provider", name).Err(err).Msg("provider call failed")

		if ctx.Err() != nil {
			// The caller's own context was cancelled (client disconnect);
			// stop the fallback loop without trying further candidates.
			break
		}
	}

	return state.ChatResponse{}, &NoProvidersAvailable{Attempted: attempted}
}

func (r *Router) timeoutFor(prefs state.RequestPreferences) time.Duration {
	if prefs.TimeoutMs != nil && *prefs.TimeoutMs > 0 {
		return time.Duration(*prefs.TimeoutMs) * time.Millisecond
	}
	if r.DefaultTimeout > 0 {
		return r.DefaultTimeout
	}
	return DefaultTimeout
}

// circuitGauge mirrors the breaker's state into the 0/1/2 convention the
// reference server's CBStateValue used (open/half/closed).
func circuitGauge(b *breaker.Breaker) float64 {
	switch b.Snapshot().Status {
	case breaker.Open:
		return 0
	case breaker.HalfOpen:
		return 1
	default:
		return 2
	}
}

func validate(req state.ChatRequest) error {
	if req.Prompt == "" {
		return &ValidationError{Reason: "prompt must not be empty"}
	}
	if req.Preferences != nil {
		p := req.Preferences
		switch p.Priority {
		case "", state.PriorityCost, state.PrioritySpeed, state.PriorityQuality:
		default:
			return &ValidationError{Reason: "priority must be one of cost, speed, quality"}
		}
		if p.MaxCostPerRequest != nil && *p.MaxCostPerRequest <= 0 {
			return &ValidationError{Reason: "max_cost_per_request must be positive"}
		}
		if p.TimeoutMs != nil && *p.TimeoutMs <= 0 {
			return &ValidationError{Reason: "timeout_ms must be positive"}
		}
	}
	return nil
}
