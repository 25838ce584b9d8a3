// Package selection turns the static provider catalog plus live health and
// rate-limit state into an ordered list of candidates for one request:
// classify, filter, score, specialty-boost, sort.
package selection

import (
	"sort"

	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/classify"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/cost"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/state"
)

const (
	costSpeedSpecialtyBoost = 0.9
	qualitySpecialtyBoost   = 1.1
)

// Candidate is one surviving, ordered provider for this request. Breaker
// admissibility is only a peek at selection time (§4.6 step 2); the Router
// claims the actual HALF_OPEN probe slot, if any, immediately before
// invocation.
type Candidate struct {
	Spec          state.ProviderSpec
	EstimatedCost float64
	Score         float64
}

// Select runs the full §4.6 pipeline against store's current state.
func Select(store *state.Store, estimator *cost.Estimator, kw classify.Keywords, prompt string, prefs state.RequestPreferences) ([]Candidate, classify.Label) {
	label := classify.Classify(prompt, kw)
	priority := prefs.Priority
	if priority == "" {
		priority = state.PriorityCost
	}

	var candidates []Candidate
	for _, spec := range store.Providers() {
		if store.IsManualDown(spec.Name) {
			continue
		}

		estimatedCost := estimator.Estimate(prompt, spec.Model, spec.CostPerToken)
		if prefs.MaxCostPerRequest != nil && estimatedCost > *prefs.MaxCostPerRequest {
			continue
		}

		// The rate-limit pre-filter from §4.6 step 2 is deliberately not
		// applied here: its own closing note says actual window
		// consumption happens at invocation to avoid a TOCTOU, and
		// deferring the check entirely to the Router (§4.7 step 3a) is
		// what makes the worked "fallback on rate-limit" example (§8
		// scenario 6) produce a recorded rate_limited outcome rather than
		// silently dropping the candidate before the Router ever sees it.

		b, ok := store.Breaker(spec.Name)
		if !ok || !b.WouldAdmit() {
			continue
		}

		score := baseScore(spec, priority, estimatedCost)
		if spec.HasSpecialty(string(label)) {
			score *= boostFor(priority)
		}

		candidates = append(candidates, Candidate{
			Spec:          spec,
			EstimatedCost: estimatedCost,
			Score:         score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score < candidates[j].Score
	})

	return candidates, label
}

func baseScore(spec state.ProviderSpec, priority state.Priority, estimatedCost float64) float64 {
	switch priority {
	case state.PrioritySpeed:
		return spec.LatencyMs
	case state.PriorityQuality:
		return -spec.QualityScore
	default: // cost
		return estimatedCost
	}
}

func boostFor(priority state.Priority) float64 {
	if priority == state.PriorityQuality {
		return qualitySpecialtyBoost
	}
	return costSpeedSpecialtyBoost
}
