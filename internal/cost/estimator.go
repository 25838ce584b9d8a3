// Package cost estimates a request's cost for a given provider: a token
// count multiplied by that provider's per-token price. Token counting
// prefers a real tokenizer and falls back to a character-based estimate
// when one isn't available for the model.
package cost

import (
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Estimator counts tokens and turns them into an estimated USD cost.
// Encoders are cached because constructing one is non-trivial (BPE merge
// table load); this mirrors the reference pack's token counter.
type Estimator struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

func NewEstimator() *Estimator {
	return &Estimator{encoders: make(map[string]*tiktoken.Tiktoken)}
}

// EstimateTokens returns the token count for prompt under model, using
// tiktoken when an encoding can be resolved, and ceil(len(prompt)/4)
// otherwise — the two formulas spec.md's open question allows, applied
// consistently by preferring the tokenizer first.
func (e *Estimator) EstimateTokens(prompt, model string) int {
	if prompt == "" {
		return 0
	}
	if enc, ok := e.encoderFor(model); ok {
		return len(enc.Encode(prompt, nil, nil))
	}
	return charFallback(prompt)
}

// Estimate computes token_count(prompt) * costPerToken for provider model.
func (e *Estimator) Estimate(prompt, model string, costPerToken float64) float64 {
	return float64(e.EstimateTokens(prompt, model)) * costPerToken
}

func charFallback(prompt string) int {
	n := utf8.RuneCountInString(prompt)
	return int(math.Ceil(float64(n) / 4.0))
}

func (e *Estimator) encoderFor(model string) (*tiktoken.Tiktoken, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if enc, ok := e.encoders[model]; ok {
		return enc, true
	}

	encodingName := encodingNameFor(model)
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		enc, err = tiktoken.EncodingForModel(model)
		if err != nil {
			return nil, false
		}
	}
	e.encoders[model] = enc
	return enc, true
}

func encodingNameFor(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "gpt-4o"):
		return "o200k_base"
	case strings.Contains(m, "davinci"), strings.Contains(m, "curie"):
		return "p50k_base"
	default:
		return "cl100k_base"
	}
}
