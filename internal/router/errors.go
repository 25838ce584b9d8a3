package router

// ValidationError means the inbound request was malformed (surfaced as 400).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// BudgetExceeded means the user is already over the spend cap (surfaced as
// 402). No provider is ever called and no state is mutated when this is
// returned.
type BudgetExceeded struct {
	UserID string
	Spend  float64
}

func (e *BudgetExceeded) Error() string { return "budget exceeded for user " + e.UserID }

// NoProvidersAvailable means selection produced no candidates, or every
// candidate was tried and none succeeded (surfaced as 503).
type NoProvidersAvailable struct {
	Attempted int
}

func (e *NoProvidersAvailable) Error() string {
	if e.Attempted == 0 {
		return "no providers available: selection was empty"
	}
	return "no providers available: all candidates failed"
}
