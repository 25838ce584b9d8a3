// Package providers implements the ProviderClient contract (§6): given a
// prompt and an optional deadline, talk to one backend and return content,
// latency, and cost, or an error classified as RateLimited or Other. There
// is no retry inside a client — fallback across providers is the Router's
// job, not this package's.
package providers

import (
	"context"
	"errors"
)

// Result is what a successful call returns.
type Result struct {
	Content   string
	LatencyMs int64
	Cost      float64
}

// ErrKind classifies a failed call the way the Router needs to react to it.
type ErrKind int

const (
	Other ErrKind = iota
	RateLimited
)

// Error wraps a backend failure with its classification.
type Error struct {
	Kind ErrKind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func RateLimitedError(err error) error { return &Error{Kind: RateLimited, Err: err} }
func OtherError(err error) error       { return &Error{Kind: Other, Err: err} }

// IsRateLimited reports whether err (or anything it wraps) is a classified
// RateLimited provider error.
func IsRateLimited(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == RateLimited
	}
	return false
}

// Client is the abstract backend the Router invokes. ctx carries the
// request's deadline; model is the backend-specific model identifier from
// the provider's ProviderSpec.
type Client interface {
	Chat(ctx context.Context, prompt, model string) (Result, error)
}

// Registry maps a provider name to the Client that serves it.
type Registry map[string]Client
