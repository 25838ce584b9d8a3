// Package ratewindow implements a per-provider sliding 60-second request
// window, replacing the token-bucket limiter the reference server used for
// tenant rate limiting.
package ratewindow

import (
	"sync"
	"time"

	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/clock"
)

const Window = 60 * time.Second

// Limiter tracks one sliding window of request timestamps per provider.
type Limiter struct {
	clk   clock.Clock
	limit int

	mu   sync.Mutex
	hits []time.Time
}

func New(clk clock.Clock, rateLimitRPM int) *Limiter {
	return &Limiter{clk: clk, limit: rateLimitRPM}
}

// Admit drops timestamps outside the trailing window, and if the remaining
// count is below the limit, records now and admits the request.
func (l *Limiter) Admit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clk.Now()
	l.dropExpired(now)

	if len(l.hits) < l.limit {
		l.hits = append(l.hits, now)
		return true
	}
	return false
}

// Current reports the number of requests admitted within the trailing
// window as of now. It prunes expired timestamps but never records a new
// request.
func (l *Limiter) Current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropExpired(l.clk.Now())
	return len(l.hits)
}

// WouldAdmit reports whether a request would currently be admitted, without
// consuming a slot. Selection does not call it; the Router consumes the
// window through Admit immediately before invocation.
func (l *Limiter) WouldAdmit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropExpired(l.clk.Now())
	return len(l.hits) < l.limit
}

func (l *Limiter) dropExpired(now time.Time) {
	cutoff := now.Add(-Window)
	i := 0
	for i < len(l.hits) && l.hits[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.hits = append(l.hits[:0], l.hits[i:]...)
	}
}
