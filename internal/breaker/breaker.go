// Package breaker implements the per-provider circuit breaker state
// machine: CLOSED / OPEN / HALF_OPEN, tripped by consecutive failures and
// recovered by a single probe once the reset window has elapsed.
package breaker

import (
	"sync"
	"time"

	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/clock"
)

// State is the externally observable status of a breaker.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

const (
	FailureThreshold = 3
	ResetSeconds     = 60
)

// Snapshot is a point-in-time, lock-free copy of a breaker's fields.
type Snapshot struct {
	Status              State
	ConsecutiveFailures int
	OpenedAt            time.Time
	HalfOpenInFlight    bool
}

// Breaker tracks health for a single provider. All methods are safe for
// concurrent use; a single mutex protects this provider's fields only (the
// State Store shards one Breaker per provider name).
type Breaker struct {
	mu sync.Mutex
	clk clock.Clock

	status              State
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    bool
}

func New(clk clock.Clock) *Breaker {
	return &Breaker{clk: clk, status: Closed}
}

// Admit evaluates the breaker at the current time and reports whether a
// caller may proceed. When it returns (true, true) the caller has won the
// single HALF_OPEN probe slot and MUST report the outcome via OnSuccess or
// OnFailure/OnRateLimited exactly once.
func (b *Breaker) Admit() (admitted bool, isProbe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.status {
	case Closed:
		return true, false
	case HalfOpen:
		// Another caller holds the probe; status stays HalfOpen until that
		// probe resolves, so every other caller is refused meanwhile.
		return false, false
	case Open:
		if b.clk.Now().Sub(b.openedAt) >= ResetSeconds*time.Second && !b.halfOpenInFlight {
			b.halfOpenInFlight = true
			b.status = HalfOpen
			return true, true
		}
		return false, false
	default:
		return false, false
	}
}

// WouldAdmit peeks at admissibility without claiming the HALF_OPEN probe
// slot. Selection (§4.6 step 2) uses this to filter candidates; the actual
// claim happens via Admit, called by the Router immediately before
// invocation, mirroring how rate-limit window consumption is deferred to
// avoid a TOCTOU between filtering and invoking (§4.6 closing note). This
// also avoids stranding a claimed probe on a candidate the router never
// reaches because an earlier one already succeeded.
func (b *Breaker) WouldAdmit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.status {
	case Closed:
		return true
	case Open:
		return b.clk.Now().Sub(b.openedAt) >= ResetSeconds*time.Second && !b.halfOpenInFlight
	default:
		return false
	}
}

// OnSuccess records a successful call.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
	b.status = Closed
	b.openedAt = time.Time{}
	b.halfOpenInFlight = false
}

// OnFailure records a non-rate-limit failure.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasProbe := b.halfOpenInFlight
	b.halfOpenInFlight = false

	if wasProbe {
		// Probe failed: reopen, keep the failure count (already at threshold).
		b.status = Open
		b.openedAt = b.clk.Now()
		return
	}

	b.consecutiveFailures++
	if b.consecutiveFailures >= FailureThreshold {
		b.status = Open
		b.openedAt = b.clk.Now()
	}
}

// OnRateLimited records a rate-limited outcome. Per spec this never touches
// consecutive_failures and never trips or resolves the breaker, except that
// a rate-limited probe must still release the half-open slot as a failed
// probe (treated like any other non-success probe outcome).
func (b *Breaker) OnRateLimited() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.halfOpenInFlight {
		b.halfOpenInFlight = false
		b.status = Open
		b.openedAt = b.clk.Now()
		return
	}
	// Not a probe: no state change.
}

// Snapshot returns a copy of the breaker's fields for metrics reporting. It
// never mutates state and is not used for admission decisions.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Status:              b.status,
		ConsecutiveFailures: b.consecutiveFailures,
		OpenedAt:            b.openedAt,
		HalfOpenInFlight:    b.halfOpenInFlight,
	}
}
