// Package state is the thread-safe home for everything the router mutates
// while handling requests: breaker state, rate-limit windows, user spend,
// manual-down flags, and per-provider metrics counters. It is constructed
// once at startup and passed explicitly to every request handler — never
// reached through a package-level global.
package state

// ProviderSpec is the static, load-time description of one backend. It is
// immutable once the Store is built.
type ProviderSpec struct {
	Name         string   `yaml:"name" json:"name"`
	Model        string   `yaml:"model" json:"model"`
	CostPerToken float64  `yaml:"cost_per_token" json:"cost_per_token"`
	LatencyMs    float64  `yaml:"latency_ms" json:"latency_ms"`
	RateLimitRPM int      `yaml:"rate_limit_rpm" json:"rate_limit_rpm"`
	Specialties  []string `yaml:"specialties" json:"specialties"`
	QualityScore float64  `yaml:"quality_score" json:"quality_score"`
}

func (p ProviderSpec) HasSpecialty(label string) bool {
	for _, s := range p.Specialties {
		if s == label {
			return true
		}
	}
	return false
}

// Priority is a requester's preference among cost, speed, and quality.
type Priority string

const (
	PriorityCost    Priority = "cost"
	PrioritySpeed   Priority = "speed"
	PriorityQuality Priority = "quality"
)

// RequestPreferences carries the optional per-request routing knobs.
type RequestPreferences struct {
	Priority          Priority `json:"priority,omitempty"`
	MaxCostPerRequest *float64 `json:"max_cost_per_request,omitempty"`
	TimeoutMs         *int     `json:"timeout_ms,omitempty"`
}

// ChatRequest is the inbound request body for POST /chat/completions.
type ChatRequest struct {
	Prompt      string              `json:"prompt"`
	UserID      string              `json:"user_id,omitempty"`
	Preferences *RequestPreferences `json:"preferences,omitempty"`
}

// ChatResponse is returned to the caller on success.
type ChatResponse struct {
	ProviderUsed string  `json:"provider_used"`
	Content      string  `json:"content"`
	LatencyMs    int64   `json:"latency_ms"`
	Cost         float64 `json:"cost"`
}

// ProviderMetricsView is the derived, read-only view of a provider's
// counters returned by the metrics aggregator (§4.8).
type ProviderMetricsView struct {
	Name          string  `json:"name"`
	Requests      int64   `json:"requests"`
	Success       int64   `json:"success"`
	Failures      int64   `json:"failures"`
	RateLimited   int64   `json:"rate_limited"`
	SuccessRate   float64 `json:"success_rate"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	TotalCost     float64 `json:"total_cost"`
	IsDown        bool    `json:"is_down"`
	CircuitStatus string  `json:"circuit_status"`
}

// GlobalMetricsView is the sum across all providers.
type GlobalMetricsView struct {
	Requests     int64   `json:"requests"`
	Success      int64   `json:"success"`
	Failures     int64   `json:"failures"`
	RateLimited  int64   `json:"rate_limited"`
	TotalCost    float64 `json:"total_cost"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}
