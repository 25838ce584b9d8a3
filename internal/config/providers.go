package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v2"

	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/state"
)

var validSpecialties = map[string]bool{"code": true, "writing": true, "analysis": true}

// providerFile mirrors the on-disk YAML shape; state.ProviderSpec carries
// the yaml tags directly so this is a thin wrapper for the top-level key.
type providerFile struct {
	Providers []state.ProviderSpec `yaml:"providers"`
}

// LoadProviders reads and validates the provider catalog at path.
func LoadProviders(path string) ([]state.ProviderSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	var pf providerFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parse providers file: %w", err)
	}
	for i, p := range pf.Providers {
		if err := validateProvider(p); err != nil {
			return nil, fmt.Errorf("providers[%d] %q: %w", i, p.Name, err)
		}
	}
	return pf.Providers, nil
}

func validateProvider(p state.ProviderSpec) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Model == "" {
		return fmt.Errorf("model is required")
	}
	if p.CostPerToken <= 0 {
		return fmt.Errorf("cost_per_token must be positive")
	}
	if p.LatencyMs <= 0 {
		return fmt.Errorf("latency_ms must be positive")
	}
	if p.RateLimitRPM <= 0 {
		return fmt.Errorf("rate_limit_rpm must be positive")
	}
	if p.QualityScore < 0 || p.QualityScore > 1 {
		return fmt.Errorf("quality_score must be in [0,1]")
	}
	for _, s := range p.Specialties {
		if !validSpecialties[s] {
			return fmt.Errorf("unknown specialty %q", s)
		}
	}
	return nil
}
