package jobs

import (
	"fmt"
	"sort"
	"time"
)

// Registry is the static mapping from job type to delivery configuration.
// It is populated once at startup and immutable afterwards, so reads are
// safe from any goroutine without locking. It is injected into the
// dispatcher and the worker wrapper rather than accessed as a global.
type Registry struct {
	configs map[JobType]JobConfig
}

// NewRegistry builds a registry from the given configs. Duplicate types,
// empty endpoints, negative retry counts, and non-positive timeouts are
// configuration errors and rejected here, at startup, rather than at
// dispatch time.
func NewRegistry(configs ...JobConfig) (*Registry, error) {
	m := make(map[JobType]JobConfig, len(configs))
	for _, cfg := range configs {
		if cfg.Type == "" {
			return nil, fmt.Errorf("jobs: registry config with empty type")
		}
		if _, ok := m[cfg.Type]; ok {
			return nil, fmt.Errorf("jobs: duplicate registry config for type %q", cfg.Type)
		}
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("jobs: registry config for %q has no endpoint", cfg.Type)
		}
		if cfg.Retries < 0 {
			return nil, fmt.Errorf("jobs: registry config for %q has negative retries", cfg.Type)
		}
		if cfg.Timeout <= 0 {
			return nil, fmt.Errorf("jobs: registry config for %q has non-positive timeout", cfg.Type)
		}
		m[cfg.Type] = cfg
	}
	return &Registry{configs: m}, nil
}

// Config returns the configuration for the given type. Lookup of an
// unregistered type wraps ErrUnregisteredType.
func (r *Registry) Config(t JobType) (JobConfig, error) {
	cfg, ok := r.configs[t]
	if !ok {
		return JobConfig{}, fmt.Errorf("%w: %q", ErrUnregisteredType, t)
	}
	return cfg, nil
}

// Types returns all registered job types, sorted for deterministic wiring.
func (r *Registry) Types() []JobType {
	types := make([]JobType, 0, len(r.configs))
	for t := range r.configs {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// DefaultConfigs is the production registry table. One entry per JobType.
func DefaultConfigs() []JobConfig {
	return []JobConfig{
		{
			Type:        TypeSendEmail,
			Endpoint:    "/jobs/send-email",
			Retries:     3,
			Timeout:     30 * time.Second,
			Description: "Deliver a transactional email through the configured mailer",
		},
		{
			Type:        TypeProcessWebhook,
			Endpoint:    "/jobs/process-webhook",
			Retries:     5,
			Timeout:     60 * time.Second,
			Description: "Process an inbound billing provider event",
		},
		{
			Type:        TypeGenerateReport,
			Endpoint:    "/jobs/generate-report",
			Retries:     2,
			Timeout:     5 * time.Minute,
			Description: "Build a usage report for an organization",
		},
	}
}
