package services

import (
	"catgraph/domain/config"
)

// DomainConfigSource yields the domain configuration in effect right now.
// Implementations may refresh the value at runtime; callers treat the
// returned config as read-only and re-fetch it per operation instead of
// holding on to it.
type DomainConfigSource interface {
	Current() *config.DomainConfig
}

// StaticDomainConfig is a DomainConfigSource that never changes. The CLI
// and tests use it; the API server wires a file-watching source instead.
type StaticDomainConfig struct {
	Cfg *config.DomainConfig
}

// Current returns the wrapped configuration
func (s StaticDomainConfig) Current() *config.DomainConfig {
	if s.Cfg == nil {
		return config.DefaultDomainConfig()
	}
	return s.Cfg
}
