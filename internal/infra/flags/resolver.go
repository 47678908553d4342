// Package flags answers operational feature-flag questions for this service,
// such as whether webhook destination hosts are logged.
package flags

import (
	"strings"
	"sync"

	"flaghook/internal/pkg/config"
)

// WebhookDomainLogging logs the destination host of every webhook delivery.
const WebhookDomainLogging = "webhookDomainLogging"

// Resolver reports whether a named flag is on.
type Resolver interface {
	IsEnabled(key string) bool
}

// Static is a fixed set of enabled flags.
type Static struct {
	mu      sync.RWMutex
	enabled map[string]bool
}

// NewStatic returns a resolver with the given flags turned on.
func NewStatic(keys ...string) *Static {
	s := &Static{enabled: make(map[string]bool, len(keys))}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k != "" {
			s.enabled[k] = true
		}
	}
	return s
}

// FromEnv reads the comma-separated FEATURE_FLAGS variable.
func FromEnv() *Static {
	return NewStatic(config.StringList("FEATURE_FLAGS", nil)...)
}

func (s *Static) IsEnabled(key string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled[key]
}

// Set toggles a flag at runtime.
func (s *Static) Set(key string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.enabled[key] = true
		return
	}
	delete(s.enabled, key)
}
