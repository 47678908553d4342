package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DeliveryPolicy tunes the outbound behavior of one addon provider.
type DeliveryPolicy struct {
	// MaxRetries is the number of retries after the first request.
	// Negative disables retries; zero keeps the default of 1.
	MaxRetries int `yaml:"max_retries"`

	// Backoff is the delay before the first retry. Zero keeps the default.
	Backoff time.Duration `yaml:"backoff"`

	// RateLimit is the sustained request rate per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`

	// Burst is the token bucket size used with RateLimit.
	Burst int `yaml:"burst"`

	// CircuitBreaker enables a per-provider breaker.
	CircuitBreaker bool `yaml:"circuit_breaker"`
}

// DefaultMaxRetries applies when a policy leaves MaxRetries at zero.
const DefaultMaxRetries = 1

// Retries resolves MaxRetries to the effective retry count.
func (p DeliveryPolicy) Retries() int {
	switch {
	case p.MaxRetries < 0:
		return 0
	case p.MaxRetries == 0:
		return DefaultMaxRetries
	default:
		return p.MaxRetries
	}
}

// PolicyFile is the YAML document loaded from ADDON_POLICY_FILE.
type PolicyFile struct {
	Default   DeliveryPolicy            `yaml:"default"`
	Providers map[string]DeliveryPolicy `yaml:"providers"`
}

// DefaultPolicyFile returns the policies used when no file is configured.
func DefaultPolicyFile() *PolicyFile {
	return &PolicyFile{
		Default:   DeliveryPolicy{CircuitBreaker: true},
		Providers: map[string]DeliveryPolicy{},
	}
}

// LoadPolicyFile loads delivery policies from a YAML file.
// The path parameter is expected to come from a trusted source (environment or hardcoded default).
func LoadPolicyFile(path string) (*PolicyFile, error) {
	// #nosec G304 -- path is provided by the operator, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	file := DefaultPolicyFile()
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := validatePolicyFile(file); err != nil {
		return nil, fmt.Errorf("policy validation failed: %w", err)
	}
	return file, nil
}

func validatePolicyFile(file *PolicyFile) error {
	check := func(name string, p DeliveryPolicy) error {
		if p.RateLimit < 0 {
			return fmt.Errorf("%s: rate_limit must not be negative", name)
		}
		if p.RateLimit > 0 && p.Burst <= 0 {
			return fmt.Errorf("%s: burst must be positive when rate_limit is set", name)
		}
		if p.Backoff < 0 {
			return fmt.Errorf("%s: backoff must not be negative", name)
		}
		return nil
	}
	if err := check("default", file.Default); err != nil {
		return err
	}
	for name, p := range file.Providers {
		if err := check(name, p); err != nil {
			return err
		}
	}
	return nil
}

// For returns the provider's policy, falling back to the default entry.
func (f *PolicyFile) For(provider string) DeliveryPolicy {
	if f == nil {
		return DefaultPolicyFile().Default
	}
	if p, ok := f.Providers[provider]; ok {
		return p
	}
	return f.Default
}
