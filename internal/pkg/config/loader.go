// Package config loads environment configuration with a fail-open policy:
// a value that is missing keeps its default silently, a value that fails to
// parse or validate falls back to its default and produces a warning. Loading
// never fails, so a bad variable cannot keep the worker from starting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadResult is the outcome of loading one variable.
type LoadResult[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

// Parser converts a raw environment value.
type Parser[T any] func(string) (T, error)

// LoadEnv reads envKey, parses it and validates the result. validator may
// be nil.
//
// Warning format:
//
//	"Invalid {envKey}='{value}': {error}, falling back to default '{default}'"
func LoadEnv[T any](envKey string, defaultValue T, parse Parser[T], validator func(T) error) LoadResult[T] {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return LoadResult[T]{Value: defaultValue}
	}

	value, err := parse(raw)
	if err == nil && validator != nil {
		err = validator(value)
	}
	if err != nil {
		return LoadResult[T]{
			Value: defaultValue,
			Warnings: []string{fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'",
				envKey, raw, err, defaultValue)},
			FallbackApplied: true,
		}
	}
	return LoadResult[T]{Value: value}
}

// ParseString accepts any non-empty value.
func ParseString(raw string) (string, error) { return raw, nil }

// ParseInt parses a base-10 integer.
func ParseInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	return n, nil
}

// ParseBool accepts the strconv.ParseBool spellings plus yes/no and on/off.
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("not a boolean")
	}
	return b, nil
}

// ParseDuration parses a Go duration string such as "30s" or "1h30m".
func ParseDuration(raw string) (time.Duration, error) {
	return time.ParseDuration(raw)
}

// LoadEnvString loads a string. Without a validator it never falls back.
func LoadEnvString(envKey, defaultValue string, validator func(string) error) LoadResult[string] {
	return LoadEnv(envKey, defaultValue, ParseString, validator)
}

func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) LoadResult[int] {
	return LoadEnv(envKey, defaultValue, ParseInt, validator)
}

func LoadEnvBool(envKey string, defaultValue bool) LoadResult[bool] {
	return LoadEnv(envKey, defaultValue, ParseBool, nil)
}

func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) LoadResult[time.Duration] {
	return LoadEnv(envKey, defaultValue, ParseDuration, validator)
}

// StringList splits a comma-separated environment value, dropping blank
// entries. It returns defaultValue when the variable is unset or blank.
func StringList(envKey string, defaultValue []string) []string {
	raw := os.Getenv(envKey)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
