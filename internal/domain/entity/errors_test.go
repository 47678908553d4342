package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "missing provider",
			field:    "provider",
			message:  "is required",
			expected: "validation error on field 'provider': is required",
		},
		{
			name:     "bad url parameter",
			field:    "parameters.url",
			message:  "URL must use http or https scheme",
			expected: "validation error on field 'parameters.url': URL must use http or https scheme",
		},
		{
			name:     "empty message",
			field:    "events",
			message:  "",
			expected: "validation error on field 'events': ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ValidationError{Field: tt.field, Message: tt.message}
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("create addon: %w", &ValidationError{Field: "events", Message: "is required"})

	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.False(t, errors.Is(err, ErrNotFound))

	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "events", validationErr.Field)
}

func TestSentinelErrors_ErrorMessages(t *testing.T) {
	assert.Equal(t, "entity not found", ErrNotFound.Error())
	assert.Equal(t, "invalid input", ErrInvalidInput.Error())
	assert.Equal(t, "validation failed", ErrValidationFailed.Error())
}
