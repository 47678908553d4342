// Package addon dispatches flag-change events to configured addons and
// manages addon configurations.
package addon

import (
	"errors"

	"flaghook/internal/domain/entity"
)

// Sentinel errors for addon use case operations. Every input error also
// matches entity.ErrValidationFailed.
var (
	// ErrAddonNotFound indicates that no addon config has the requested id.
	ErrAddonNotFound = errors.New("addon not found")

	// ErrNoProvider indicates that the input did not name a provider.
	ErrNoProvider = errors.New("no addon provider supplied")

	// ErrUnknownProvider indicates that the provider is not registered.
	ErrUnknownProvider = errors.New("unknown addon provider")

	// ErrMissingParameters indicates that required provider parameters are
	// absent or empty.
	ErrMissingParameters = errors.New("missing required parameters")

	// ErrDeprecatedProvider indicates that new configs of the provider are
	// no longer accepted.
	ErrDeprecatedProvider = errors.New("addon provider is deprecated")

	// ErrUnsupportedEvent indicates that a config subscribes to an event the
	// provider does not handle.
	ErrUnsupportedEvent = errors.New("event type not supported by provider")
)

// inputError carries a client-facing message while matching both its kind
// and entity.ErrValidationFailed.
type inputError struct {
	kind    error
	message string
}

func (e *inputError) Error() string { return e.message }

func (e *inputError) Unwrap() []error {
	return []error{e.kind, entity.ErrValidationFailed}
}

func newInputError(kind error, message string) error {
	return &inputError{kind: kind, message: message}
}
