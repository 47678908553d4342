package addon

import (
	"context"
	"errors"
	"testing"

	"flaghook/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAddon struct{ name string }

func (s stubAddon) Name() string { return s.name }

func (s stubAddon) Definition() entity.AddonDefinition {
	return entity.AddonDefinition{Name: s.name, DisplayName: s.name}
}

func (s stubAddon) HandleEvent(context.Context, entity.Event, map[string]string, int64) error {
	return nil
}

func TestNewRegistry(t *testing.T) {
	// Arrange / Act
	r, err := NewRegistry(testDeps(nil))
	require.NoError(t, err)
	t.Cleanup(r.Close)

	// Assert
	assert.Equal(t, []string{"datadog", "slack", "slack-app", "teams", "webhook"}, r.Names())

	defs := r.Definitions()
	require.Len(t, defs, 5)
	assert.Equal(t, "datadog", defs[0].Name)
	assert.Equal(t, "webhook", defs[4].Name)

	a, ok := r.Get(WebhookProvider)
	require.True(t, ok)
	assert.IsType(t, &Webhook{}, a)

	_, ok = r.Get("unknown")
	assert.False(t, ok)

	health := r.Health()
	require.Len(t, health, 5)
	for _, h := range health {
		assert.Equal(t, "disabled", h.CircuitState, h.Provider)
	}
}

func TestNewRegistryOf_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistryOf(stubAddon{name: "a"}, stubAddon{name: "a"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDefinition))
}

func TestRegistry_HealthSkipsAddonsWithoutReporter(t *testing.T) {
	r, err := NewRegistryOf(stubAddon{name: "stub"})
	require.NoError(t, err)

	assert.Empty(t, r.Health())
	assert.NotPanics(t, r.Close)
}
