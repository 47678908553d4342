package addon

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"flaghook/internal/config"
	"flaghook/internal/domain/entity"
	"flaghook/internal/infra/flags"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWebhook(t *testing.T, registrar Registrar) *Webhook {
	t.Helper()
	w, err := NewWebhook(testDeps(registrar))
	require.NoError(t, err)
	return w
}

func TestWebhook_HandleEvent(t *testing.T) {
	t.Run("TC-1: posts the event JSON without a bodyTemplate", func(t *testing.T) {
		// Arrange
		srv := newRecordingServer(t, http.StatusOK)
		registrar := &recordingRegistrar{}
		w := newTestWebhook(t, registrar)
		event := sampleEvent()

		// Act
		err := w.HandleEvent(context.Background(), event, map[string]string{"url": srv.URL}, 1)

		// Assert
		require.NoError(t, err)
		reqs := srv.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodPost, reqs[0].Method)
		assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
		want, _ := json.Marshal(event)
		assert.JSONEq(t, string(want), string(reqs[0].Body))
	})

	t.Run("TC-2: renders the mustache bodyTemplate", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK)
		w := newTestWebhook(t, &recordingRegistrar{})

		err := w.HandleEvent(context.Background(), sampleEvent(), map[string]string{
			"url":          srv.URL,
			"bodyTemplate": "{{event.type}} on toggle {{event.data.name}}",
			"contentType":  "text/plain",
		}, 1)

		require.NoError(t, err)
		reqs := srv.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, "text/plain", reqs[0].Header.Get("Content-Type"))
		assert.Equal(t, "feature-created on toggle some-toggle", string(reqs[0].Body))
	})

	t.Run("TC-3: eventJson embeds the event as a JSON string", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK)
		w := newTestWebhook(t, &recordingRegistrar{})
		event := sampleEvent()

		err := w.HandleEvent(context.Background(), event, map[string]string{
			"url":          srv.URL,
			"bodyTemplate": "{\n  \"json\": {{{eventJson}}},\n  \"markdown\": \"{{eventMarkdown}}\"\n}",
		}, 1)

		require.NoError(t, err)
		var body struct {
			JSON     string `json:"json"`
			Markdown string `json:"markdown"`
		}
		require.NoError(t, json.Unmarshal(srv.Requests()[0].Body, &body))
		want, _ := json.Marshal(event)
		assert.JSONEq(t, string(want), body.JSON)
		assert.Contains(t, body.Markdown, "some@user.com created feature toggle")
	})

	t.Run("TC-4: sends authorization and custom headers", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK)
		registrar := &recordingRegistrar{}
		w := newTestWebhook(t, registrar)
		event := sampleEvent()
		params := map[string]string{
			"url":           srv.URL,
			"bodyTemplate":  "{{event.type}} on toggle {{event.data.name}}",
			"contentType":   "text/plain",
			"authorization": "API KEY 123abc",
			"customHeaders": `{ "MY_CUSTOM_HEADER": "MY_CUSTOM_VALUE" }`,
		}

		err := w.HandleEvent(context.Background(), event, params, 7)

		require.NoError(t, err)
		req := srv.Requests()[0]
		assert.Equal(t, "API KEY 123abc", req.Header.Get("Authorization"))
		assert.Equal(t, "MY_CUSTOM_VALUE", req.Header.Get("MY_CUSTOM_HEADER"))
		assert.Equal(t, entity.DeliveryOutcome{
			IntegrationID: 7,
			State:         entity.DeliverySuccess,
			StateDetails:  "Webhook request was successful with status code: 200.",
			Event:         event,
			Details: map[string]any{
				"url":         srv.URL,
				"contentType": "text/plain",
				"body":        "feature-created on toggle some-toggle",
			},
		}, registrar.last(t))
	})

	t.Run("TC-5: malformed custom headers are ignored", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK)
		w := newTestWebhook(t, &recordingRegistrar{})

		err := w.HandleEvent(context.Background(), sampleEvent(), map[string]string{
			"url":           srv.URL,
			"customHeaders": "{not json",
		}, 1)

		require.NoError(t, err)
		assert.Len(t, srv.Requests(), 1)
	})

	t.Run("TC-6: records a failed delivery", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusBadRequest)
		registrar := &recordingRegistrar{}
		w := newTestWebhook(t, registrar)

		err := w.HandleEvent(context.Background(), sampleEvent(), map[string]string{"url": srv.URL}, 3)

		require.NoError(t, err)
		outcome := registrar.last(t)
		assert.Equal(t, entity.DeliveryFailed, outcome.State)
		assert.Equal(t, "Webhook request failed with status code: 400.", outcome.StateDetails)
	})

	t.Run("TC-7: domain logging flag does not change the request", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK)
		deps := testDeps(&recordingRegistrar{})
		deps.Flags = flags.NewStatic(flags.WebhookDomainLogging)
		w, err := NewWebhook(deps)
		require.NoError(t, err)

		require.NoError(t, w.HandleEvent(context.Background(), sampleEvent(), map[string]string{"url": srv.URL}, 1))

		assert.Len(t, srv.Requests(), 1)
	})
}

func TestWebhook_DefaultPolicyIsolatesFailingConfigs(t *testing.T) {
	// Arrange: production policies with only the backoff shortened
	broken := newRecordingServer(t, http.StatusInternalServerError)
	healthy := newRecordingServer(t, http.StatusOK)
	registrar := &recordingRegistrar{}
	deps := testDeps(registrar)
	deps.Policies = config.DefaultPolicyFile()
	deps.Policies.Default.Backoff = time.Millisecond
	require.True(t, deps.Policies.For("webhook").CircuitBreaker)
	w, err := NewWebhook(deps)
	require.NoError(t, err)

	// Act: trip the breaker of config 1, then deliver to config 2
	for i := 0; i < 11; i++ {
		require.NoError(t, w.HandleEvent(context.Background(), sampleEvent(), map[string]string{"url": broken.URL}, 1))
	}
	tripped := registrar.last(t)
	err = w.HandleEvent(context.Background(), sampleEvent(), map[string]string{"url": healthy.URL}, 2)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.DeliveryFailedRetryable, tripped.State)
	assert.Len(t, healthy.Requests(), 1)
	outcome := registrar.last(t)
	assert.Equal(t, int64(2), outcome.IntegrationID)
	assert.Equal(t, entity.DeliverySuccess, outcome.State)
	h := w.Deliverer().Health()
	assert.Equal(t, 2, h.Destinations)
	assert.Equal(t, 1, h.OpenCircuits)
	assert.Equal(t, "open", h.CircuitState)
}

func TestNewBase_RejectsInvalidDefinition(t *testing.T) {
	def := WebhookDefinition()
	def.DocumentationURL = "not a url"

	_, err := NewBase(def, testDeps(nil))

	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestNewBase_RejectsParameterWithoutType(t *testing.T) {
	def := WebhookDefinition()
	def.Parameters = append(def.Parameters, entity.ParameterDefinition{Name: "x", DisplayName: "X"})

	_, err := NewBase(def, testDeps(nil))

	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestDefinitions_AreValid(t *testing.T) {
	for _, def := range Definitions() {
		t.Run(def.Name, func(t *testing.T) {
			_, err := NewBase(def, testDeps(nil))
			assert.NoError(t, err)
		})
	}
}
