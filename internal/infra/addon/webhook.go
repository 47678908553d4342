package addon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"flaghook/internal/domain/entity"
	"flaghook/internal/infra/flags"

	"github.com/cbroglie/mustache"
)

// Webhook posts every event to an arbitrary HTTP endpoint.
type Webhook struct {
	*Base
}

func NewWebhook(deps Dependencies) (*Webhook, error) {
	base, err := NewBase(WebhookDefinition(), deps)
	if err != nil {
		return nil, err
	}
	return &Webhook{Base: base}, nil
}

func (w *Webhook) HandleEvent(ctx context.Context, event entity.Event, parameters map[string]string, integrationID int64) error {
	target := parameters["url"]
	contentType := param(parameters, "contentType", "application/json")

	body, err := w.renderBody(event, parameters["bodyTemplate"])
	if err != nil {
		w.deliverer.RegisterEvent(ctx, entity.DeliveryOutcome{
			IntegrationID: integrationID,
			State:         entity.DeliveryFailed,
			StateDetails:  fmt.Sprintf("Webhook body template could not be rendered: %v", err),
			Event:         event,
			Details:       map[string]any{"url": target, "contentType": contentType},
		})
		return fmt.Errorf("render webhook body: %w", err)
	}

	headers := map[string]string{"Content-Type": contentType}
	if auth := parameters["authorization"]; auth != "" {
		headers["Authorization"] = auth
	}
	headers = mergeHeaders(headers, w.customHeaders(parameters["customHeaders"]))

	if w.flags.IsEnabled(flags.WebhookDomainLogging) {
		if u, perr := url.Parse(target); perr == nil {
			w.logger.Info("webhook delivery", slog.String("domain", u.Host))
		}
	}

	res := w.deliverer.FetchRetry(ctx, target, RequestOptions{
		Method:        http.MethodPost,
		Headers:       headers,
		Body:          []byte(body),
		IntegrationID: integrationID,
	}, RetryPolicy{})

	details := fmt.Sprintf("Webhook request was successful with status code: %d.", res.Status)
	if !res.OK {
		details = fmt.Sprintf("Webhook request failed with status code: %d.", res.Status)
	}
	w.deliverer.RegisterEvent(ctx, entity.DeliveryOutcome{
		IntegrationID: integrationID,
		State:         stateOf(res),
		StateDetails:  details,
		Event:         event,
		Details: map[string]any{
			"url":         target,
			"contentType": contentType,
			"body":        body,
		},
	})
	return nil
}

// renderBody renders bodyTemplate, or returns the event JSON when no
// template is set.
func (w *Webhook) renderBody(event entity.Event, template string) (string, error) {
	if len(template) <= 1 {
		eventJSON, err := json.Marshal(event)
		if err != nil {
			return "", err
		}
		return string(eventJSON), nil
	}
	return renderTemplate(w.formatter, event, template)
}

// renderTemplate renders a mustache body template. The view exposes the
// event under its JSON field names, the event as a JSON string literal
// (eventJson) and the markdown message (eventMarkdown).
func renderTemplate(f *Formatter, event entity.Event, template string) (string, error) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	var view map[string]any
	if err := json.Unmarshal(eventJSON, &view); err != nil {
		return "", err
	}
	quoted, err := json.Marshal(string(eventJSON))
	if err != nil {
		return "", err
	}
	return mustache.Render(template, map[string]any{
		"event":         view,
		"eventJson":     string(quoted),
		"eventMarkdown": f.Format(event, LinkStyleMarkdown),
	})
}

// stateOf classifies a delivery result. Rejections by the local rate
// limiter or breaker are worth retrying later.
func stateOf(res *DeliveryResult) entity.DeliveryState {
	switch {
	case res.OK:
		return entity.DeliverySuccess
	case res.Code == CodeCircuitOpen || res.Code == CodeRateLimited:
		return entity.DeliveryFailedRetryable
	default:
		return entity.DeliveryFailed
	}
}
