package addon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"flaghook/internal/domain/entity"
)

const defaultDatadogURL = "https://api.datadoghq.com/api/v1/events"

// Datadog posts events to the Datadog Events API.
type Datadog struct {
	*Base
}

func NewDatadog(deps Dependencies) (*Datadog, error) {
	base, err := NewBase(DatadogDefinition(), deps)
	if err != nil {
		return nil, err
	}
	return &Datadog{Base: base}, nil
}

// DatadogEvent is the Events API request body.
type DatadogEvent struct {
	Text           string   `json:"text"`
	Title          string   `json:"title"`
	Tags           []string `json:"tags,omitempty"`
	SourceTypeName string   `json:"source_type_name,omitempty"`
}

func datadogTags(event entity.Event) []string {
	if len(event.Tags) == 0 {
		return nil
	}
	tags := make([]string, 0, len(event.Tags))
	for _, t := range event.Tags {
		tags = append(tags, t.Type+":"+t.Value)
	}
	return tags
}

func (d *Datadog) HandleEvent(ctx context.Context, event entity.Event, parameters map[string]string, integrationID int64) error {
	target := param(parameters, "url", defaultDatadogURL)

	text := fmt.Sprintf("%%%%%% \n %s \n %%%%%% ", d.formatter.Format(event, LinkStyleMarkdown))
	if tmpl := parameters["bodyTemplate"]; len(tmpl) > 1 {
		rendered, err := renderTemplate(d.formatter, event, tmpl)
		if err != nil {
			d.deliverer.RegisterEvent(ctx, entity.DeliveryOutcome{
				IntegrationID: integrationID,
				State:         entity.DeliveryFailed,
				StateDetails:  fmt.Sprintf("Datadog body template could not be rendered: %v", err),
				Event:         event,
				Details:       map[string]any{"url": target},
			})
			return fmt.Errorf("render datadog body: %w", err)
		}
		text = rendered
	}

	body := DatadogEvent{
		Text:           text,
		Title:          "Unleash notification update",
		Tags:           datadogTags(event),
		SourceTypeName: parameters["sourceTypeName"],
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal datadog event: %w", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"DD-API-KEY":   parameters["apiKey"],
	}
	headers = mergeHeaders(headers, d.customHeaders(parameters["customHeaders"]))

	res := d.deliverer.FetchRetry(ctx, target, RequestOptions{
		Method:        http.MethodPost,
		Headers:       headers,
		Body:          payload,
		IntegrationID: integrationID,
	}, RetryPolicy{})

	details := fmt.Sprintf("Datadog Events API request was successful with status code: %d.", res.Status)
	if !res.OK {
		details = fmt.Sprintf("Datadog Events API request failed with status code: %d.", res.Status)
	}
	d.deliverer.RegisterEvent(ctx, entity.DeliveryOutcome{
		IntegrationID: integrationID,
		State:         stateOf(res),
		StateDetails:  details,
		Event:         event,
		Details:       map[string]any{"url": target, "body": body},
	})
	return nil
}
