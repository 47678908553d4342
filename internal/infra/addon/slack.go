package addon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"flaghook/internal/domain/entity"

	"golang.org/x/sync/errgroup"
)

const slackTagType = "slack"

// Slack posts to a Slack incoming webhook, once per target channel.
type Slack struct {
	*Base
	formatter *Formatter
}

func NewSlack(deps Dependencies) (*Slack, error) {
	base, err := NewBase(SlackDefinition(), deps)
	if err != nil {
		return nil, err
	}
	return &Slack{Base: base, formatter: base.formatter.WithLegacyLinkText()}, nil
}

// SlackWebhookPayload is the JSON body sent to an incoming webhook.
type SlackWebhookPayload struct {
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji"`
	Text        string            `json:"text"`
	Channel     string            `json:"channel"`
	Attachments []SlackAttachment `json:"attachments"`
}

type SlackAttachment struct {
	Actions []SlackAction `json:"actions"`
}

type SlackAction struct {
	Name  string `json:"name"`
	Text  string `json:"text"`
	Type  string `json:"type"`
	Value string `json:"value"`
	Style string `json:"style"`
	URL   string `json:"url"`
}

func openFeatureAction(url string) SlackAction {
	return SlackAction{
		Name:  "featureToggle",
		Text:  "Open in Unleash",
		Type:  "button",
		Value: "featureToggle",
		Style: "primary",
		URL:   url,
	}
}

// slackChannels returns the event's slack tags, or the default channel.
func slackChannels(event entity.Event, defaultChannel string) []string {
	if tagged := event.TagValues(slackTagType); len(tagged) > 0 {
		return tagged
	}
	if defaultChannel == "" {
		return nil
	}
	return []string{defaultChannel}
}

func (s *Slack) HandleEvent(ctx context.Context, event entity.Event, parameters map[string]string, integrationID int64) error {
	target := parameters["url"]
	channels := slackChannels(event, parameters["defaultChannel"])
	text := s.formatter.Format(event, LinkStyleSlack)
	featureLink := s.formatter.FeatureLink(event)

	headers := mergeHeaders(map[string]string{"Content-Type": "application/json"},
		s.customHeaders(parameters["customHeaders"]))

	results := make([]*DeliveryResult, len(channels))
	var g errgroup.Group
	for i, channel := range channels {
		payload := SlackWebhookPayload{
			Username:    param(parameters, "username", "Unleash"),
			IconEmoji:   param(parameters, "emojiIcon", ":unleash:"),
			Text:        text,
			Channel:     "#" + channel,
			Attachments: []SlackAttachment{{Actions: []SlackAction{openFeatureAction(featureLink)}}},
		}
		g.Go(func() error {
			body, err := json.Marshal(payload)
			if err != nil {
				results[i] = &DeliveryResult{Code: CodeInvalidRequest}
				return nil
			}
			results[i] = s.deliverer.FetchRetry(ctx, target, RequestOptions{
				Method:        http.MethodPost,
				Headers:       headers,
				Body:          body,
				IntegrationID: integrationID,
			}, RetryPolicy{})
			return nil
		})
	}
	_ = g.Wait()

	state, details := summarizeResults(results, "Slack webhook requests")
	s.deliverer.RegisterEvent(ctx, entity.DeliveryOutcome{
		IntegrationID: integrationID,
		State:         state,
		StateDetails:  details,
		Event:         event,
		Details: map[string]any{
			"url":      target,
			"channels": channels,
			"message":  text,
		},
	})
	return nil
}

// summarizeResults folds a fan-out into one outcome.
func summarizeResults(results []*DeliveryResult, what string) (entity.DeliveryState, string) {
	codes := make([]string, 0, len(results))
	failed := 0
	retryable := false
	for _, r := range results {
		codes = append(codes, strconv.Itoa(r.Status))
		if !r.OK {
			failed++
			if stateOf(r) == entity.DeliveryFailedRetryable {
				retryable = true
			}
		}
	}
	joined := strings.Join(codes, ", ")

	switch {
	case failed == 0:
		return entity.DeliverySuccess,
			fmt.Sprintf("All (%d) %s were successful with status codes: %s.", len(results), what, joined)
	case failed == len(results):
		state := entity.DeliveryFailed
		if retryable {
			state = entity.DeliveryFailedRetryable
		}
		return state,
			fmt.Sprintf("All (%d) %s failed with status codes: %s.", len(results), what, joined)
	default:
		return entity.DeliveryFailed,
			fmt.Sprintf("Some (%d of %d) %s failed. Status codes: %s.", failed, len(results), what, joined)
	}
}
