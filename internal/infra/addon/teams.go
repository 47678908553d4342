package addon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"flaghook/internal/domain/entity"
)

// Teams posts MessageCards to a Microsoft Teams incoming webhook.
type Teams struct {
	*Base
}

func NewTeams(deps Dependencies) (*Teams, error) {
	base, err := NewBase(TeamsDefinition(), deps)
	if err != nil {
		return nil, err
	}
	return &Teams{Base: base}, nil
}

// TeamsMessageCard is the legacy connector card format.
type TeamsMessageCard struct {
	ThemeColor      string               `json:"themeColor"`
	Summary         string               `json:"summary"`
	Sections        []TeamsSection       `json:"sections"`
	PotentialAction []TeamsOpenURIAction `json:"potentialAction"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle"`
	ActivitySubtitle string      `json:"activitySubtitle"`
	Facts            []TeamsFact `json:"facts"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type TeamsOpenURIAction struct {
	Type    string        `json:"@type"`
	Name    string        `json:"name"`
	Targets []TeamsTarget `json:"targets"`
}

type TeamsTarget struct {
	OS  string `json:"os"`
	URI string `json:"uri"`
}

func (t *Teams) card(event entity.Event) TeamsMessageCard {
	facts := []TeamsFact{
		{Name: "User", Value: event.CreatedBy},
		{Name: "Action", Value: string(event.Type)},
	}
	if enabled, ok := event.Data["enabled"]; ok {
		facts = append(facts, TeamsFact{Name: "Enabled", Value: fmt.Sprint(enabled)})
	}
	return TeamsMessageCard{
		ThemeColor: "0076D7",
		Summary:    "Message",
		Sections: []TeamsSection{{
			ActivityTitle:    t.formatter.Format(event, LinkStyleMarkdown),
			ActivitySubtitle: "Unleash notification update",
			Facts:            facts,
		}},
		PotentialAction: []TeamsOpenURIAction{{
			Type:    "OpenUri",
			Name:    "Go to feature",
			Targets: []TeamsTarget{{OS: "default", URI: t.formatter.FeatureLink(event)}},
		}},
	}
}

func (t *Teams) HandleEvent(ctx context.Context, event entity.Event, parameters map[string]string, integrationID int64) error {
	target := parameters["url"]
	card := t.card(event)
	body, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("marshal teams card: %w", err)
	}

	headers := mergeHeaders(map[string]string{"Content-Type": "application/json"},
		t.customHeaders(parameters["customHeaders"]))
	res := t.deliverer.FetchRetry(ctx, target, RequestOptions{
		Method:        http.MethodPost,
		Headers:       headers,
		Body:          body,
		IntegrationID: integrationID,
	}, RetryPolicy{})

	details := fmt.Sprintf("Teams webhook request was successful with status code: %d.", res.Status)
	if !res.OK {
		details = fmt.Sprintf("Teams webhook request failed with status code: %d.", res.Status)
	}
	t.deliverer.RegisterEvent(ctx, entity.DeliveryOutcome{
		IntegrationID: integrationID,
		State:         stateOf(res),
		StateDetails:  details,
		Event:         event,
		Details:       map[string]any{"url": target, "body": card},
	})
	return nil
}
