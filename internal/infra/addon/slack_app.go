package addon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"flaghook/internal/domain/entity"
	"flaghook/internal/observability/metrics"
	"flaghook/internal/observability/tracing"

	"github.com/slack-go/slack"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	channelCacheTTL      = 30 * time.Second
	conversationsPerPage = 200
)

// SlackApp posts through the Slack Web API with a bot access token.
type SlackApp struct {
	*Base
	apiURL    string
	newClient func(token string) *slack.Client

	mu     sync.Mutex
	cache  map[string]*channelCacheEntry
	flight singleflight.Group

	stop      chan struct{}
	closeOnce sync.Once
}

type channelCacheEntry struct {
	client    *slack.Client
	channels  []slack.Channel
	expiresAt time.Time
}

// SlackAppOption customizes a SlackApp.
type SlackAppOption func(*SlackApp)

// WithSlackAPIURL points the client at another Web API endpoint. The URL
// must end with a slash.
func WithSlackAPIURL(url string) SlackAppOption {
	return func(s *SlackApp) { s.apiURL = url }
}

func NewSlackApp(deps Dependencies, opts ...SlackAppOption) (*SlackApp, error) {
	base, err := NewBase(SlackAppDefinition(), deps)
	if err != nil {
		return nil, err
	}
	s := &SlackApp{
		Base:  base,
		cache: make(map[string]*channelCacheEntry),
		stop:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.newClient = func(token string) *slack.Client {
		options := []slack.Option{slack.OptionHTTPClient(deps.httpClient())}
		if s.apiURL != "" {
			options = append(options, slack.OptionAPIURL(s.apiURL))
		}
		return slack.New(token, options...)
	}
	go s.evictLoop()
	return s, nil
}

// Close stops the channel cache janitor and drops cached clients.
func (s *SlackApp) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		s.cache = make(map[string]*channelCacheEntry)
		s.mu.Unlock()
	})
}

func (s *SlackApp) evictLoop() {
	ticker := time.NewTicker(channelCacheTTL)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for token, entry := range s.cache {
				if now.After(entry.expiresAt) {
					delete(s.cache, token)
				}
			}
			s.mu.Unlock()
		}
	}
}

// targetChannels is the union of slack tags and the default channels,
// in first-seen order.
func targetChannels(event entity.Event, defaultChannels string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range append(event.TagValues(slackTagType), splitList(defaultChannels)...) {
		c = strings.TrimPrefix(strings.TrimSpace(c), "#")
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func (s *SlackApp) HandleEvent(ctx context.Context, event entity.Event, parameters map[string]string, integrationID int64) error {
	token := parameters["accessToken"]
	if token == "" {
		s.logger.Warn("no access token provided", slog.Int64("integration_id", integrationID))
		return nil
	}

	wanted := targetChannels(event, parameters["defaultChannels"])
	if len(wanted) == 0 {
		s.logger.Debug("no slack channels found for event", slog.String("event_type", string(event.Type)))
		return nil
	}

	text := s.formatter.Format(event, LinkStyleSlack)
	details := map[string]any{"channels": wanted, "message": text}

	entry, err := s.channels(ctx, token)
	if err != nil {
		reason := slackErrorReason(err)
		s.logger.Warn("failed to list slack channels",
			slog.String("event_type", string(event.Type)),
			slog.String("reason", reason))
		s.deliverer.RegisterEvent(ctx, entity.DeliveryOutcome{
			IntegrationID: integrationID,
			State:         entity.DeliveryFailed,
			StateDetails:  "Failed to list Slack channels. " + reason,
			Event:         event,
			Details:       details,
		})
		return nil
	}

	ids := make(map[string]string, len(entry.channels))
	for _, ch := range entry.channels {
		if ch.ID != "" && ch.Name != "" {
			ids[ch.Name] = ch.ID
		}
	}
	var targets []string
	for _, name := range wanted {
		if id, ok := ids[name]; ok {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		s.logger.Info("no eligible slack channel found", slog.Any("channels", wanted))
		return nil
	}

	attachment := slack.Attachment{Actions: []slack.AttachmentAction{{
		Name:  "featureToggle",
		Text:  "Open in Unleash",
		Type:  slack.ActionType("button"),
		Value: "featureToggle",
		Style: "primary",
		URL:   s.formatter.FeatureLink(event),
	}}}

	reasons := make([]string, len(targets))
	var g errgroup.Group
	for i, id := range targets {
		g.Go(func() error {
			if err := s.post(ctx, entry.client, id, text, attachment); err != nil {
				reasons[i] = slackErrorReason(err)
				s.logger.Warn("error handling event",
					slog.String("event_type", string(event.Type)),
					slog.String("channel", id),
					slog.String("reason", reasons[i]))
			}
			return nil
		})
	}
	_ = g.Wait()

	var failures []string
	for _, r := range reasons {
		if r != "" {
			failures = append(failures, r)
		}
	}
	s.logger.Info("handled slack event",
		slog.String("event_type", string(event.Type)),
		slog.Int("delivered", len(targets)-len(failures)),
		slog.Int("total", len(targets)))

	outcome := entity.DeliveryOutcome{
		IntegrationID: integrationID,
		State:         entity.DeliverySuccess,
		StateDetails:  fmt.Sprintf("All (%d) Slack client calls were successful.", len(targets)),
		Event:         event,
		Details:       details,
	}
	switch {
	case len(failures) == len(targets):
		outcome.State = entity.DeliveryFailed
		outcome.StateDetails = fmt.Sprintf("All (%d) Slack client calls failed. Reasons: %s",
			len(targets), strings.Join(failures, "; "))
	case len(failures) > 0:
		outcome.State = entity.DeliveryFailed
		outcome.StateDetails = fmt.Sprintf("Some (%d of %d) Slack client calls failed. Reasons: %s",
			len(failures), len(targets), strings.Join(failures, "; "))
	}
	s.deliverer.RegisterEvent(ctx, outcome)
	return nil
}

func (s *SlackApp) post(ctx context.Context, client *slack.Client, channelID, text string, attachment slack.Attachment) error {
	ctx, span := tracing.StartDelivery(ctx, s.Name(), "POST", "chat.postMessage")
	start := time.Now()
	_, _, err := client.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionAttachments(attachment),
	)
	if err != nil {
		metrics.RecordDelivery(s.Name(), CodeNetwork, time.Since(start))
		tracing.EndDelivery(span, 0, 1, err.Error())
		return err
	}
	metrics.RecordDelivery(s.Name(), "ok", time.Since(start))
	tracing.EndDelivery(span, 200, 1, "")
	return nil
}

// channels returns the token's cached channel list, fetching every page
// of conversations.list when the cache is cold.
func (s *SlackApp) channels(ctx context.Context, token string) (*channelCacheEntry, error) {
	s.mu.Lock()
	entry, ok := s.cache[token]
	s.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry, nil
	}

	v, err, _ := s.flight.Do(token, func() (interface{}, error) {
		client := s.newClient(token)
		var all []slack.Channel
		cursor := ""
		for {
			page, next, err := client.GetConversationsContext(ctx, &slack.GetConversationsParameters{
				Cursor:          cursor,
				ExcludeArchived: true,
				Limit:           conversationsPerPage,
				Types:           []string{"public_channel", "private_channel"},
			})
			if err != nil {
				return nil, err
			}
			all = append(all, page...)
			if next == "" || len(page) == 0 {
				break
			}
			s.logger.Debug("fetching next page of channels", slog.Int("page_size", len(page)))
			cursor = next
		}
		fresh := &channelCacheEntry{client: client, channels: all, expiresAt: time.Now().Add(channelCacheTTL)}
		s.mu.Lock()
		s.cache[token] = fresh
		s.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*channelCacheEntry), nil
}

// slackErrorReason renders a Web API error for outcome details.
func slackErrorReason(err error) string {
	var platformErr slack.SlackErrorResponse
	if errors.As(err, &platformErr) {
		data, _ := json.Marshal(map[string]any{"ok": false, "error": platformErr.Err})
		return "A platform error occurred: " + string(data)
	}
	var rateErr *slack.RateLimitedError
	if errors.As(err, &rateErr) {
		return fmt.Sprintf("A rate limit error occurred: retry after %d seconds", int(rateErr.RetryAfter.Seconds()))
	}
	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("An HTTP error occurred: status code %d", statusErr.Code)
	}
	return err.Error()
}
