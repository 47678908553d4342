package addon

import (
	"fmt"
	"strings"

	"flaghook/internal/domain/entity"
)

// LinkStyle selects how links are rendered in a formatted message.
type LinkStyle int

const (
	// LinkStyleMarkdown renders [text](url).
	LinkStyleMarkdown LinkStyle = iota
	// LinkStyleSlack renders <url|text>.
	LinkStyleSlack
)

// Formatter renders flag-change events into notification text. It holds no
// mutable state and is safe for concurrent use.
type Formatter struct {
	baseURL string
	// legacyLinkText uses data.name as the link text when present.
	legacyLinkText bool
}

func NewFormatter(baseURL string) *Formatter {
	return &Formatter{baseURL: strings.TrimRight(baseURL, "/")}
}

// WithLegacyLinkText returns a copy that labels links with data.name, as the
// single-provider webhook formatters did.
func (f *Formatter) WithLegacyLinkText() *Formatter {
	c := *f
	c.legacyLinkText = true
	return &c
}

// FeatureLink returns the canonical UI URL for the event's feature.
func (f *Formatter) FeatureLink(event entity.Event) string {
	if event.Type == entity.FeatureArchived {
		if event.Project != "" {
			return fmt.Sprintf("%s/projects/%s/archive", f.baseURL, event.Project)
		}
		return f.baseURL + "/archive"
	}
	return fmt.Sprintf("%s/projects/%s/features/%s", f.baseURL, event.Project, event.FeatureName)
}

func (f *Formatter) link(event entity.Event, style LinkStyle) string {
	text := event.FeatureName
	if f.legacyLinkText {
		if name := event.DataString("name"); name != "" {
			text = name
		}
	}
	url := f.FeatureLink(event)
	if style == LinkStyleSlack {
		return fmt.Sprintf("<%s|%s>", url, text)
	}
	return fmt.Sprintf("[%s](%s)", text, url)
}

// Format renders the notification text for an event.
func (f *Formatter) Format(event entity.Event, style LinkStyle) string {
	user := event.CreatedBy
	link := f.link(event, style)

	switch event.Type {
	case entity.FeatureArchived:
		return fmt.Sprintf("%s just archived feature toggle *%s*", user, link)
	case entity.FeatureRevived:
		return fmt.Sprintf("%s just revived feature toggle *%s*", user, link)
	case entity.FeatureStaleOn:
		return fmt.Sprintf("%s marked %s as stale and this feature toggle is now *ready to be removed*", user, link)
	case entity.FeatureStaleOff:
		return fmt.Sprintf("%s removed the stale marking on %s", user, link)
	case entity.FeaturePotentiallyStaleOn:
		return fmt.Sprintf("%s was marked as potentially stale in project *%s*", link, event.Project)
	case entity.FeatureEnvironmentEnabled, entity.FeatureEnvironmentDisabled:
		state := "enabled"
		if event.Type == entity.FeatureEnvironmentDisabled {
			state = "disabled"
		}
		return fmt.Sprintf("%s *%s* %s in *%s* environment in project *%s*",
			user, state, link, event.Environment, event.Project)
	case entity.FeatureStrategyAdd, entity.FeatureStrategyUpdate, entity.FeatureStrategyRemove:
		return fmt.Sprintf("%s updated *%s* in project *%s* by %s strategy %s in *%s*",
			user, link, event.Project, strategyVerb(event.Type), strategyName(event), event.Environment)
	case entity.FeatureMetadataUpdated:
		return fmt.Sprintf("%s updated the metadata for %s in project *%s*", user, link, event.Project)
	case entity.FeatureProjectChange:
		return fmt.Sprintf("%s moved %s to %s", user, event.FeatureName, event.Project)
	case entity.FeatureTagged:
		return fmt.Sprintf("%s tagged %s with *%s:%s* in project *%s*",
			user, link, event.DataString("type"), event.DataString("value"), event.Project)
	case entity.FeatureUntagged:
		return fmt.Sprintf("%s untagged %s with *%s:%s* in project *%s*",
			user, link, event.PreDataString("type"), event.PreDataString("value"), event.Project)
	case entity.AddonConfigCreated:
		return fmt.Sprintf("%s created a new *%s* integration configuration", user, event.DataString("provider"))
	case entity.AddonConfigUpdated:
		return fmt.Sprintf("%s updated a *%s* integration configuration", user, configProvider(event))
	case entity.AddonConfigDeleted:
		return fmt.Sprintf("%s deleted a *%s* integration configuration", user, event.PreDataString("provider"))
	default:
		return fmt.Sprintf("%s %s feature toggle %s in project *%s*", user, defaultAction(event.Type), link, event.Project)
	}
}

func strategyVerb(t entity.EventType) string {
	switch t {
	case entity.FeatureStrategyAdd:
		return "adding"
	case entity.FeatureStrategyRemove:
		return "removing"
	default:
		return "updating"
	}
}

// strategyName reads the strategy from preData for removals.
func strategyName(event entity.Event) string {
	data, pre := event.DataString, event.PreDataString
	if event.Type == entity.FeatureStrategyRemove {
		data = pre
	}
	if title := data("title"); title != "" {
		return title
	}
	return data("name")
}

func configProvider(event entity.Event) string {
	if p := event.PreDataString("provider"); p != "" {
		return p
	}
	return event.DataString("provider")
}

func defaultAction(t entity.EventType) string {
	switch t {
	case entity.FeatureCreated:
		return "created"
	case entity.FeatureUpdated:
		return "updated"
	case entity.FeatureVariantsUpdated:
		return "updated variants for"
	default:
		return string(t)
	}
}
