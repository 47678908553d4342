package entity

import "time"

// EventType is the discriminant of a flag-change event.
type EventType string

const (
	FeatureCreated                    EventType = "feature-created"
	FeatureUpdated                    EventType = "feature-updated"
	FeatureDeleted                    EventType = "feature-deleted"
	FeatureArchived                   EventType = "feature-archived"
	FeatureRevived                    EventType = "feature-revived"
	FeatureStaleOn                    EventType = "feature-stale-on"
	FeatureStaleOff                   EventType = "feature-stale-off"
	FeaturePotentiallyStaleOn         EventType = "feature-potentially-stale-on"
	FeatureEnvironmentEnabled         EventType = "feature-environment-enabled"
	FeatureEnvironmentDisabled        EventType = "feature-environment-disabled"
	FeatureStrategyAdd                EventType = "feature-strategy-add"
	FeatureStrategyUpdate             EventType = "feature-strategy-update"
	FeatureStrategyRemove             EventType = "feature-strategy-remove"
	FeatureMetadataUpdated            EventType = "feature-metadata-updated"
	FeatureVariantsUpdated            EventType = "feature-variants-updated"
	FeatureEnvironmentVariantsUpdated EventType = "feature-environment-variants-updated"
	FeatureProjectChange              EventType = "feature-project-change"
	FeatureTagged                     EventType = "feature-tagged"
	FeatureUntagged                   EventType = "feature-untagged"
	FeatureCompleted                  EventType = "feature-completed"

	AddonConfigCreated EventType = "addon-config-created"
	AddonConfigUpdated EventType = "addon-config-updated"
	AddonConfigDeleted EventType = "addon-config-deleted"
)

// SupportedEventTypes lists every event type the dispatcher subscribes to.
func SupportedEventTypes() []EventType {
	return []EventType{
		FeatureCreated,
		FeatureUpdated,
		FeatureDeleted,
		FeatureArchived,
		FeatureRevived,
		FeatureStaleOn,
		FeatureStaleOff,
		FeaturePotentiallyStaleOn,
		FeatureEnvironmentEnabled,
		FeatureEnvironmentDisabled,
		FeatureStrategyAdd,
		FeatureStrategyUpdate,
		FeatureStrategyRemove,
		FeatureMetadataUpdated,
		FeatureVariantsUpdated,
		FeatureEnvironmentVariantsUpdated,
		FeatureProjectChange,
		FeatureTagged,
		FeatureUntagged,
		FeatureCompleted,
		AddonConfigCreated,
		AddonConfigUpdated,
		AddonConfigDeleted,
	}
}

// Tag is a typed label attached to a feature, e.g. {Type: "slack", Value: "eng"}.
type Tag struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Event is a flag-change event produced by the flag-management core.
// Addons treat it as read-only.
type Event struct {
	ID              int64          `json:"id"`
	Type            EventType      `json:"type"`
	CreatedBy       string         `json:"createdBy"`
	CreatedByUserID int64          `json:"createdByUserId,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	FeatureName     string         `json:"featureName,omitempty"`
	Project         string         `json:"project,omitempty"`
	Environment     string         `json:"environment,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
	PreData         map[string]any `json:"preData,omitempty"`
	Tags            []Tag          `json:"tags,omitempty"`
}

// TagValues returns the values of every tag of the given type, in order.
func (e *Event) TagValues(tagType string) []string {
	var values []string
	for _, t := range e.Tags {
		if t.Type == tagType {
			values = append(values, t.Value)
		}
	}
	return values
}

// DataString returns data[key] when it is a non-empty string.
func (e *Event) DataString(key string) string {
	return stringField(e.Data, key)
}

// PreDataString returns preData[key] when it is a non-empty string.
func (e *Event) PreDataString(key string) string {
	return stringField(e.PreData, key)
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
