package entity

import "time"

// DeliveryState is the result class of one addon delivery.
type DeliveryState string

const (
	DeliverySuccess         DeliveryState = "success"
	DeliveryFailed          DeliveryState = "failed"
	DeliveryFailedRetryable DeliveryState = "failed-retryable"
)

// DeliveryOutcome is produced once per handled event and forwarded to the
// integration-events trail.
type DeliveryOutcome struct {
	IntegrationID int64          `json:"integrationId"`
	State         DeliveryState  `json:"state"`
	StateDetails  string         `json:"stateDetails"`
	Event         Event          `json:"event"`
	Details       map[string]any `json:"details"`
}

// IntegrationEvent is a stored DeliveryOutcome.
type IntegrationEvent struct {
	ID int64 `json:"id"`
	DeliveryOutcome
	CreatedAt time.Time `json:"createdAt"`
}

// DomainEvent is an audit record emitted by the service itself.
type DomainEvent struct {
	Type            EventType      `json:"type"`
	CreatedBy       string         `json:"createdBy"`
	CreatedByUserID int64          `json:"createdByUserId"`
	IP              string         `json:"ip,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
	PreData         map[string]any `json:"preData,omitempty"`
}

// NewAddonConfigCreatedEvent builds the audit record for a created config.
func NewAddonConfigCreatedEvent(cfg *AddonConfig, by AuditUser) DomainEvent {
	return DomainEvent{
		Type:            AddonConfigCreated,
		CreatedBy:       by.Username,
		CreatedByUserID: by.ID,
		IP:              by.IP,
		Data:            cfg.auditSnapshot(),
	}
}

// NewAddonConfigUpdatedEvent builds the audit record for an updated config.
func NewAddonConfigUpdatedEvent(pre, post *AddonConfig, by AuditUser) DomainEvent {
	return DomainEvent{
		Type:            AddonConfigUpdated,
		CreatedBy:       by.Username,
		CreatedByUserID: by.ID,
		IP:              by.IP,
		PreData:         pre.auditSnapshot(),
		Data:            post.auditSnapshot(),
	}
}

// NewAddonConfigDeletedEvent builds the audit record for a removed config.
func NewAddonConfigDeletedEvent(pre *AddonConfig, by AuditUser) DomainEvent {
	return DomainEvent{
		Type:            AddonConfigDeleted,
		CreatedBy:       by.Username,
		CreatedByUserID: by.ID,
		IP:              by.IP,
		PreData:         pre.auditSnapshot(),
	}
}

// auditSnapshot never includes parameters; they may hold secrets.
func (c *AddonConfig) auditSnapshot() map[string]any {
	if c == nil {
		return nil
	}
	snap := map[string]any{
		"id":           c.ID,
		"provider":     c.Provider,
		"enabled":      c.Enabled,
		"events":       c.Events,
		"projects":     c.Projects,
		"environments": c.Environments,
	}
	if c.Description != nil {
		snap["description"] = *c.Description
	}
	return snap
}

// AsEvent converts the audit record into the event shape published on the bus.
func (d DomainEvent) AsEvent(id int64, at time.Time) Event {
	return Event{
		ID:              id,
		Type:            d.Type,
		CreatedBy:       d.CreatedBy,
		CreatedByUserID: d.CreatedByUserID,
		CreatedAt:       at,
		Data:            d.Data,
		PreData:         d.PreData,
	}
}
