package entity

import "time"

// MaskedValue replaces sensitive parameter values in read APIs.
const MaskedValue = "*****"

// Wildcard in an addon's projects or environments matches every value.
const Wildcard = "*"

// ParameterType is the input kind of an addon parameter.
type ParameterType string

const (
	ParameterURL       ParameterType = "url"
	ParameterText      ParameterType = "text"
	ParameterTextField ParameterType = "textfield"
)

// ParameterDefinition describes one configurable parameter of a provider.
type ParameterDefinition struct {
	Name        string        `json:"name" validate:"required"`
	DisplayName string        `json:"displayName" validate:"required"`
	Type        ParameterType `json:"type" validate:"required,oneof=url text textfield"`
	Description string        `json:"description,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	Required    bool          `json:"required"`
	Sensitive   bool          `json:"sensitive"`
}

// TagTypeDefinition is a tag type a provider introduces, e.g. "slack".
type TagTypeDefinition struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// AddonDefinition is the static descriptor of an addon provider.
type AddonDefinition struct {
	Name             string                `json:"name" validate:"required"`
	DisplayName      string                `json:"displayName" validate:"required"`
	Description      string                `json:"description" validate:"required"`
	DocumentationURL string                `json:"documentationUrl" validate:"required,url"`
	HowTo            string                `json:"howTo,omitempty"`
	Deprecated       string                `json:"deprecated,omitempty"`
	Parameters       []ParameterDefinition `json:"parameters" validate:"dive"`
	Events           []EventType           `json:"events"`
	TagTypes         []TagTypeDefinition   `json:"tagTypes,omitempty" validate:"dive"`
}

// HasSensitiveParameters reports whether any parameter must be masked.
func (d AddonDefinition) HasSensitiveParameters() bool {
	for _, p := range d.Parameters {
		if p.Sensitive {
			return true
		}
	}
	return false
}

// AddonConfig is a persisted, user-created instance of a provider.
type AddonConfig struct {
	ID           int64             `json:"id"`
	Provider     string            `json:"provider"`
	Enabled      bool              `json:"enabled"`
	Description  *string           `json:"description"`
	Parameters   map[string]string `json:"parameters"`
	Events       []EventType       `json:"events"`
	Projects     []string          `json:"projects"`
	Environments []string          `json:"environments"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Subscribes reports whether the config listens for the given event type.
func (c *AddonConfig) Subscribes(t EventType) bool {
	for _, e := range c.Events {
		if e == t {
			return true
		}
	}
	return false
}

// MatchesProject applies the project allow-list. Events without a project
// always match.
func (c *AddonConfig) MatchesProject(project string) bool {
	return matchesScope(c.Projects, project)
}

// MatchesEnvironment applies the environment allow-list with the same rules
// as MatchesProject.
func (c *AddonConfig) MatchesEnvironment(environment string) bool {
	return matchesScope(c.Environments, environment)
}

func matchesScope(allowed []string, value string) bool {
	if value == "" || len(allowed) == 0 || allowed[0] == Wildcard {
		return true
	}
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}

// AddonConfigInput is the client-supplied shape of an addon config.
type AddonConfigInput struct {
	Provider     string            `json:"provider" validate:"required"`
	Enabled      bool              `json:"enabled"`
	Description  *string           `json:"description" validate:"omitempty,max=1000"`
	Parameters   map[string]string `json:"parameters"`
	Events       []EventType       `json:"events" validate:"required,min=1"`
	Projects     []string          `json:"projects"`
	Environments []string          `json:"environments"`
}

// AuditUser identifies who performed a config change.
type AuditUser struct {
	Username string
	ID       int64
	IP       string
}

// SystemUser is the audit identity used for changes the service makes itself.
var SystemUser = AuditUser{Username: "unleash_system_user", ID: -1337}
