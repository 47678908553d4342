package addon

import "flaghook/internal/domain/entity"

// Provider names.
const (
	WebhookProvider  = "webhook"
	SlackProvider    = "slack"
	SlackAppProvider = "slack-app"
	TeamsProvider    = "teams"
	DatadogProvider  = "datadog"
)

// featureEvents are the flag-change events chat providers render.
var featureEvents = []entity.EventType{
	entity.FeatureCreated,
	entity.FeatureUpdated,
	entity.FeatureArchived,
	entity.FeatureRevived,
	entity.FeatureStaleOn,
	entity.FeatureStaleOff,
	entity.FeaturePotentiallyStaleOn,
	entity.FeatureEnvironmentEnabled,
	entity.FeatureEnvironmentDisabled,
	entity.FeatureStrategyAdd,
	entity.FeatureStrategyUpdate,
	entity.FeatureStrategyRemove,
	entity.FeatureMetadataUpdated,
	entity.FeatureVariantsUpdated,
	entity.FeatureEnvironmentVariantsUpdated,
	entity.FeatureProjectChange,
	entity.FeatureTagged,
	entity.FeatureUntagged,
	entity.FeatureCompleted,
}

func withConfigEvents(events []entity.EventType) []entity.EventType {
	out := append([]entity.EventType(nil), events...)
	return append(out, entity.AddonConfigCreated, entity.AddonConfigUpdated, entity.AddonConfigDeleted)
}

func customHeadersParameter(sensitive bool) entity.ParameterDefinition {
	return entity.ParameterDefinition{
		Name:        "customHeaders",
		DisplayName: "Extra HTTP Headers",
		Type:        entity.ParameterTextField,
		Description: `(Optional) Used to add extra HTTP Headers to the request the plugin fires off. Format here needs to be a valid json object of key value pairs where both key and value are strings`,
		Placeholder: `{
  "ISTIO_USER_KEY": "hunter2",
  "SOME_OTHER_CUSTOM_HTTP_HEADER": "SOMEVALUE"
}`,
		Sensitive: sensitive,
	}
}

func WebhookDefinition() entity.AddonDefinition {
	return entity.AddonDefinition{
		Name:             WebhookProvider,
		DisplayName:      "Webhook",
		Description:      "A Webhook is a generic way to post messages from Unleash to third party services.",
		DocumentationURL: "https://docs.getunleash.io/docs/addons/webhook",
		HowTo:            "The Webhook Addon introduces a generic way to post messages from Unleash to third party services.",
		Parameters: []entity.ParameterDefinition{
			{
				Name:        "url",
				DisplayName: "Webhook URL",
				Type:        entity.ParameterURL,
				Description: "(Required) Unleash will perform a HTTP Post to the specified URL (one retry if first attempt fails)",
				Required:    true,
			},
			{
				Name:        "contentType",
				DisplayName: "Content-Type",
				Type:        entity.ParameterText,
				Placeholder: "application/json",
				Description: "(Optional) The Content-Type header to use. Defaults to application/json",
			},
			{
				Name:        "authorization",
				DisplayName: "Authorization",
				Type:        entity.ParameterText,
				Description: "(Optional) The Authorization header to use. Not used if left blank.",
				Sensitive:   true,
			},
			{
				Name:        "bodyTemplate",
				DisplayName: "Body template",
				Type:        entity.ParameterTextField,
				Placeholder: `{
  "event": "{{event.type}}",
  "createdBy": "{{event.createdBy}}",
  "featureToggle": "{{event.data.name}}",
  "timestamp": "{{event.data.createdAt}}"
}`,
				Description: "(Optional) You may format the body using a mustache template. If you don't specify anything, the format will similar to the events format (https://docs.getunleash.io/reference/api/legacy/unleash/admin/events)",
			},
			customHeadersParameter(true),
		},
		Events: entity.SupportedEventTypes(),
	}
}

func SlackDefinition() entity.AddonDefinition {
	return entity.AddonDefinition{
		Name:             SlackProvider,
		DisplayName:      "Slack",
		Description:      "Allows Unleash to post updates to Slack.",
		DocumentationURL: "https://docs.getunleash.io/docs/addons/slack",
		HowTo:            "The Slack integration will post messages to the channels named by a feature's slack tags, or the default channel when it has none.",
		Parameters: []entity.ParameterDefinition{
			{
				Name:        "url",
				DisplayName: "Slack webhook URL",
				Type:        entity.ParameterURL,
				Description: "(Required)",
				Required:    true,
				Sensitive:   true,
			},
			{
				Name:        "username",
				DisplayName: "Username",
				Type:        entity.ParameterText,
				Placeholder: "Unleash",
				Description: "The username to use when posting messages to slack. Defaults to \"Unleash\".",
			},
			{
				Name:        "emojiIcon",
				DisplayName: "Emoji Icon",
				Type:        entity.ParameterText,
				Placeholder: ":unleash:",
				Description: "The emoji_icon to use when posting messages to slack. Defaults to \":unleash:\".",
			},
			{
				Name:        "defaultChannel",
				DisplayName: "Default channel",
				Type:        entity.ParameterText,
				Description: "(Required) Default channel to post updates to if not specified in the slack-tag",
				Required:    true,
			},
			customHeadersParameter(false),
		},
		Events: featureEvents,
		TagTypes: []entity.TagTypeDefinition{
			{
				Name:        "slack",
				Description: "Slack tag used by the slack-addon to specify the slack channel.",
				Icon:        "S",
			},
		},
	}
}

func SlackAppDefinition() entity.AddonDefinition {
	return entity.AddonDefinition{
		Name:             SlackAppProvider,
		DisplayName:      "Slack App",
		Description:      "The Unleash Slack App posts messages to the selected channels in your Slack workspace.",
		DocumentationURL: "https://docs.getunleash.io/docs/addons/slack-app",
		HowTo:            "Install the Unleash Slack App, invite it to your channels and paste its access token here.",
		Parameters: []entity.ParameterDefinition{
			{
				Name:        "accessToken",
				DisplayName: "Access token",
				Type:        entity.ParameterText,
				Description: "(Required) The access token of the installed Unleash Slack App.",
				Required:    true,
				Sensitive:   true,
			},
			{
				Name:        "defaultChannels",
				DisplayName: "Channels",
				Type:        entity.ParameterText,
				Description: "A comma-separated list of channels to post the configured events to. These channels are always notified, regardless of the event type or the presence of a slack tag.",
			},
			{
				Name:        "alwaysPostToDefault",
				DisplayName: "Always post to default channels",
				Type:        entity.ParameterText,
				Description: "Kept for older configurations. Default channels are always notified.",
				Placeholder: "false",
			},
		},
		Events: withConfigEvents(featureEvents),
		TagTypes: []entity.TagTypeDefinition{
			{
				Name:        "slack",
				Description: "Slack tag used by the slack integrations to specify the slack channel.",
				Icon:        "S",
			},
		},
	}
}

func TeamsDefinition() entity.AddonDefinition {
	return entity.AddonDefinition{
		Name:             TeamsProvider,
		DisplayName:      "Microsoft Teams",
		Description:      "Allows Unleash to post updates to Microsoft Teams.",
		DocumentationURL: "https://docs.getunleash.io/docs/addons/teams",
		HowTo:            "The MicrosoftTeams integration allows Unleash to post Updates when a feature toggle is updated.",
		Parameters: []entity.ParameterDefinition{
			{
				Name:        "url",
				DisplayName: "Microsoft Teams webhook URL",
				Type:        entity.ParameterURL,
				Description: "(Required)",
				Required:    true,
				Sensitive:   true,
			},
			customHeadersParameter(false),
		},
		Events: featureEvents,
	}
}

func DatadogDefinition() entity.AddonDefinition {
	return entity.AddonDefinition{
		Name:             DatadogProvider,
		DisplayName:      "Datadog",
		Description:      "Allows Unleash to post updates to Datadog.",
		DocumentationURL: "https://docs.getunleash.io/docs/addons/datadog",
		HowTo:            "The Datadog integration allows Unleash to post Updates to Datadog when a feature toggle is updated.",
		Parameters: []entity.ParameterDefinition{
			{
				Name:        "url",
				DisplayName: "Datadog Events URL",
				Type:        entity.ParameterURL,
				Description: "Default URL: " + defaultDatadogURL + ". Needs to be changed if you are not using the US1 site.",
			},
			{
				Name:        "apiKey",
				DisplayName: "Datadog API key",
				Type:        entity.ParameterText,
				Placeholder: "j96c23b0f12a6b3434a8d710110bd862",
				Description: "(Required) API key from Datadog",
				Required:    true,
				Sensitive:   true,
			},
			{
				Name:        "sourceTypeName",
				DisplayName: "Datadog Source Type Name",
				Type:        entity.ParameterText,
				Description: "(Optional) source_type_name parameter to be included in Datadog events.",
			},
			customHeadersParameter(true),
			{
				Name:        "bodyTemplate",
				DisplayName: "Body template",
				Type:        entity.ParameterTextField,
				Placeholder: `{
  "event": "{{event.type}}",
  "createdBy": "{{event.createdBy}}",
  "featureToggle": "{{event.data.name}}",
  "timestamp": "{{event.data.createdAt}}"
}`,
				Description: "(Optional) You may format the body using a mustache template.",
			},
		},
		Events: featureEvents,
		TagTypes: []entity.TagTypeDefinition{
			{
				Name:        "datadog",
				Description: "All Datadog tags added to a specific feature are sent to datadog event stream.",
				Icon:        "D",
			},
		},
	}
}

// Definitions returns the descriptors of every built-in provider.
func Definitions() []entity.AddonDefinition {
	return []entity.AddonDefinition{
		WebhookDefinition(),
		SlackDefinition(),
		SlackAppDefinition(),
		TeamsDefinition(),
		DatadogDefinition(),
	}
}
