package respond

import (
	"regexp"
)

var (
	// Slack bot, user, app and refresh tokens.
	slackTokenPattern = regexp.MustCompile(`xox[abposr]-[A-Za-z0-9-]+`)

	// Incoming webhook URLs carry their secret in the path.
	slackWebhookPattern = regexp.MustCompile(`hooks\.slack\.com/services/[A-Za-z0-9/]+`)

	bearerPattern = regexp.MustCompile(`(?i)(bearer|basic)\s+[A-Za-z0-9._~+/=-]+`)

	// DSN passwords.
	dbPasswordPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError returns err's message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = slackTokenPattern.ReplaceAllString(msg, "xox*-****")
	msg = slackWebhookPattern.ReplaceAllString(msg, "hooks.slack.com/services/****")
	msg = bearerPattern.ReplaceAllString(msg, "$1 ****")
	msg = dbPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}
