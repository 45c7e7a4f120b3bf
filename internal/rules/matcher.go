// Package rules evaluates notification rules against inbound messages.
package rules

import (
	"strings"

	"github.com/nhle/mailwatch/internal/model"
)

// Matches reports whether every filter set on rule occurs, ignoring case,
// in the corresponding message field. A rule without filters matches
// every message.
func Matches(rule model.NotificationRule, msg model.InboundMessage) bool {
	return contains(msg.Sender, rule.SenderFilter) &&
		contains(msg.Subject, rule.SubjectFilter) &&
		contains(msg.BodyPreview, rule.KeywordFilter)
}

// EvaluateAll returns the names of the rules that match msg, in the order
// the rules were given.
func EvaluateAll(rules []model.NotificationRule, msg model.InboundMessage) []string {
	var matched []string
	for _, r := range rules {
		if Matches(r, msg) {
			matched = append(matched, r.Name)
		}
	}
	return matched
}

func contains(field, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(filter))
}
