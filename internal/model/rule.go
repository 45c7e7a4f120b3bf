package model

import "time"

// NotificationRule selects inbound messages that trigger a notification.
// An empty filter matches any value of its field.
type NotificationRule struct {
	ID            int64     `json:"id"`
	Name          string    `json:"rule_name"`
	SenderFilter  string    `json:"sender_filter,omitempty"`
	SubjectFilter string    `json:"subject_filter,omitempty"`
	KeywordFilter string    `json:"keyword_filter,omitempty"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsCatchAll reports whether the rule has no filters and therefore
// matches every message.
func (r NotificationRule) IsCatchAll() bool {
	return r.SenderFilter == "" && r.SubjectFilter == "" && r.KeywordFilter == ""
}

// RuleInput carries the fields needed to create a rule.
type RuleInput struct {
	Name          string
	SenderFilter  string
	SubjectFilter string
	KeywordFilter string
}

// Stats holds all-time aggregate counts.
type Stats struct {
	Sent      int `json:"sent" db:"sent"`
	Failed    int `json:"failed" db:"failed"`
	Monitored int `json:"monitored" db:"monitored"`
}
