package store

import (
	"context"

	"github.com/nhle/mailwatch/internal/model"
)

// Store defines the persistence interface for the send audit log, the
// monitored inbound messages, notification rules, and processed message
// ids. Every method is a self-contained transaction.
type Store interface {
	// === Sent emails ===

	RecordSent(
		ctx context.Context,
		recipient, subject string,
		status model.SendStatus,
		errorMessage string,
	) (int64, error)
	RecentSent(ctx context.Context, limit int) ([]model.SentEmail, error)

	// === Monitored emails ===

	RecordMonitored(ctx context.Context, sender, subject, bodyPreview string) (int64, error)
	MarkNotified(ctx context.Context, id int64) error
	GetMonitored(ctx context.Context, id int64) (*model.MonitoredEmail, error)

	// === Notification rules ===

	AddRule(ctx context.Context, rule model.RuleInput) (int64, error)
	ListActiveRules(ctx context.Context) ([]model.NotificationRule, error)
	ListRules(ctx context.Context) ([]model.NotificationRule, error)
	SetRuleEnabled(ctx context.Context, id int64, enabled bool) error

	// === Processed message ids ===

	LoadSeen(ctx context.Context) ([]string, error)
	MarkSeen(ctx context.Context, sourceID string) error

	// === Aggregates ===

	Stats(ctx context.Context) (model.Stats, error)
}
