package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sent_emails (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	recipient     TEXT NOT NULL,
	subject       TEXT NOT NULL,
	sent_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	status        TEXT NOT NULL DEFAULT 'sent' CHECK(status IN ('sent', 'failed')),
	error_message TEXT
);

CREATE TABLE IF NOT EXISTS monitored_emails (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	sender            TEXT NOT NULL,
	subject           TEXT NOT NULL,
	received_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	body_preview      TEXT NOT NULL DEFAULT '',
	notification_sent INTEGER NOT NULL DEFAULT 0 CHECK(notification_sent IN (0, 1))
);

CREATE TABLE IF NOT EXISTS notification_rules (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	rule_name      TEXT NOT NULL,
	sender_filter  TEXT,
	subject_filter TEXT,
	keyword_filter TEXT,
	enabled        INTEGER NOT NULL DEFAULT 1 CHECK(enabled IN (0, 1)),
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sent_emails_status ON sent_emails(status);
CREATE INDEX IF NOT EXISTS idx_notification_rules_enabled ON notification_rules(enabled);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS processed_messages (
	source_id    TEXT PRIMARY KEY,
	processed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
