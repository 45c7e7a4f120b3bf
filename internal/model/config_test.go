package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailwatch/internal/errs"
)

func clearMailEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	clearMailEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "smtp.gmail.com", cfg.SMTP.Host)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "imap.gmail.com", cfg.IMAP.Host)
	assert.Equal(t, 993, cfg.IMAP.Port)
	assert.True(t, cfg.IMAP.TLS)
	assert.Equal(t, 300, cfg.Monitor.CheckIntervalSec)
	assert.Equal(t, "INBOX", cfg.Monitor.Folder)
	assert.Equal(t, "emails.db", cfg.DBPath)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	clearMailEnv(t)
	t.Setenv("EMAIL_ADDRESS", "me@example.com")
	t.Setenv("EMAIL_PASSWORD", "secret")
	t.Setenv("IMAP_SERVER", "imap.example.com")
	t.Setenv("IMAP_PORT", "1993")
	t.Setenv("CHECK_INTERVAL", "60")
	t.Setenv("NOTIFICATION_EMAIL", "alerts@example.com")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "me@example.com", cfg.Account.Address)
	assert.Equal(t, "secret", cfg.Account.Password)
	assert.Equal(t, "imap.example.com", cfg.IMAP.Host)
	assert.Equal(t, 1993, cfg.IMAP.Port)
	assert.Equal(t, 60, cfg.Monitor.CheckIntervalSec)
	assert.Equal(t, "alerts@example.com", cfg.NotificationEmail)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromFile(t *testing.T) {
	clearMailEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
account:
  address: file@example.com
monitor:
  check_interval_sec: 45
  folder: Alerts
  persist_seen: true
db_path: /tmp/mailwatch-test.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file@example.com", cfg.Account.Address)
	assert.Equal(t, 45, cfg.Monitor.CheckIntervalSec)
	assert.Equal(t, "Alerts", cfg.Monitor.Folder)
	assert.True(t, cfg.Monitor.PersistSeen)
	assert.Equal(t, "/tmp/mailwatch-test.db", cfg.DBPath)
	// Defaults still fill keys absent from the file.
	assert.Equal(t, "smtp.gmail.com", cfg.SMTP.Host)
}

func TestValidateRequiresCredentials(t *testing.T) {
	cfg := &AppConfig{
		SMTP:    ServerConfig{Host: "smtp.example.com", Port: 587},
		IMAP:    ServerConfig{Host: "imap.example.com", Port: 993},
		Monitor: MonitorConfig{CheckIntervalSec: 300},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Config))

	cfg.Account = AccountConfig{Address: "me@example.com", Password: "pw"}
	assert.NoError(t, cfg.Validate())

	cfg.Monitor.CheckIntervalSec = 0
	assert.True(t, errs.Is(cfg.Validate(), errs.Config))
}

func TestSaveConfigRoundTripOmitsPassword(t *testing.T) {
	clearMailEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &AppConfig{
		SMTP:              ServerConfig{Host: "smtp.example.com", Port: 465, TLS: true},
		IMAP:              ServerConfig{Host: "imap.example.com", Port: 993, TLS: true},
		Account:           AccountConfig{Address: "me@example.com", Password: "do-not-write"},
		NotificationEmail: "alerts@example.com",
		Monitor:           MonitorConfig{CheckIntervalSec: 120, Folder: "INBOX"},
		DBPath:            "mail.db",
		Log:               LogConfig{Level: "debug", Format: "json"},
	}

	require.NoError(t, SaveConfig(path, cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "do-not-write")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", loaded.SMTP.Host)
	assert.Equal(t, 465, loaded.SMTP.Port)
	assert.True(t, loaded.SMTP.TLS)
	assert.Equal(t, "alerts@example.com", loaded.NotificationEmail)
	assert.Equal(t, 120, loaded.Monitor.CheckIntervalSec)
	assert.Equal(t, "debug", loaded.Log.Level)
}
