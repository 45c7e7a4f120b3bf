package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nhle/mailwatch/internal/errs"
)

// ServerConfig holds the address of a mail server.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`

	// TLS selects implicit TLS. When false the client upgrades the
	// connection with STARTTLS.
	TLS bool `mapstructure:"tls" yaml:"tls"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AccountConfig holds the mailbox credentials shared by IMAP and SMTP.
type AccountConfig struct {
	Address  string `mapstructure:"address" yaml:"address"`
	Password string `mapstructure:"password" yaml:"-"`
}

// MonitorConfig holds inbox monitoring settings.
type MonitorConfig struct {
	// CheckIntervalSec is the sleep between monitoring passes.
	CheckIntervalSec int    `mapstructure:"check_interval_sec" yaml:"check_interval_sec"`
	Folder           string `mapstructure:"folder" yaml:"folder"`
	MarkAsRead       bool   `mapstructure:"mark_as_read" yaml:"mark_as_read"`

	// PersistSeen stores processed message ids so a restart does not
	// process them again.
	PersistSeen bool `mapstructure:"persist_seen" yaml:"persist_seen"`

	// RetryFailedNotifications leaves a message unseen when its
	// notification could not be sent, so the next pass retries it.
	RetryFailedNotifications bool `mapstructure:"retry_failed_notifications" yaml:"retry_failed_notifications"`
}

// CheckInterval returns the polling interval as a duration.
func (m MonitorConfig) CheckInterval() time.Duration {
	return time.Duration(m.CheckIntervalSec) * time.Second
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	SMTP    ServerConfig  `mapstructure:"smtp" yaml:"smtp"`
	IMAP    ServerConfig  `mapstructure:"imap" yaml:"imap"`
	Account AccountConfig `mapstructure:"account" yaml:"account"`

	// NotificationEmail receives rule-match alerts and reports.
	NotificationEmail string `mapstructure:"notification_email" yaml:"notification_email"`

	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
	DBPath  string        `mapstructure:"db_path" yaml:"db_path"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// Validate checks that the settings required at startup are present.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Account.Address) == "" || c.Account.Password == "" {
		return errs.Newf(errs.Config, "validate",
			"EMAIL_ADDRESS and EMAIL_PASSWORD must be set")
	}
	if c.SMTP.Host == "" || c.SMTP.Port <= 0 {
		return errs.Newf(errs.Config, "validate", "invalid SMTP server %q", c.SMTP.Address())
	}
	if c.IMAP.Host == "" || c.IMAP.Port <= 0 {
		return errs.Newf(errs.Config, "validate", "invalid IMAP server %q", c.IMAP.Address())
	}
	if c.Monitor.CheckIntervalSec <= 0 {
		return errs.Newf(errs.Config, "validate",
			"check interval must be positive, got %d", c.Monitor.CheckIntervalSec)
	}
	return nil
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailwatch/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailwatch", "config.yaml")
}

// envBindings maps config keys to the environment variables that
// override them.
var envBindings = map[string]string{
	"smtp.host":                  "SMTP_SERVER",
	"smtp.port":                  "SMTP_PORT",
	"imap.host":                  "IMAP_SERVER",
	"imap.port":                  "IMAP_PORT",
	"account.address":            "EMAIL_ADDRESS",
	"account.password":           "EMAIL_PASSWORD",
	"notification_email":         "NOTIFICATION_EMAIL",
	"monitor.check_interval_sec": "CHECK_INTERVAL",
	"db_path":                    "DB_PATH",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.tls", false)
	v.SetDefault("imap.host", "imap.gmail.com")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.tls", true)
	v.SetDefault("account.address", "")
	v.SetDefault("account.password", "")
	v.SetDefault("notification_email", "")
	v.SetDefault("monitor.check_interval_sec", 300)
	v.SetDefault("monitor.folder", "INBOX")
	v.SetDefault("monitor.mark_as_read", false)
	v.SetDefault("monitor.persist_seen", false)
	v.SetDefault("monitor.retry_failed_notifications", false)
	v.SetDefault("db_path", "emails.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// then applies environment overrides. A missing file is not an error; the
// defaults and environment are used instead.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("MAILWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env, "MAILWATCH_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, errs.New(errs.Config, "reading "+path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.New(errs.Config, "parsing "+path, err)
	}

	cfg.Account.Address = strings.TrimSpace(cfg.Account.Address)
	cfg.NotificationEmail = strings.TrimSpace(cfg.NotificationEmail)
	if cfg.Monitor.Folder == "" {
		cfg.Monitor.Folder = "INBOX"
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. The password is never written.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("smtp", cfg.SMTP)
	v.Set("imap", cfg.IMAP)
	v.Set("account.address", cfg.Account.Address)
	v.Set("notification_email", cfg.NotificationEmail)
	v.Set("monitor", cfg.Monitor)
	v.Set("db_path", cfg.DBPath)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
