// Package app wires the mailwatch components together and provides the
// interactive menu and the scheduled jobs.
package app

import (
	"context"
	"log/slog"

	"github.com/nhle/mailwatch/internal/mailer"
	"github.com/nhle/mailwatch/internal/model"
	"github.com/nhle/mailwatch/internal/monitor"
	"github.com/nhle/mailwatch/internal/seen"
	"github.com/nhle/mailwatch/internal/source/email"
	"github.com/nhle/mailwatch/internal/store"
)

// Services holds the long-lived components built from the configuration.
type Services struct {
	Config  *model.AppConfig
	Store   *store.SQLiteStore
	Mailer  *mailer.Mailer
	Monitor *monitor.Monitor
	Logger  *slog.Logger
}

// NewServices opens the store and builds the mailer and the monitor.
// The caller must call Close.
func NewServices(ctx context.Context, cfg *model.AppConfig, logger *slog.Logger) (*Services, error) {
	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	seenSet := seen.NewMemory()
	if cfg.Monitor.PersistSeen {
		seenSet, err = seen.NewPersistent(ctx, st, logger)
		if err != nil {
			st.Close()
			return nil, err
		}
		logger.Debug("loaded processed message ids", "count", seenSet.Len())
	}

	transport := mailer.NewSMTPTransport(cfg.SMTP, cfg.Account, logger)
	m := mailer.New(transport, st, cfg.Account.Address, cfg.NotificationEmail, logger)

	src := email.NewIMAPSource(cfg.IMAP, cfg.Account, logger)
	mon := monitor.New(src, st, m, seenSet, logger, monitor.Options{
		Folder:                   cfg.Monitor.Folder,
		MarkAsRead:               cfg.Monitor.MarkAsRead,
		RetryFailedNotifications: cfg.Monitor.RetryFailedNotifications,
	})

	return &Services{
		Config:  cfg,
		Store:   st,
		Mailer:  m,
		Monitor: mon,
		Logger:  logger,
	}, nil
}

// Close releases the store.
func (s *Services) Close() error {
	return s.Store.Close()
}
