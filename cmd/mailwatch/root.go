package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mailwatch/internal/app"
	"github.com/nhle/mailwatch/internal/credential"
	"github.com/nhle/mailwatch/internal/model"
	"github.com/nhle/mailwatch/internal/store"
)

// interactiveLogFile receives logs while a terminal UI owns the screen.
const interactiveLogFile = "mailwatch.log"

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "mailwatch",
		Short: "Send, monitor, and get alerted about email",
		Long: "mailwatch sends single and bulk email, polls an IMAP inbox for new " +
			"messages, and sends an alert when a message matches a notification rule.\n\n" +
			"Run without a subcommand for the interactive menu.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, opts, true, nil, func(ctx context.Context, svc *app.Services) error {
				return app.NewMenu(svc, cmd.OutOrStdout()).Run(ctx)
			})
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", model.DefaultConfigPath(), "path to the config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	cmd.AddCommand(
		newSendCmd(opts),
		newBulkCmd(opts),
		newMonitorCmd(opts),
		newRulesCmd(opts),
		newStatsCmd(opts),
		newScheduleCmd(opts),
		newConfigCmd(opts),
		newPasswordCmd(opts),
	)

	return cmd
}

// loadConfig reads the configuration and fills the password from the
// keyring when neither the file nor the environment set it.
func loadConfig(opts *rootOptions) (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, nil
}

func fillPasswordFromKeyring(cfg *model.AppConfig, logger *slog.Logger) {
	if cfg.Account.Password != "" || cfg.Account.Address == "" {
		return
	}
	creds, err := credential.Open()
	if err != nil {
		logger.Debug("keyring unavailable", "error", err)
		return
	}
	filled, err := creds.FillPassword(cfg)
	if err != nil {
		logger.Warn("reading password from keyring", "error", err)
		return
	}
	if filled {
		logger.Debug("password loaded from keyring", "account", cfg.Account.Address)
	}
}

// withServices loads and validates the configuration, builds the
// services, and runs fn. mutate, if set, adjusts the configuration from
// command flags before validation.
func withServices(
	cmd *cobra.Command,
	opts *rootOptions,
	interactive bool,
	mutate func(*model.AppConfig) error,
	fn func(ctx context.Context, svc *app.Services) error,
) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if interactive && cfg.Log.File == "" {
		cfg.Log.File = interactiveLogFile
	}
	if mutate != nil {
		if err := mutate(cfg); err != nil {
			return err
		}
	}

	logger, closer, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()

	fillPasswordFromKeyring(cfg, logger)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, err := app.NewServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			logger.Warn("closing store", "error", closeErr)
		}
	}()

	logger.Debug("starting", "command", cmd.CommandPath(), "db_path", cfg.DBPath)
	err = fn(ctx, svc)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// withStore opens only the store. Commands that never talk to a mail
// server use it so they work before credentials are configured.
func withStore(
	cmd *cobra.Command,
	opts *rootOptions,
	fn func(ctx context.Context, st *store.SQLiteStore) error,
) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(cmd.Context(), st)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
