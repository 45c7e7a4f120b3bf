package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/mailwatch/internal/credential"
	"github.com/nhle/mailwatch/internal/errs"
	"github.com/nhle/mailwatch/internal/model"
	"github.com/nhle/mailwatch/internal/source/email"
	"github.com/nhle/mailwatch/internal/theme"
	"github.com/nhle/mailwatch/internal/ui/setup"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current settings to the config file",
		Long: "Writes defaults merged with any environment overrides to the config " +
			"file. The password is never written; store it with 'mailwatch password set'.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(opts.configPath); err == nil && !force {
				return errs.Newf(errs.Config, "config init",
					"%s already exists, use --force to overwrite", opts.configPath)
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := model.SaveConfig(opts.configPath, cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("Wrote "+opts.configPath))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), opts.configPath)
		},
	}

	editCmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit account and server settings interactively",
		Long: "Opens a form with the current settings, tests the IMAP login, then " +
			"writes the config file. A new password goes to the system keyring.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd, opts)
		},
	}

	cmd.AddCommand(initCmd, editCmd, pathCmd)
	return cmd
}

func runSetup(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logCfg := cfg.Log
	if logCfg.File == "" {
		logCfg.File = interactiveLogFile
	}
	logger, closer, err := newLogger(logCfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()

	fillPasswordFromKeyring(cfg, logger)

	check := func(ctx context.Context, c *model.AppConfig) error {
		sess, err := email.NewIMAPSource(c.IMAP, c.Account, logger).Connect(ctx)
		if err != nil {
			return err
		}
		return sess.Close()
	}
	save := func(c *model.AppConfig, password string) error {
		if err := model.SaveConfig(opts.configPath, c); err != nil {
			return err
		}
		if password == "" {
			return nil
		}
		creds, err := credential.Open()
		if err != nil {
			return err
		}
		return creds.SetPassword(c.Account.Address, password)
	}

	saved, err := setup.Run(cmd.Context(), cfg, check, save)
	if err != nil {
		return err
	}
	if saved {
		fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("Wrote "+opts.configPath))
	}
	return nil
}

func newPasswordCmd(opts *rootOptions) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Manage the account password in the system keyring",
	}
	cmd.PersistentFlags().StringVar(&account, "account", "", "account address (default from config)")

	resolve := func() (string, *credential.Store, error) {
		cfg, err := loadConfig(opts)
		if err != nil {
			return "", nil, err
		}
		addr := strings.TrimSpace(firstNonEmpty(account, cfg.Account.Address))
		if addr == "" {
			return "", nil, errs.Newf(errs.Config, "password", "no account address configured, pass --account")
		}
		creds, err := credential.Open()
		if err != nil {
			return "", nil, err
		}
		return addr, creds, nil
	}

	var fromStdin bool
	set := &cobra.Command{
		Use:   "set",
		Short: "Store the account password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, creds, err := resolve()
			if err != nil {
				return err
			}

			var password string
			if fromStdin {
				password, err = readLine(cmd.InOrStdin())
			} else {
				password, err = promptPassword(cmd, addr)
			}
			if err != nil {
				return err
			}
			if password == "" {
				return errs.Newf(errs.Config, "password set", "password is empty")
			}

			if err := creds.SetPassword(addr, password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("Password stored for "+addr))
			return nil
		},
	}
	set.Flags().BoolVar(&fromStdin, "stdin", false, "read the password from standard input")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored account password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, creds, err := resolve()
			if err != nil {
				return err
			}
			if err := creds.DeletePassword(addr); err != nil {
				if errors.Is(err, credential.ErrNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "No password stored for "+addr)
					return nil
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password removed for "+addr)
			return nil
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}

func promptPassword(cmd *cobra.Command, addr string) (string, error) {
	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Password for " + addr).
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	)
	if err := form.RunWithContext(cmd.Context()); err != nil {
		return "", err
	}
	return password, nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
