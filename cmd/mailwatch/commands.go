package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/mailwatch/internal/app"
	"github.com/nhle/mailwatch/internal/errs"
	"github.com/nhle/mailwatch/internal/model"
	"github.com/nhle/mailwatch/internal/scheduler"
	"github.com/nhle/mailwatch/internal/store"
	"github.com/nhle/mailwatch/internal/theme"
	"github.com/nhle/mailwatch/internal/ui/monitorview"
)

// readBody returns the inline body, or the contents of bodyFile when set.
func readBody(body, bodyFile string) (string, error) {
	if bodyFile == "" {
		return body, nil
	}
	data, err := os.ReadFile(bodyFile)
	if err != nil {
		return "", fmt.Errorf("reading body file: %w", err)
	}
	return string(data), nil
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	var to, subject, body, bodyFile string
	var html bool

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a single email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readBody(body, bodyFile)
			if err != nil {
				return err
			}
			return withServices(cmd, opts, false, nil, func(ctx context.Context, svc *app.Services) error {
				if err := svc.Mailer.Send(ctx, to, subject, text, html); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("Email sent to "+to))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "recipient address")
	cmd.Flags().StringVar(&subject, "subject", "", "subject line")
	cmd.Flags().StringVar(&body, "body", "", "message body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "read the message body from a file")
	cmd.Flags().BoolVar(&html, "html", false, "send the body as HTML")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("subject")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")

	return cmd
}

func newBulkCmd(opts *rootOptions) *cobra.Command {
	var spec app.BulkSpec
	var bodyFile string

	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Send a personalized message to every row of a CSV file",
		Long: "Sends one message per CSV row. Subject and body may reference any " +
			"column as {column}; the email column is the recipient.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readBody(spec.BodyTemplate, bodyFile)
			if err != nil {
				return err
			}
			spec.BodyTemplate = text
			return withServices(cmd, opts, false, nil, func(ctx context.Context, svc *app.Services) error {
				result, err := app.SendBulkFile(ctx, svc.Mailer, spec)
				fmt.Fprintf(cmd.OutOrStdout(), "Bulk email summary:\nSuccessfully sent: %d\nFailed: %d\n",
					result.Sent, result.Failed)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&spec.CSVPath, "csv", "", "CSV file with an email column")
	cmd.Flags().StringVar(&spec.SubjectTemplate, "subject", "", "subject template")
	cmd.Flags().StringVar(&spec.BodyTemplate, "body", "", "body template")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "read the body template from a file")
	cmd.Flags().BoolVar(&spec.HTML, "html", false, "send the body as HTML")
	_ = cmd.MarkFlagRequired("csv")
	_ = cmd.MarkFlagRequired("subject")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")

	return cmd
}

func newMonitorCmd(opts *rootOptions) *cobra.Command {
	var (
		once     bool
		live     bool
		interval int
		folder   string
		markRead bool
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Poll the mailbox and send alerts for matching messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mutate := func(cfg *model.AppConfig) error {
				if cmd.Flags().Changed("interval") {
					cfg.Monitor.CheckIntervalSec = interval
				}
				if folder != "" {
					cfg.Monitor.Folder = folder
				}
				if cmd.Flags().Changed("mark-read") {
					cfg.Monitor.MarkAsRead = markRead
				}
				return nil
			}

			return withServices(cmd, opts, live, mutate, func(ctx context.Context, svc *app.Services) error {
				mc := svc.Config.Monitor
				switch {
				case once:
					n, err := svc.Monitor.RunOnce(ctx, mc.Folder, mc.MarkAsRead)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Processed %d new email(s)\n", n)
					return nil
				case live:
					return monitorview.Run(ctx, svc.Monitor, mc.CheckInterval())
				default:
					svc.Logger.Info("monitoring started",
						"folder", mc.Folder, "interval", mc.CheckInterval())
					return svc.Monitor.RunForever(ctx, mc.CheckInterval())
				}
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")
	cmd.Flags().BoolVar(&live, "live", false, "show a live status screen")
	cmd.Flags().IntVar(&interval, "interval", 0, "seconds between passes (default from config)")
	cmd.Flags().StringVar(&folder, "folder", "", "mailbox folder (default from config)")
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "flag processed messages as read on the server")
	cmd.MarkFlagsMutuallyExclusive("once", "live")

	return cmd
}

func newRulesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage notification rules",
	}

	var in model.RuleInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a notification rule",
		Long:  "Adds a rule. Empty filters match anything; a rule with no filters matches every message.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *store.SQLiteStore) error {
				id, err := st.AddRule(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render(
					fmt.Sprintf("Notification rule '%s' added successfully (id %d)", strings.TrimSpace(in.Name), id)))
				return nil
			})
		},
	}
	add.Flags().StringVar(&in.Name, "name", "", "rule name")
	add.Flags().StringVar(&in.SenderFilter, "sender", "", "substring of the sender")
	add.Flags().StringVar(&in.SubjectFilter, "subject", "", "substring of the subject")
	add.Flags().StringVar(&in.KeywordFilter, "keyword", "", "substring of the body")
	_ = add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List all rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *store.SQLiteStore) error {
				rules, err := st.ListRules(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), app.RenderRules(rules))
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, newRuleToggleCmd(opts, "enable", true), newRuleToggleCmd(opts, "disable", false))
	return cmd
}

func newRuleToggleCmd(opts *rootOptions, verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " RULE_ID",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}
			return withStore(cmd, opts, func(ctx context.Context, st *store.SQLiteStore) error {
				if err := st.SetRuleEnabled(ctx, id, enabled); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rule %d %sd\n", id, verb)
				return nil
			})
		},
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show email statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *store.SQLiteStore) error {
				stats, err := st.Stats(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, app.RenderStats(stats))

				if recent <= 0 {
					return nil
				}
				sent, err := st.RecentSent(ctx, recent)
				if err != nil {
					return err
				}
				if len(sent) > 0 {
					fmt.Fprintln(out, theme.HeaderStyle.Render("Recent sends"))
					fmt.Fprintln(out, app.RenderSent(sent))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 10, "number of recent sends to list (0 to hide)")
	return cmd
}

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	var (
		plan     app.SchedulePlan
		bulk     app.BulkSpec
		bodyFile string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run monitoring, bulk sends, and reports on a schedule",
		Example: "  mailwatch schedule --monitor-every 5 --report-day monday --report-at 09:00\n" +
			"  mailwatch schedule --bulk-csv list.csv --bulk-subject 'Hi {name}' --bulk-body-file body.txt --bulk-at 08:30",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bulk.CSVPath != "" {
				text, err := readBody(bulk.BodyTemplate, bodyFile)
				if err != nil {
					return err
				}
				bulk.BodyTemplate = text
				plan.Bulk = &bulk
			}
			if plan.ReportDay != "" && plan.ReportAt == "" {
				plan.ReportAt = "09:00"
			}
			if plan.IsEmpty() {
				return errs.Newf(errs.Config, "schedule", "no jobs requested")
			}

			return withServices(cmd, opts, false, nil, func(ctx context.Context, svc *app.Services) error {
				sched := scheduler.New(svc.Logger)
				if err := plan.Apply(sched, svc.Deps()); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, j := range sched.Jobs() {
					fmt.Fprintf(out, "Scheduled %s (%s), next run %s\n",
						j.Name, j.Cadence, j.NextRun.Format(time.DateTime))
				}
				fmt.Fprintln(out, theme.HelpStyle.Render("Press Ctrl+C to stop"))
				return sched.Run(ctx)
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&plan.MonitorEveryMinutes, "monitor-every", 0, "run a monitoring pass every N minutes")
	f.StringVar(&bulk.CSVPath, "bulk-csv", "", "CSV file for the daily bulk send")
	f.StringVar(&bulk.SubjectTemplate, "bulk-subject", "", "subject template for the daily bulk send")
	f.StringVar(&bulk.BodyTemplate, "bulk-body", "", "body template for the daily bulk send")
	f.StringVar(&bodyFile, "bulk-body-file", "", "read the bulk body template from a file")
	f.BoolVar(&bulk.HTML, "bulk-html", false, "send the bulk body as HTML")
	f.StringVar(&plan.BulkAt, "bulk-at", "09:00", "daily time of the bulk send (HH:MM)")
	f.StringVar(&plan.ReportDay, "report-day", "", "weekday of the weekly report")
	f.StringVar(&plan.ReportAt, "report-at", "", "time of the weekly report (HH:MM, default 09:00)")
	cmd.MarkFlagsRequiredTogether("bulk-csv", "bulk-subject")
	cmd.MarkFlagsMutuallyExclusive("bulk-body", "bulk-body-file")

	return cmd
}
