package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/nhle/mailwatch/internal/model"
	"github.com/nhle/mailwatch/internal/scheduler"
	"github.com/nhle/mailwatch/internal/theme"
	"github.com/nhle/mailwatch/internal/ui/monitorview"
)

const (
	actionSend     = "send"
	actionBulk     = "bulk"
	actionMonitor  = "monitor"
	actionAddRule  = "rule"
	actionStats    = "stats"
	actionSchedule = "schedule"
	actionExit     = "exit"
)

const (
	jobBulk    = "bulk"
	jobMonitor = "monitor"
	jobReport  = "report"
)

// Menu is the interactive front end offering every operation.
type Menu struct {
	svc *Services
	out io.Writer
}

// NewMenu creates a menu that prints results to out.
func NewMenu(svc *Services, out io.Writer) *Menu {
	return &Menu{svc: svc, out: out}
}

// Run shows the main menu until the user exits or ctx is cancelled.
func (m *Menu) Run(ctx context.Context) error {
	for {
		var action string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Email Automation").
					Options(
						huh.NewOption("Send single email", actionSend),
						huh.NewOption("Send bulk emails from CSV", actionBulk),
						huh.NewOption("Start email monitoring", actionMonitor),
						huh.NewOption("Add notification rule", actionAddRule),
						huh.NewOption("View statistics", actionStats),
						huh.NewOption("Schedule tasks", actionSchedule),
						huh.NewOption("Exit", actionExit),
					).
					Value(&action),
			),
		)

		if err := form.RunWithContext(ctx); err != nil {
			if errors.Is(err, huh.ErrUserAborted) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if action == actionExit {
			return nil
		}

		err := m.dispatch(ctx, action)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, huh.ErrUserAborted):
			m.println(theme.HelpStyle.Render("Cancelled."))
		default:
			m.println(theme.ErrorStyle.Render("Error: " + err.Error()))
		}
	}
}

func (m *Menu) dispatch(ctx context.Context, action string) error {
	switch action {
	case actionSend:
		return m.sendSingle(ctx)
	case actionBulk:
		return m.sendBulk(ctx)
	case actionMonitor:
		return m.startMonitoring(ctx)
	case actionAddRule:
		return m.addRule(ctx)
	case actionStats:
		return m.showStats(ctx)
	case actionSchedule:
		return m.scheduleTasks(ctx)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

func (m *Menu) sendSingle(ctx context.Context) error {
	var to, subject, body string
	var html bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Recipient email").
				Value(&to).
				Validate(validateRequired("Recipient")),
			huh.NewInput().
				Title("Subject").
				Value(&subject),
			huh.NewText().
				Title("Body").
				Value(&body),
			huh.NewConfirm().
				Title("Send as HTML?").
				Value(&html),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return err
	}

	if err := m.svc.Mailer.Send(ctx, to, subject, body, html); err != nil {
		return fmt.Errorf("sending to %s: %w", to, err)
	}
	m.println(theme.SuccessStyle.Render("Email sent successfully to " + strings.TrimSpace(to)))
	return nil
}

func (m *Menu) bulkFields(spec *BulkSpec) []huh.Field {
	return []huh.Field{
		huh.NewInput().
			Title("CSV file path").
			Placeholder("contacts.csv").
			Value(&spec.CSVPath).
			Validate(validateFile),
		huh.NewInput().
			Title("Subject template").
			Description("Use {fieldname} for personalization").
			Value(&spec.SubjectTemplate),
		huh.NewText().
			Title("Body template").
			Description("Use {fieldname} for personalization").
			Value(&spec.BodyTemplate),
		huh.NewConfirm().
			Title("Send as HTML?").
			Value(&spec.HTML),
	}
}

func (m *Menu) sendBulk(ctx context.Context) error {
	var spec BulkSpec
	if err := huh.NewForm(huh.NewGroup(m.bulkFields(&spec)...)).RunWithContext(ctx); err != nil {
		return err
	}

	result, err := SendBulkFile(ctx, m.svc.Mailer, spec)
	m.println(fmt.Sprintf("\nBulk email summary:\nSuccessfully sent: %d\nFailed: %d", result.Sent, result.Failed))
	return err
}

func (m *Menu) startMonitoring(ctx context.Context) error {
	intervalText := strconv.Itoa(m.svc.Config.Monitor.CheckIntervalSec)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Check interval in seconds").
				Value(&intervalText).
				Validate(validatePositiveInt),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return err
	}

	seconds, _ := strconv.Atoi(strings.TrimSpace(intervalText))
	return monitorview.Run(ctx, m.svc.Monitor, time.Duration(seconds)*time.Second)
}

func (m *Menu) addRule(ctx context.Context) error {
	var in model.RuleInput

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Rule name").
				Value(&in.Name).
				Validate(validateRequired("Rule name")),
			huh.NewInput().
				Title("Sender filter").
				Placeholder("leave empty for any").
				Value(&in.SenderFilter),
			huh.NewInput().
				Title("Subject filter").
				Placeholder("leave empty for any").
				Value(&in.SubjectFilter),
			huh.NewInput().
				Title("Keyword filter").
				Placeholder("leave empty for any").
				Value(&in.KeywordFilter),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return err
	}

	if _, err := m.svc.Store.AddRule(ctx, in); err != nil {
		return err
	}
	m.println(theme.SuccessStyle.Render(fmt.Sprintf("Notification rule '%s' added successfully", strings.TrimSpace(in.Name))))
	return nil
}

func (m *Menu) showStats(ctx context.Context) error {
	stats, err := m.svc.Store.Stats(ctx)
	if err != nil {
		return err
	}
	m.println(RenderStats(stats))

	recent, err := m.svc.Store.RecentSent(ctx, 10)
	if err != nil {
		return err
	}
	if len(recent) > 0 {
		m.println(theme.HeaderStyle.Render("Recent sends"))
		m.println(RenderSent(recent))
	}
	return nil
}

func (m *Menu) scheduleTasks(ctx context.Context) error {
	var jobs []string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Schedule tasks").
				Options(
					huh.NewOption("Schedule bulk email", jobBulk),
					huh.NewOption("Schedule email monitoring", jobMonitor),
					huh.NewOption("Schedule weekly report", jobReport),
				).
				Value(&jobs).
				Validate(func(v []string) error {
					if len(v) == 0 {
						return errors.New("select at least one task")
					}
					return nil
				}),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return err
	}

	var plan SchedulePlan
	var groups []*huh.Group

	bulkAt := "09:00"
	minutesText := "5"
	reportDay := "Monday"
	reportAt := "09:00"

	for _, job := range jobs {
		switch job {
		case jobBulk:
			plan.Bulk = &BulkSpec{}
			fields := m.bulkFields(plan.Bulk)
			fields = append(fields, huh.NewInput().
				Title("Time (HH:MM, 24-hour)").
				Value(&bulkAt).
				Validate(validateTimeOfDay))
			groups = append(groups, huh.NewGroup(fields...).Title("Bulk email"))
		case jobMonitor:
			groups = append(groups, huh.NewGroup(
				huh.NewInput().
					Title("Interval in minutes").
					Value(&minutesText).
					Validate(validatePositiveInt),
			).Title("Email monitoring"))
		case jobReport:
			groups = append(groups, huh.NewGroup(
				huh.NewSelect[string]().
					Title("Day of week").
					Options(huh.NewOptions(
						"Monday", "Tuesday", "Wednesday", "Thursday",
						"Friday", "Saturday", "Sunday",
					)...).
					Value(&reportDay),
				huh.NewInput().
					Title("Time (HH:MM, 24-hour)").
					Value(&reportAt).
					Validate(validateTimeOfDay),
			).Title("Weekly report"))
		}
	}

	if err := huh.NewForm(groups...).RunWithContext(ctx); err != nil {
		return err
	}

	for _, job := range jobs {
		switch job {
		case jobBulk:
			plan.BulkAt = bulkAt
		case jobMonitor:
			plan.MonitorEveryMinutes, _ = strconv.Atoi(strings.TrimSpace(minutesText))
		case jobReport:
			plan.ReportDay = reportDay
			plan.ReportAt = reportAt
		}
	}

	sched := scheduler.New(m.svc.Logger)
	if err := plan.Apply(sched, m.svc.Deps()); err != nil {
		return err
	}

	for _, j := range sched.Jobs() {
		m.println(fmt.Sprintf("Scheduled %s (%s), next run %s",
			j.Name, j.Cadence, j.NextRun.Format("Mon 2006-01-02 15:04")))
	}
	m.println(theme.HelpStyle.Render("Starting scheduler... Press Ctrl+C to stop"))

	return sched.Run(ctx)
}

func (m *Menu) println(s string) {
	fmt.Fprintln(m.out, s)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errors.New("enter a positive whole number")
	}
	return nil
}

func validateTimeOfDay(s string) error {
	if _, err := scheduler.ParseTimeOfDay(s); err != nil {
		return errors.New("use HH:MM, 24-hour")
	}
	return nil
}

func validateFile(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("CSV file path is required")
	}
	info, err := os.Stat(s)
	if err != nil {
		return fmt.Errorf("cannot open %s", s)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", s)
	}
	return nil
}
