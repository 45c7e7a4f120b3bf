// Package setup is the interactive editor for the account and server
// settings. It tests the IMAP login before anything is saved.
package setup

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailwatch/internal/model"
	"github.com/nhle/mailwatch/internal/theme"
)

// Mode represents the current state of the setup view.
type Mode int

const (
	ModeForm           Mode = iota // Editing settings
	ModeValidating                 // Testing the login
	ModeValidateResult             // Showing the login result
	ModeSaved                      // Settings written
)

// CheckFunc tests a connection with the given settings.
type CheckFunc func(ctx context.Context, cfg *model.AppConfig) error

// SaveFunc persists the settings. password is empty when the user kept
// the stored one.
type SaveFunc func(cfg *model.AppConfig, password string) error

// ValidateResultMsg carries the result of a connection check.
type ValidateResultMsg struct {
	Err error
}

type savedMsg struct {
	err error
}

// Model is the Bubble Tea model for the setup wizard.
type Model struct {
	ctx   context.Context
	mode  Mode
	cfg   model.AppConfig
	check CheckFunc
	save  SaveFunc

	form *huh.Form

	// Form field values (huh binds to these)
	formSMTPHost     string
	formSMTPPort     string
	formSMTPTLS      bool
	formIMAPHost     string
	formIMAPPort     string
	formIMAPTLS      bool
	formAddress      string
	formPassword     string
	formNotification string
	formInterval     string

	validError error
	saveError  error
	spinner    spinner.Model

	width, height int
}

// New creates a setup model prefilled from cfg. cfg is copied; the edited
// settings are available from Config after the program exits.
func New(ctx context.Context, cfg *model.AppConfig, check CheckFunc, save SaveFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	m := Model{
		ctx:     ctx,
		mode:    ModeForm,
		cfg:     *cfg,
		check:   check,
		save:    save,
		spinner: sp,
		width:   80,
	}
	m.loadFields()
	m.form = m.buildForm()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Mode returns the current mode.
func (m Model) Mode() Mode {
	return m.mode
}

// Config returns the settings as last applied from the form.
func (m Model) Config() model.AppConfig {
	return m.cfg
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ValidateResultMsg:
		m.validError = msg.Err
		m.mode = ModeValidateResult
		return m, nil

	case savedMsg:
		m.saveError = msg.err
		if msg.err != nil {
			m.mode = ModeValidateResult
			return m, nil
		}
		m.mode = ModeSaved
		return m, tea.Quit

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case ModeValidateResult:
			return m.handleResultKeys(msg)
		case ModeValidating:
			if msg.String() == "esc" {
				m.mode = ModeValidateResult
				m.validError = context.Canceled
			}
			return m, nil
		}
	}

	if m.mode == ModeForm {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.submit()
	case huh.StateAborted:
		return m, tea.Quit
	}
	return m, cmd
}

// submit applies the form fields and starts the connection check.
func (m Model) submit() (tea.Model, tea.Cmd) {
	m.applyFields()
	m.mode = ModeValidating
	m.validError = nil
	m.saveError = nil
	return m, tea.Batch(m.spinner.Tick, m.validate())
}

// handleResultKeys processes key events on the validation result screen.
func (m Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "s":
		if m.validError != nil && msg.String() == "enter" {
			return m, nil
		}
		return m, m.persist()
	case "r":
		m.mode = ModeValidating
		m.validError = nil
		return m, tea.Batch(m.spinner.Tick, m.validate())
	case "e":
		m.mode = ModeForm
		m.form = m.buildForm()
		return m, m.form.Init()
	case "esc", "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) validate() tea.Cmd {
	cfg := m.cfg
	if m.formPassword != "" {
		cfg.Account.Password = m.formPassword
	}
	check, ctx := m.check, m.ctx
	return func() tea.Msg {
		return ValidateResultMsg{Err: check(ctx, &cfg)}
	}
}

func (m Model) persist() tea.Cmd {
	cfg, password, save := m.cfg, m.formPassword, m.save
	return func() tea.Msg {
		return savedMsg{err: save(&cfg, password)}
	}
}

// View renders the current mode.
func (m Model) View() string {
	style := lipgloss.NewStyle().Padding(1, 2).Width(m.width)

	switch m.mode {
	case ModeValidating:
		return style.Render(fmt.Sprintf(
			"%s Testing login to %s...\n\nPress esc to cancel.",
			m.spinner.View(), m.cfg.IMAP.Address()))

	case ModeValidateResult:
		return style.Render(m.viewResult())

	case ModeSaved:
		return style.Render(theme.SuccessStyle.Render("Settings saved"))
	}

	return style.Render(theme.HeaderStyle.Render("mailwatch setup") + "\n\n" + m.form.View())
}

func (m Model) viewResult() string {
	help := theme.HelpStyle

	if m.saveError != nil {
		return theme.ErrorStyle.Render("Saving failed") + "\n\n" +
			m.saveError.Error() + "\n\n" +
			help.Render("s retry | e edit | esc quit")
	}

	if m.validError != nil {
		return theme.ErrorStyle.Render("Connection failed") + "\n\n" +
			m.validError.Error() + "\n\n" +
			help.Render("r retry | e edit | s save anyway | esc quit")
	}

	return theme.SuccessStyle.Render("Connection successful") + "\n\n" +
		fmt.Sprintf("Logged in as: %s", m.cfg.Account.Address) + "\n\n" +
		help.Render("enter save | e edit | esc quit")
}

func (m *Model) loadFields() {
	m.formSMTPHost = m.cfg.SMTP.Host
	m.formSMTPPort = strconv.Itoa(m.cfg.SMTP.Port)
	m.formSMTPTLS = m.cfg.SMTP.TLS
	m.formIMAPHost = m.cfg.IMAP.Host
	m.formIMAPPort = strconv.Itoa(m.cfg.IMAP.Port)
	m.formIMAPTLS = m.cfg.IMAP.TLS
	m.formAddress = m.cfg.Account.Address
	m.formNotification = m.cfg.NotificationEmail
	m.formInterval = strconv.Itoa(m.cfg.Monitor.CheckIntervalSec)
}

// applyFields copies the validated form values into cfg.
func (m *Model) applyFields() {
	m.cfg.SMTP.Host = strings.TrimSpace(m.formSMTPHost)
	m.cfg.SMTP.Port, _ = strconv.Atoi(strings.TrimSpace(m.formSMTPPort))
	m.cfg.SMTP.TLS = m.formSMTPTLS
	m.cfg.IMAP.Host = strings.TrimSpace(m.formIMAPHost)
	m.cfg.IMAP.Port, _ = strconv.Atoi(strings.TrimSpace(m.formIMAPPort))
	m.cfg.IMAP.TLS = m.formIMAPTLS
	m.cfg.Account.Address = strings.TrimSpace(m.formAddress)
	m.cfg.NotificationEmail = strings.TrimSpace(m.formNotification)
	m.cfg.Monitor.CheckIntervalSec, _ = strconv.Atoi(strings.TrimSpace(m.formInterval))
}

func (m *Model) buildForm() *huh.Form {
	passwordDesc := "Account password or app password"
	validatePassword := validateRequired("Password")
	if m.cfg.Account.Password != "" {
		passwordDesc = "Leave empty to keep the current password"
		validatePassword = func(string) error { return nil }
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email address").
				Placeholder("user@example.com").
				Value(&m.formAddress).
				Validate(validateRequired("Email address")),
			huh.NewInput().
				Title("Password").
				Description(passwordDesc).
				EchoMode(huh.EchoModePassword).
				Value(&m.formPassword).
				Validate(validatePassword),
			huh.NewInput().
				Title("Notification email").
				Description("Receives rule alerts and weekly reports").
				Value(&m.formNotification),
		).Title("Account"),
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.example.com").
				Value(&m.formIMAPHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Value(&m.formIMAPPort).
				Validate(validatePort),
			huh.NewConfirm().
				Title("IMAP implicit TLS").
				Description("No uses STARTTLS").
				Affirmative("Yes").
				Negative("No").
				Value(&m.formIMAPTLS),
			huh.NewInput().
				Title("SMTP Host").
				Placeholder("smtp.example.com").
				Value(&m.formSMTPHost).
				Validate(validateRequired("SMTP Host")),
			huh.NewInput().
				Title("SMTP Port").
				Value(&m.formSMTPPort).
				Validate(validatePort),
			huh.NewConfirm().
				Title("SMTP implicit TLS").
				Description("No uses STARTTLS").
				Affirmative("Yes").
				Negative("No").
				Value(&m.formSMTPTLS),
		).Title("Servers"),
		huh.NewGroup(
			huh.NewInput().
				Title("Check interval (seconds)").
				Value(&m.formInterval).
				Validate(validatePositive),
		).Title("Monitoring"),
	).WithWidth(m.formWidth())
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}

// Run shows the wizard and reports whether the settings were saved.
func Run(ctx context.Context, cfg *model.AppConfig, check CheckFunc, save SaveFunc) (bool, error) {
	p := tea.NewProgram(New(ctx, cfg, check, save), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(Model)
	return ok && m.mode == ModeSaved, nil
}
