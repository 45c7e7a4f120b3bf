// Package monitorview is the live monitoring screen: it runs a pass,
// waits for the check interval, and repeats until the user quits.
package monitorview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailwatch/internal/errs"
	"github.com/nhle/mailwatch/internal/keys"
	"github.com/nhle/mailwatch/internal/monitor"
	"github.com/nhle/mailwatch/internal/theme"
	"github.com/nhle/mailwatch/internal/ui"
)

// historyLimit is the number of passes listed on screen.
const historyLimit = 10

// Runner performs one monitoring pass.
type Runner interface {
	Pass(ctx context.Context) monitor.PassResult
}

// passDoneMsg carries the result of a finished pass.
type passDoneMsg monitor.PassResult

// tickMsg fires when the interval after a pass has elapsed. gen ties it
// to the pass that scheduled it so stale ticks are dropped.
type tickMsg struct {
	gen int
}

// Model is the Bubble Tea model of the live monitoring screen.
type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	runner   Runner
	interval time.Duration
	keys     *keys.KeyMap
	help     help.Model
	spinner  spinner.Model
	frame    ui.Frame

	running  bool
	paused   bool
	gen      int
	nextAt   time.Time
	passes   int
	failures int
	total    int
	history  []monitor.PassResult
	showHelp bool
	now      func() time.Time
}

// New creates the screen. Passes run with a child of ctx that is
// cancelled when the user quits.
func New(ctx context.Context, runner Runner, interval time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ctx, cancel := context.WithCancel(ctx)
	return Model{
		ctx:      ctx,
		cancel:   cancel,
		runner:   runner,
		interval: interval,
		keys:     keys.DefaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		frame:    ui.NewFrame(80, 24),
		running:  true,
		now:      time.Now,
	}
}

// Init starts the first pass immediately. New already marks the model
// as running.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startPass())
}

// startPass marks the model as running and returns the command that
// performs the pass. It must be called on the value that is returned
// from Update.
func (m *Model) startPass() tea.Cmd {
	m.running = true
	runner, ctx := m.runner, m.ctx
	return func() tea.Msg {
		return passDoneMsg(runner.Pass(ctx))
	}
}

func (m *Model) scheduleNext() tea.Cmd {
	m.gen++
	gen := m.gen
	m.nextAt = m.now().Add(m.interval)
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// Update handles messages for the monitoring screen.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.frame = ui.NewFrame(msg.Width, msg.Height)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, m.keys.RunNow):
			if m.running {
				return m, nil
			}
			m.gen++
			return m, m.startPass()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			if m.paused {
				m.gen++
				return m, nil
			}
			if m.running {
				return m, nil
			}
			return m, m.scheduleNext()
		}
		return m, nil

	case passDoneMsg:
		m.running = false
		m.record(monitor.PassResult(msg))
		if m.paused {
			return m, nil
		}
		return m, m.scheduleNext()

	case tickMsg:
		if msg.gen != m.gen || m.paused || m.running {
			return m, nil
		}
		return m, m.startPass()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) record(r monitor.PassResult) {
	m.passes++
	if r.Err != nil {
		m.failures++
	} else {
		m.total += r.Processed
	}
	m.history = append([]monitor.PassResult{r}, m.history...)
	if len(m.history) > historyLimit {
		m.history = m.history[:historyLimit]
	}
}

// View renders the monitoring screen.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.LabelStyle.Render("Passes:"))
	b.WriteString(theme.ValueStyle.Render(fmt.Sprintf("%d", m.passes)))
	b.WriteString("\n")
	b.WriteString(theme.LabelStyle.Render("New messages:"))
	b.WriteString(theme.ValueStyle.Render(fmt.Sprintf("%d", m.total)))
	b.WriteString("\n")
	b.WriteString(theme.LabelStyle.Render("Failed passes:"))
	b.WriteString(theme.ValueStyle.Render(fmt.Sprintf("%d", m.failures)))
	b.WriteString("\n\n")

	if len(m.history) == 0 {
		b.WriteString(theme.HelpStyle.Render("No passes yet."))
	}
	for _, r := range m.history {
		b.WriteString(renderPass(r))
		b.WriteString("\n")
	}

	content := b.String()
	if m.showHelp {
		m.help.ShowAll = true
		content = lipgloss.JoinVertical(lipgloss.Left, content, "", m.help.View(m.keys))
	}

	return m.frame.Render("mailwatch", m.statusText(), content,
		m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m Model) statusText() string {
	switch {
	case m.running:
		return m.spinner.View() + " checking inbox"
	case m.paused:
		return "paused"
	case !m.nextAt.IsZero():
		wait := m.nextAt.Sub(m.now()).Round(time.Second)
		if wait < 0 {
			wait = 0
		}
		return "next check in " + wait.String()
	default:
		return "idle"
	}
}

func renderPass(r monitor.PassResult) string {
	ts := r.Finished.Local().Format("15:04:05")
	if r.Err != nil {
		kind := errs.KindOf(r.Err).String()
		return fmt.Sprintf("%s  %s  %s", ts,
			theme.ErrorStyle.Render(kind), r.Err.Error())
	}
	return fmt.Sprintf("%s  %s", ts,
		theme.SuccessStyle.Render(fmt.Sprintf("%d new", r.Processed)))
}

// Run shows the screen until the user quits or ctx is cancelled.
func Run(ctx context.Context, runner Runner, interval time.Duration) error {
	if interval <= 0 {
		return errs.Newf(errs.Config, "starting monitor", "interval must be positive, got %s", interval)
	}

	m := New(ctx, runner, interval)
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("running monitor screen: %w", err)
	}
	return nil
}
