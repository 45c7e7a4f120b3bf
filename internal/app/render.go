package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailwatch/internal/model"
	"github.com/nhle/mailwatch/internal/theme"
)

// RenderStats formats the aggregate counts as a boxed panel.
func RenderStats(stats model.Stats) string {
	rows := []string{
		theme.HeaderStyle.Render("Email Statistics"),
		"",
		statRow("Sent emails", stats.Sent),
		statRow("Failed emails", stats.Failed),
		statRow("Monitored emails", stats.Monitored),
	}
	return theme.PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func statRow(label string, n int) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		theme.LabelStyle.Render(label+":"),
		theme.ValueStyle.Render(fmt.Sprintf("%d", n)),
	)
}

// RenderRules lists notification rules one per line.
func RenderRules(rules []model.NotificationRule) string {
	if len(rules) == 0 {
		return theme.HelpStyle.Render("No notification rules.")
	}

	var b strings.Builder
	for _, r := range rules {
		state := "enabled"
		if !r.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(&b, "%3d  %-24s %s  %s\n",
			r.ID, r.Name,
			theme.RuleStateStyle(r.Enabled).Render(fmt.Sprintf("%-8s", state)),
			describeFilters(r),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeFilters(r model.NotificationRule) string {
	if r.IsCatchAll() {
		return theme.HelpStyle.Render("matches every message")
	}
	var parts []string
	if r.SenderFilter != "" {
		parts = append(parts, fmt.Sprintf("sender~%q", r.SenderFilter))
	}
	if r.SubjectFilter != "" {
		parts = append(parts, fmt.Sprintf("subject~%q", r.SubjectFilter))
	}
	if r.KeywordFilter != "" {
		parts = append(parts, fmt.Sprintf("body~%q", r.KeywordFilter))
	}
	return strings.Join(parts, " AND ")
}

// RenderSent lists recent send attempts, newest first.
func RenderSent(sent []model.SentEmail) string {
	if len(sent) == 0 {
		return theme.HelpStyle.Render("No emails sent yet.")
	}

	var b strings.Builder
	for _, e := range sent {
		line := fmt.Sprintf("%s  %s  %-30s %s",
			e.SentAt.Local().Format("2006-01-02 15:04"),
			theme.SendStatusStyle(e.Status).Render(fmt.Sprintf("%-6s", e.Status)),
			e.Recipient, e.Subject,
		)
		if e.ErrorMessage != "" {
			line += "  " + theme.ErrorStyle.Render(e.ErrorMessage)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
