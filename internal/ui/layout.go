// Package ui holds the layout shared by the full-screen views.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailwatch/internal/theme"
)

// Frame is a full-screen view with a one-line header and status bar.
type Frame struct {
	Width  int
	Height int
}

// NewFrame creates a Frame for a terminal of the given size.
func NewFrame(width, height int) Frame {
	return Frame{Width: width, Height: height}
}

// BodyHeight is the number of lines between the header and the status bar.
func (f Frame) BodyHeight() int {
	if h := f.Height - 2; h > 0 {
		return h
	}
	return 0
}

// bar renders left and right text on a full-width bar in style.
func (f Frame) bar(style lipgloss.Style, left, right string) string {
	l := style.Render(left)
	r := style.Render(right)
	gap := f.Width - lipgloss.Width(l) - lipgloss.Width(r)
	if gap < 0 {
		gap = 0
	}
	fill := style.Padding(0).Render(strings.Repeat(" ", gap))
	return lipgloss.JoinHorizontal(lipgloss.Top, l, fill, r)
}

// Render composes the header, the body and the status bar. The body is
// padded or cut to BodyHeight lines so the status bar stays at the bottom.
func (f Frame) Render(title, status, body, hints string) string {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	if h := f.BodyHeight(); h > 0 {
		if len(lines) > h {
			lines = lines[:h]
		}
		for len(lines) < h {
			lines = append(lines, "")
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		f.bar(theme.HeaderStyle, title, status),
		strings.Join(lines, "\n"),
		f.bar(theme.StatusBarStyle, hints, ""),
	)
}
