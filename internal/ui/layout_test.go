package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestFrameBodyHeight(t *testing.T) {
	assert.Equal(t, 22, NewFrame(80, 24).BodyHeight())
	assert.Equal(t, 0, NewFrame(80, 1).BodyHeight())
}

func TestFrameRenderPadsBody(t *testing.T) {
	f := NewFrame(40, 8)
	out := f.Render("mailwatch", "idle", "one\ntwo", "q quit")

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 8)
	assert.Contains(t, lines[0], "mailwatch")
	assert.Contains(t, lines[0], "idle")
	assert.Contains(t, lines[1], "one")
	assert.Contains(t, lines[7], "q quit")
	assert.Equal(t, 40, lipgloss.Width(lines[0]))
}

func TestFrameRenderCutsLongBody(t *testing.T) {
	f := NewFrame(40, 4)
	out := f.Render("t", "", "a\nb\nc\nd\ne", "")

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[2], "b")
}
