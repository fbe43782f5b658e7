// Package tui is the terminal history browser.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tagging-ai/tagboard/internal/views"
)

// palette maps treatment names to ANSI colors.
var palette = map[string]lipgloss.Color{
	"green":  lipgloss.Color("2"),
	"gray":   lipgloss.Color("8"),
	"red":    lipgloss.Color("1"),
	"blue":   lipgloss.Color("4"),
	"yellow": lipgloss.Color("3"),
	"slate":  lipgloss.Color("7"),
}

// Styles groups the lipgloss styles used by the browser.
type Styles struct {
	Title   lipgloss.Style
	Dim     lipgloss.Style
	Notice  lipgloss.Style
	Error   lipgloss.Style
	Modal   lipgloss.Style
	Label   lipgloss.Style
	Focused lipgloss.Style
	Help    lipgloss.Style
}

// DefaultStyles returns the standard styles.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Notice:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Modal:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("6")).Padding(0, 1),
		Label:   lipgloss.NewStyle().Bold(true),
		Focused: lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("6")),
		Help:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
	}
}

// Badge renders value in the color of its treatment.
func Badge(t views.Treatment, value string) string {
	c, ok := palette[t.Name]
	if !ok {
		c = palette[views.Default.Name]
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render(value)
}
