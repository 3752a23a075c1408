package cli

import "github.com/charmbracelet/lipgloss"

// theme is subword's CLI color palette.
type theme struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

func defaultTheme() theme {
	return theme{
		Title:   lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
		Value:   lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	}
}

var styles = defaultTheme()
