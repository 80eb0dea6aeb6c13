package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Base styles for livesub TUI components
var (
	// Header style for titles and section headers
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	// Label style for form field labels
	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	// Success style for positive feedback
	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// Error style for error messages
	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	// Warning style for warnings
	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// Muted style for secondary text
	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// Subtitle style renders a caption preview the way the overlay draws it.
	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 2)
)

const logoASCII = `
 _ _                     _     
| (_)_   _____  ___ _   _| |__  
| | \ \ / / _ \/ __| | | | '_ \ 
| | |\ V /  __/\__ \ |_| | |_) |
|_|_| \_/ \___||___/\__,_|_.__/ `

// Logo returns the livesub ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
