// Package ui provides styled terminal output helpers for the CLI.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	headStyle   = lipgloss.NewStyle().Bold(true)
)

// colorEnabled reports whether the terminal supports styled output.
// NO_COLOR and dumb terminals disable it.
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return termenv.DefaultOutput().Profile != termenv.Ascii
}

func render(style lipgloss.Style, s string) string {
	if !colorEnabled() {
		return s
	}
	return style.Render(s)
}

// RenderPass styles s for successful outcomes.
func RenderPass(s string) string { return render(passStyle, s) }

// RenderFail styles s for failures.
func RenderFail(s string) string { return render(failStyle, s) }

// RenderWarn styles s for warnings.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderAccent styles s for emphasis (ids, titles, paths).
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderDim styles s for secondary detail.
func RenderDim(s string) string { return render(dimStyle, s) }

// RenderHeader styles s as a section header.
func RenderHeader(s string) string { return render(headStyle, s) }
