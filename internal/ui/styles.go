// Package ui styles the short markers mpr prints to the terminal.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	renderer = lipgloss.NewRenderer(os.Stdout)

	accentStyle lipgloss.Style
	failStyle   lipgloss.Style
	mutedStyle  lipgloss.Style
)

func init() {
	if !term.IsTerminal(int(os.Stdout.Fd())) || termenv.EnvNoColor() {
		renderer.SetColorProfile(termenv.Ascii)
	}
	buildStyles()
}

func buildStyles() {
	accentStyle = renderer.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0550ae", Dark: "#58a6ff"}).Bold(true)
	failStyle = renderer.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"}).Bold(true)
	mutedStyle = renderer.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6e7781", Dark: "#8b949e"})
}

// SetColor forces colour on or off, overriding terminal detection.
func SetColor(enabled bool) {
	if enabled {
		renderer.SetColorProfile(termenv.ANSI256)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}
	buildStyles()
}

// RenderAccent styles progress markers such as ">>".
func RenderAccent(s string) string {
	return accentStyle.Render(s)
}

// RenderFail styles failures.
func RenderFail(s string) string {
	return failStyle.Render(s)
}

// RenderMuted styles secondary detail such as timestamps.
func RenderMuted(s string) string {
	return mutedStyle.Render(s)
}
