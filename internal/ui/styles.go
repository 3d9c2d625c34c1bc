// Package ui provides terminal styling for rollup CLI output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rollup-metrics/rollup/internal/types"
)

// Ayu theme color palette
// Dark: https://terminalcolors.com/themes/ayu/dark/
// Light: https://terminalcolors.com/themes/ayu/light/
var (
	ColorGreen = lipgloss.AdaptiveColor{
		Light: "#86b300", // ayu light bright green
		Dark:  "#c2d94c", // ayu dark bright green
	}
	ColorYellow = lipgloss.AdaptiveColor{
		Light: "#f2ae49", // ayu light bright yellow
		Dark:  "#ffb454", // ayu dark bright yellow
	}
	ColorRed = lipgloss.AdaptiveColor{
		Light: "#f07171", // ayu light bright red
		Dark:  "#f07178", // ayu dark bright red
	}
	ColorGrey = lipgloss.AdaptiveColor{
		Light: "#828c99", // ayu light muted
		Dark:  "#6c7680", // ayu dark muted
	}
	ColorBlue = lipgloss.AdaptiveColor{
		Light: "#399ee6", // ayu light bright blue
		Dark:  "#59c2ff", // ayu dark bright blue
	}
)

var (
	GreenStyle  = lipgloss.NewStyle().Foreground(ColorGreen)
	YellowStyle = lipgloss.NewStyle().Foreground(ColorYellow)
	RedStyle    = lipgloss.NewStyle().Foreground(ColorRed)
	GreyStyle   = lipgloss.NewStyle().Foreground(ColorGrey)
	BlueStyle   = lipgloss.NewStyle().Foreground(ColorBlue)
)

// HeaderStyle for section headers - bold with accent color
var HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorBlue)

// metricStyles maps the metric color contract onto terminal styles.
var metricStyles = map[types.Color]lipgloss.Style{
	types.ColorGreen:  GreenStyle,
	types.ColorYellow: YellowStyle,
	types.ColorRed:    RedStyle,
	types.ColorBlue:   BlueStyle,
	types.ColorGrey:   GreyStyle,
}

// RenderMetric renders a metric label in its threshold color. Unknown
// colors fall back to muted grey.
func RenderMetric(label string, color types.Color) string {
	style, ok := metricStyles[color]
	if !ok {
		style = GreyStyle
	}
	return style.Render(label)
}

// RenderHeader renders a section header.
func RenderHeader(s string) string {
	return HeaderStyle.Render(s)
}

// RenderMuted renders text with muted (grey) styling.
func RenderMuted(s string) string {
	return GreyStyle.Render(s)
}
