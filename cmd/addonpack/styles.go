// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Palette entries pick a darker shade on light terminals.
var (
	accent  = lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"}
	muted   = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
	good    = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	bad     = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	caution = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	link    = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
)

// Output styles. Rendering honors NO_COLOR and non-TTY writers through lipgloss.
var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	SubtitleStyle = lipgloss.NewStyle().Foreground(muted)
	SuccessStyle  = lipgloss.NewStyle().Foreground(good)
	ErrorStyle    = lipgloss.NewStyle().Bold(true).Foreground(bad)
	WarningStyle  = lipgloss.NewStyle().Foreground(caution)
	// KeyStyle marks paths, member names and config keys.
	KeyStyle = lipgloss.NewStyle().Foreground(link)
)
