package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	SetColor(ShouldUseColor())
}

// SetColor switches colored output on or off for every style.
func SetColor(on bool) {
	if on {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

var (
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}

	// Jira status categories
	ColorStatusDone       = lipgloss.AdaptiveColor{Light: "#6cbf43", Dark: "#aad94c"}
	ColorStatusInProgress = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	ColorStatusBlocked    = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f26d78"}

	// Jira priorities
	ColorPriorityHighest = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	ColorPriorityHigh    = lipgloss.AdaptiveColor{Light: "#ff8f40", Dark: "#ff8f40"}
	ColorPriorityMedium  = lipgloss.AdaptiveColor{Light: "#e6b450", Dark: "#e6b450"}

	ColorTypeBug  = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f26d78"}
	ColorTypeEpic = lipgloss.AdaptiveColor{Light: "#a37acc", Dark: "#d2a6ff"}
)

var (
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	BoldStyle   = lipgloss.NewStyle().Bold(true)

	StatusDoneStyle       = lipgloss.NewStyle().Foreground(ColorStatusDone)
	StatusInProgressStyle = lipgloss.NewStyle().Foreground(ColorStatusInProgress)
	StatusBlockedStyle    = lipgloss.NewStyle().Foreground(ColorStatusBlocked).Bold(true)

	PriorityHighestStyle = lipgloss.NewStyle().Foreground(ColorPriorityHighest).Bold(true)
	PriorityHighStyle    = lipgloss.NewStyle().Foreground(ColorPriorityHigh)
	PriorityMediumStyle  = lipgloss.NewStyle().Foreground(ColorPriorityMedium)

	TypeBugStyle  = lipgloss.NewStyle().Foreground(ColorTypeBug)
	TypeEpicStyle = lipgloss.NewStyle().Foreground(ColorTypeEpic)
)

// Status icons
const (
	StatusIconOpen       = "○"
	StatusIconInProgress = "◐"
	StatusIconBlocked    = "●"
	StatusIconDone       = "✓"
	IconFailed           = "✗"
)

// RenderStatusIcon returns the icon for a Jira status category with coloring.
// blocked wins over the category.
func RenderStatusIcon(category string, blocked bool) string {
	switch {
	case blocked:
		return StatusBlockedStyle.Render(StatusIconBlocked)
	case category == "done":
		return StatusDoneStyle.Render(StatusIconDone)
	case category == "indeterminate":
		return StatusInProgressStyle.Render(StatusIconInProgress)
	default:
		return StatusIconOpen
	}
}

// RenderStatus renders a status name colored by its category.
func RenderStatus(status, category string, blocked bool) string {
	switch {
	case blocked:
		return StatusBlockedStyle.Render(status)
	case category == "done":
		return StatusDoneStyle.Render(status)
	case category == "indeterminate":
		return StatusInProgressStyle.Render(status)
	default:
		return status
	}
}

// RenderPriority renders a Jira priority name.
func RenderPriority(priority string) string {
	switch strings.ToLower(priority) {
	case "highest", "blocker", "critical":
		return PriorityHighestStyle.Render(priority)
	case "high", "major":
		return PriorityHighStyle.Render(priority)
	case "medium":
		return PriorityMediumStyle.Render(priority)
	case "", "none":
		return MutedStyle.Render("None")
	default:
		return MutedStyle.Render(priority)
	}
}

// RenderType renders an issue type with coloring.
func RenderType(issueType string) string {
	switch strings.ToLower(issueType) {
	case "bug":
		return TypeBugStyle.Render(issueType)
	case "epic":
		return TypeEpicStyle.Render(issueType)
	default:
		return issueType
	}
}

// RenderKey renders an issue key or page id.
func RenderKey(key string) string {
	return AccentStyle.Render(key)
}

// RenderMuted renders text in muted gray.
func RenderMuted(s string) string {
	return MutedStyle.Render(s)
}

// RenderBold renders text in bold.
func RenderBold(s string) string {
	return BoldStyle.Render(s)
}

// RenderOK prefixes a line with a green check.
func RenderOK(s string) string {
	return StatusDoneStyle.Render(StatusIconDone) + " " + s
}

// RenderFailed prefixes a line with a red cross.
func RenderFailed(s string) string {
	return StatusBlockedStyle.Render(IconFailed) + " " + s
}
