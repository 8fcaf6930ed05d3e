package main

import (
	"fmt"
	"strings"
	"time"

	"ringlink/pkg/presentation"
	"ringlink/pkg/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	primaryColor   = lipgloss.Color("#FF79C6") // Pink
	secondaryColor = lipgloss.Color("#8BE9FD") // Cyan
	accentColor    = lipgloss.Color("#50FA7B") // Green
	warningColor   = lipgloss.Color("#FFB86C") // Orange
	dangerColor    = lipgloss.Color("#FF5555") // Red
	mutedColor     = lipgloss.Color("#6272A4")
	bgLightColor   = lipgloss.Color("#44475A")
	fgColor        = lipgloss.Color("#F8F8F2")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2).
			MarginBottom(1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(20)

	valueStyle = lipgloss.NewStyle().
			Foreground(fgColor).
			Bold(true)

	accentValueStyle = lipgloss.NewStyle().
				Foreground(accentColor).
				Bold(true)

	warningValueStyle = lipgloss.NewStyle().
				Foreground(warningColor).
				Bold(true)

	dangerValueStyle = lipgloss.NewStyle().
				Foreground(dangerColor).
				Bold(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor).
			Background(bgLightColor).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(fgColor)

	iconStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true).
			MarginRight(1)
)

// createPanel frames content under an icon and a title
func createPanel(title, icon, content string, width int) string {
	panel := panelStyle
	if width > 0 {
		panel = panel.Width(width)
	}
	titleLine := iconStyle.Render(icon) + titleStyle.Render(title)
	return panel.Render(lipgloss.JoinVertical(lipgloss.Left, titleLine, content))
}

type field struct {
	label string
	value string
	style lipgloss.Style
}

func renderFields(fields []field) string {
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(f.label+":"), f.style.Render(f.value))
	}
	return strings.TrimSpace(b.String())
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(bgLightColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return rowStyle
		}).
		Headers(headers...)
}

func memberStatus(m types.Member) string {
	if m.IsDead() {
		return "🔴 " + dangerValueStyle.Render("DEAD")
	}
	if m.Fails > 0 {
		return "🟡 " + warningValueStyle.Render(fmt.Sprintf("FAILING (%d)", m.Fails))
	}
	return "🟢 " + accentValueStyle.Render("ACTIVE")
}

func renderStars(avg float64) string {
	if avg == 0 {
		return mutedStyle.Render("unrated")
	}
	s := presentation.StarsFor(avg)
	return strings.Repeat("★", s.Full) + strings.Repeat("⯪", s.Half) + strings.Repeat("☆", s.Empty) +
		fmt.Sprintf(" %.1f", avg)
}

func membersTable(members []types.Member) string {
	if len(members) == 0 {
		return mutedStyle.Render("no members")
	}
	t := newTable("URL", "NAME", "STATUS", "RATING", "JOINED")
	for _, m := range members {
		t.Row(m.URL, m.Name, memberStatus(m), renderStars(m.AverageRating()), formatTime(m.Joined))
	}
	return t.Render()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t).Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func countStyle(n int, bad lipgloss.Style) lipgloss.Style {
	if n > 0 {
		return bad
	}
	return accentValueStyle
}
