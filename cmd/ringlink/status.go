package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ringlink/pkg/protocol"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show an overview of the site",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				resp, err := c.Status(ctx, &protocol.Empty{})
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), resp, func(w io.Writer) {
					fmt.Fprintln(w, statusPanel(resp, time.Now()))
				})
			})
		},
	}
}

func statusPanel(s *protocol.StatusResponse, now time.Time) string {
	site := s.Site.URL
	siteStyle := accentValueStyle
	if site == "" {
		site, siteStyle = "not set", warningValueStyle
	}

	uptime := "unknown"
	if !s.StartedAt.IsZero() {
		uptime = now.Sub(s.StartedAt).Round(time.Second).String()
	}

	fields := []field{
		{"Site", site, siteStyle},
		{"Name", s.Site.Name, valueStyle},
		{"Version", s.Version, valueStyle},
		{"Storage", s.StorageBackend, valueStyle},
		{"HTTP Address", s.HTTPAddress, valueStyle},
		{"Uptime", uptime, valueStyle},
		{"Hosted Rings", strconv.Itoa(s.HostedRings), valueStyle},
		{"Joined Rings", strconv.Itoa(s.JoinedRings), valueStyle},
		{"Members", strconv.Itoa(s.Members), valueStyle},
		{"Dead Members", strconv.Itoa(s.DeadMembers), countStyle(s.DeadMembers, dangerValueStyle)},
		{"Pending Requests", strconv.Itoa(s.PendingRequests), countStyle(s.PendingRequests, warningValueStyle)},
		{"Probed Sites", strconv.Itoa(s.ProbedSites), valueStyle},
		{"Last Health Check", formatAgo(s.LastHealthCheck), valueStyle},
		{"Last Sync", formatAgo(s.LastSync), valueStyle},
	}

	content := renderFields(fields)
	if s.Members > 0 {
		live := float64(s.Members-s.DeadMembers) * 100 / float64(s.Members)
		content = lipgloss.JoinVertical(lipgloss.Left,
			content, "",
			labelStyle.Render("Members Alive:"),
			progressBar(live, 40))
	}
	return createPanel("RINGLINK STATUS", "💍", content, 64)
}

// progressBar draws percent as a filled bar, coloured by how healthy it is
func progressBar(percent float64, width int) string {
	filled := int(percent * float64(width) / 100)
	filled = max(0, min(width, filled))

	color := accentColor
	switch {
	case percent < 50:
		color = dangerColor
	case percent < 90:
		color = warningColor
	}

	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(bgLightColor).Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %s", bar, valueStyle.Render(fmt.Sprintf("%.1f%%", percent)))
}
