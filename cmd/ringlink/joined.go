package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"ringlink/pkg/protocol"
	"ringlink/pkg/types"

	"github.com/spf13/cobra"
)

func joinCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "join <host-url> <ring-id>",
		Short: "Ask another site to admit this site into one of its rings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				resp, err := c.JoinRing(ctx, &protocol.JoinRingRequest{HostURL: args[0], RingID: args[1], Secret: secret})
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), resp, func(w io.Writer) {
					fmt.Fprintln(w, joinedPanel(resp.Ring))
					fmt.Fprintf(w, "Join %s, mirror key %s\n", resp.Status, resp.Ring.Key)
				})
			})
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "invite code for a private ring")
	return cmd
}

func leaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <key>",
		Short: "Drop the local mirror of a joined ring",
		Long:  `Drop the local mirror of a joined ring. The host is not told; it will mark this site dead once it stops answering for the ring.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				if _, err := c.LeaveRing(ctx, &protocol.JoinedRequest{Key: args[0]}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Left %s\n", args[0])
				return nil
			})
		},
	}
}

func joinedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "joined",
		Short: "List rings this site joined on other hosts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				resp, err := c.ListJoined(ctx, &protocol.Empty{})
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), resp.Rings, func(w io.Writer) {
					fmt.Fprintln(w, joinedTable(resp.Rings))
				})
			})
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [key]",
		Short: "Refresh joined ring mirrors from their hosts now",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &protocol.SyncNowRequest{}
			if len(args) == 1 {
				req.Key = args[0]
			}
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				resp, err := c.SyncNow(ctx, req)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), resp, func(w io.Writer) {
					fmt.Fprintln(w, createPanel("SYNC", "🔄", renderFields([]field{
						{"Rings", strconv.Itoa(resp.Rings), valueStyle},
						{"Synced", strconv.Itoa(resp.Synced), accentValueStyle},
						{"Failed", strconv.Itoa(resp.Failed), countStyle(resp.Failed, dangerValueStyle)},
					}), 50))
				})
			})
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run a member health check cycle now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				resp, err := c.HealthCheckNow(ctx, &protocol.Empty{})
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), resp, func(w io.Writer) {
					fmt.Fprintln(w, createPanel("HEALTH CHECK", "🩺", renderFields([]field{
						{"Rings", strconv.Itoa(resp.Rings), valueStyle},
						{"Probed", strconv.Itoa(resp.Probed), valueStyle},
						{"Failed Probes", strconv.Itoa(resp.Failed), countStyle(resp.Failed, warningValueStyle)},
						{"Marked Dead", strconv.Itoa(resp.Died), countStyle(resp.Died, dangerValueStyle)},
						{"Recovered", strconv.Itoa(resp.Recovered), accentValueStyle},
					}), 50))
				})
			})
		},
	}
}

func rateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate <ring-id|key> <site-url> <1-5>",
		Short: "Rate a member of a hosted or joined ring as this site",
		Long:  `Rate a member as this site. Hosted rings are named by id, joined rings by the mirror key shown in "ringlink joined".`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("rating must be a number: %w", err)
			}
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				if _, err := c.Rate(ctx, &protocol.RateRequest{RingID: args[0], TargetURL: args[1], Rating: rating}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rated %s %d in %s\n", args[1], rating, args[0])
				return nil
			})
		},
	}
}

func joinedPanel(r *types.JoinedRing) string {
	state, style := "member", accentValueStyle
	if r.Pending {
		state, style = "pending approval", warningValueStyle
	}
	return createPanel("JOINED RING", "🌐", renderFields([]field{
		{"Key", r.Key, accentValueStyle},
		{"Host", r.HostURL, valueStyle},
		{"Ring ID", r.RingID, valueStyle},
		{"Name", r.Name, valueStyle},
		{"State", state, style},
		{"Members", strconv.Itoa(len(r.Members)), valueStyle},
		{"Last Sync", formatAgo(r.LastSync), valueStyle},
	}), 70)
}

func joinedTable(rings []*types.JoinedRing) string {
	if len(rings) == 0 {
		return mutedStyle.Render("No joined rings")
	}
	t := newTable("KEY", "HOST", "RING", "NAME", "STATE", "MEMBERS", "LAST SYNC")
	for _, r := range rings {
		state := accentValueStyle.Render("member")
		if r.Pending {
			state = warningValueStyle.Render("pending")
		}
		t.Row(r.Key, r.HostURL, r.RingID, r.Name, state, strconv.Itoa(len(r.Members)), formatAgo(r.LastSync))
	}
	return createPanel("JOINED RINGS", "🌐", t.Render(), 0)
}
