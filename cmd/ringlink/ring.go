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

func ringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ring",
		Short: "Manage rings hosted by this site",
	}
	cmd.AddCommand(
		ringCreateCmd(),
		ringDeleteCmd(),
		ringListCmd(),
		ringShowCmd(),
		ringMemberCmd("approve", "Approve a pending join request", func(ctx context.Context, c protocol.AdminClient, req *protocol.MemberRequest) error {
			_, err := c.Approve(ctx, req)
			return err
		}),
		ringMemberCmd("reject", "Reject a pending join request", func(ctx context.Context, c protocol.AdminClient, req *protocol.MemberRequest) error {
			_, err := c.Reject(ctx, req)
			return err
		}),
		ringMemberCmd("remove", "Remove a member from a ring", func(ctx context.Context, c protocol.AdminClient, req *protocol.MemberRequest) error {
			_, err := c.RemoveMember(ctx, req)
			return err
		}),
		ringAddMemberCmd(),
	)
	return cmd
}

func ringCreateCmd() *cobra.Command {
	var (
		name     string
		ringType string
		secret   string
	)
	cmd := &cobra.Command{
		Use:   "create <ring-id>",
		Short: "Create a ring",
		Long: `Create a ring hosted by this site. Open rings admit any site that asks,
moderated rings queue requests for approval, private rings queue requests
from sites presenting the invite code, curated rings only grow through
add-member.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &protocol.CreateRingRequest{
				ID:     args[0],
				Name:   name,
				Type:   types.RingType(ringType),
				Secret: secret,
			}
			if !req.Type.Valid() {
				return fmt.Errorf("unknown ring type %q", ringType)
			}
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				resp, err := c.CreateRing(ctx, req)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), resp.Ring, func(w io.Writer) {
					fmt.Fprintln(w, ringPanel(resp.Ring))
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the id)")
	cmd.Flags().StringVar(&ringType, "type", string(types.RingOpen), "ring type: open, moderated, private, curated")
	cmd.Flags().StringVar(&secret, "secret", "", "invite code for a private ring (generated when empty)")
	return cmd
}

func ringDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ring-id>",
		Short: "Delete a hosted ring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				if _, err := c.DeleteRing(ctx, &protocol.RingRequest{RingID: args[0]}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted ring %s\n", args[0])
				return nil
			})
		},
	}
}

func ringListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List hosted rings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				resp, err := c.ListRings(ctx, &protocol.Empty{})
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), resp.Rings, func(w io.Writer) {
					fmt.Fprintln(w, ringsTable(resp.Rings))
				})
			})
		},
	}
}

func ringShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <ring-id>",
		Short: "Show a hosted ring with its members and pending requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				resp, err := c.GetRing(ctx, &protocol.RingRequest{RingID: args[0]})
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), resp.Ring, func(w io.Writer) {
					fmt.Fprintln(w, ringPanel(resp.Ring))
					fmt.Fprintln(w, createPanel("MEMBERS", "🔗", membersTable(resp.Ring.Members), 0))
					if len(resp.Ring.Pending) > 0 {
						fmt.Fprintln(w, createPanel("PENDING REQUESTS", "⏳", pendingTable(resp.Ring.Pending), 0))
					}
				})
			})
		},
	}
}

type memberCall func(ctx context.Context, c protocol.AdminClient, req *protocol.MemberRequest) error

func ringMemberCmd(use, short string, call memberCall) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <ring-id> <site-url>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				if err := call(ctx, c, &protocol.MemberRequest{RingID: args[0], URL: args[1]}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s in %s\n", use, args[1], args[0])
				return nil
			})
		},
	}
}

func ringAddMemberCmd() *cobra.Command {
	var id types.Identity
	cmd := &cobra.Command{
		Use:   "add-member <ring-id> <site-url>",
		Short: "Add a site to a ring directly, skipping the join request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id.URL = args[1]
			if id.Name == "" {
				id.Name = args[1]
			}
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				if _, err := c.AddMember(ctx, &protocol.AddMemberRequest{RingID: args[0], Member: id}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s\n", id.URL, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id.Name, "name", "", "member display name")
	cmd.Flags().StringVar(&id.PageURL, "page-url", "", "page linked from the ring (defaults to the site url)")
	cmd.Flags().StringVar(&id.Image, "image", "", "image url")
	cmd.Flags().StringVar(&id.Excerpt, "excerpt", "", "short description")
	return cmd
}

func ringPanel(r *types.HostedRing) string {
	typeStyle := accentValueStyle
	if r.Type != types.RingOpen {
		typeStyle = warningValueStyle
	}
	fields := []field{
		{"Ring ID", r.ID, accentValueStyle},
		{"Name", r.Name, valueStyle},
		{"Type", string(r.Type), typeStyle},
		{"Active Members", fmt.Sprintf("%d of %d", r.ActiveCount(), len(r.Members)), valueStyle},
		{"Pending Requests", strconv.Itoa(len(r.Pending)), countStyle(len(r.Pending), warningValueStyle)},
		{"Created", formatTime(r.Created), valueStyle},
		{"Updated", formatAgo(r.Updated), valueStyle},
	}
	if r.Secret != "" {
		fields = append(fields, field{"Invite Code", r.Secret, warningValueStyle})
	}
	return createPanel("RING", "💍", renderFields(fields), 60)
}

func ringsTable(rings []*types.HostedRing) string {
	if len(rings) == 0 {
		return mutedStyle.Render("No hosted rings")
	}
	t := newTable("ID", "NAME", "TYPE", "MEMBERS", "DEAD", "PENDING", "UPDATED")
	for _, r := range rings {
		t.Row(
			r.ID,
			r.Name,
			string(r.Type),
			strconv.Itoa(len(r.Members)),
			strconv.Itoa(len(r.Members)-r.ActiveCount()),
			strconv.Itoa(len(r.Pending)),
			formatAgo(r.Updated),
		)
	}
	return createPanel("HOSTED RINGS", "💍", t.Render(), 0)
}

func pendingTable(pending []types.PendingRequest) string {
	t := newTable("URL", "NAME", "REQUESTED")
	for _, p := range pending {
		t.Row(p.URL, p.Name, formatTime(p.Joined))
	}
	return t.Render()
}
