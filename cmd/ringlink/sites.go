package main

import (
	"fmt"
	"io"

	"ringlink/pkg/auth"
	"ringlink/pkg/config"

	"github.com/spf13/cobra"
)

func sitesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Manage the sites this CLI administers",
		Long:  `Manage the sites this CLI administers. Entries live in the client config and are picked with --site.`,
	}

	var token string
	add := &cobra.Command{
		Use:   "add <name> <admin-address>",
		Short: "Add or replace a site",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadClientConfig()
			if err != nil {
				return err
			}
			if token == "" {
				token = adminToken
			}
			if err := cfg.AddSite(config.SiteEntry{Name: args[0], AdminAddress: args[1], Token: token}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added site %s\n", args[0])
			return nil
		},
	}
	add.Flags().StringVar(&token, "site-token", "", "admin token to store for this site")

	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Forget a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadClientConfig()
			if err != nil {
				return err
			}
			if err := cfg.RemoveSite(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed site %s\n", args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List configured sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadClientConfig()
			if err != nil {
				return err
			}
			if outputFormat == "" {
				outputFormat = cfg.Defaults.OutputFormat
			}
			return render(cmd.OutOrStdout(), sitesView(cfg), func(w io.Writer) {
				fmt.Fprintln(w, sitesTable(cfg))
			})
		},
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}

type siteView struct {
	Name         string `json:"name"`
	AdminAddress string `json:"admin_address"`
	HasToken     bool   `json:"has_token"`
	Preferred    bool   `json:"preferred"`
}

// sitesView hides stored tokens
func sitesView(cfg *config.ClientConfig) []siteView {
	out := make([]siteView, 0, len(cfg.Sites))
	for _, s := range cfg.Sites {
		out = append(out, siteView{
			Name:         s.Name,
			AdminAddress: s.AdminAddress,
			HasToken:     s.Token != "",
			Preferred:    s.Name == cfg.Defaults.PreferredSite,
		})
	}
	return out
}

func sitesTable(cfg *config.ClientConfig) string {
	if len(cfg.Sites) == 0 {
		return mutedStyle.Render("No sites configured. Add one with: ringlink sites add <name> <admin-address>")
	}
	t := newTable("", "NAME", "ADMIN ADDRESS", "TOKEN")
	for _, s := range sitesView(cfg) {
		marker := ""
		if s.Preferred {
			marker = "★"
		}
		tok := dangerValueStyle.Render("none")
		if s.HasToken {
			tok = accentValueStyle.Render("stored")
		}
		t.Row(marker, s.Name, s.AdminAddress, tok)
	}
	return createPanel("SITES", "📇", t.Render(), 0)
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Admin token helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Print a fresh random admin token",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.GenerateToken()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check <token>",
		Short: "Report whether a token is too easy to guess",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if auth.IsWeakToken(args[0]) {
				return fmt.Errorf("token is weak; use ringlink token generate")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token ok")
			return nil
		},
	})
	return cmd
}
