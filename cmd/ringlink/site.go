package main

import (
	"context"
	"fmt"
	"io"

	"ringlink/pkg/protocol"
	"ringlink/pkg/types"

	"github.com/spf13/cobra"
)

func siteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Show or change the identity this site publishes",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the site identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				resp, err := c.GetSite(ctx, &protocol.Empty{})
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), resp.Site, func(w io.Writer) {
					fmt.Fprintln(w, sitePanel(resp.Site))
				})
			})
		},
	}

	var id types.Identity
	set := &cobra.Command{
		Use:   "set",
		Short: "Replace the site identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				if _, err := c.SetSite(ctx, &protocol.SiteMessage{Site: id}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Site set to %s\n", id.URL)
				return nil
			})
		},
	}
	set.Flags().StringVar(&id.URL, "url", "", "canonical site url")
	set.Flags().StringVar(&id.Name, "name", "", "site name")
	set.Flags().StringVar(&id.PageURL, "page-url", "", "page ring widgets link to")
	set.Flags().StringVar(&id.Image, "image", "", "image url")
	set.Flags().StringVar(&id.Excerpt, "excerpt", "", "short description")
	set.MarkFlagRequired("url")
	set.MarkFlagRequired("name")

	cmd.AddCommand(show, set)
	return cmd
}

func widgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "widget",
		Short: "Show or change the default widget display settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the display defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				resp, err := c.GetDisplay(ctx, &protocol.Empty{})
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), resp.Display, func(w io.Writer) {
					fmt.Fprintln(w, displayPanel(resp.Display))
				})
			})
		},
	}

	var mode, theme, width string
	set := &cobra.Command{
		Use:   "set",
		Short: "Change the display defaults; omitted settings are kept",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := types.DisplaySettings{
				Mode:  types.DisplayMode(mode),
				Theme: types.Theme(theme),
				Width: types.Width(width),
			}
			if err := d.Validate(); err != nil {
				return err
			}
			return withAdmin(func(ctx context.Context, c protocol.AdminClient) error {
				if _, err := c.SetDisplay(ctx, &protocol.DisplayMessage{Display: d}); err != nil {
					return err
				}
				resp, err := c.GetDisplay(ctx, &protocol.Empty{})
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), resp.Display, func(w io.Writer) {
					fmt.Fprintln(w, displayPanel(resp.Display))
				})
			})
		},
	}
	set.Flags().StringVar(&mode, "mode", "", "carousel, live or directory")
	set.Flags().StringVar(&theme, "theme", "", "light or dark")
	set.Flags().StringVar(&width, "width", "", "compact or full")

	cmd.AddCommand(show, set)
	return cmd
}

func sitePanel(id types.Identity) string {
	if id.URL == "" {
		return createPanel("SITE", "🏠", warningValueStyle.Render("Site identity not set"), 60)
	}
	fields := []field{
		{"URL", id.URL, accentValueStyle},
		{"Name", id.Name, valueStyle},
		{"Page", id.WithDefaults().PageURL, valueStyle},
	}
	if id.Image != "" {
		fields = append(fields, field{"Image", id.Image, valueStyle})
	}
	if id.Excerpt != "" {
		fields = append(fields, field{"Excerpt", id.Excerpt, mutedStyle})
	}
	return createPanel("SITE", "🏠", renderFields(fields), 60)
}

func displayPanel(d types.DisplaySettings) string {
	return createPanel("WIDGET DISPLAY", "🎨", renderFields([]field{
		{"Mode", string(d.Mode), accentValueStyle},
		{"Theme", string(d.Theme), valueStyle},
		{"Width", string(d.Width), valueStyle},
	}), 50)
}
