package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ringlink/pkg/config"
	"ringlink/pkg/federation"
	"ringlink/pkg/node"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configFile   string
	clientConfig string
	verbose      bool
	siteName     string
	adminAddress string
	adminToken   string
	outputFormat string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ringlink",
		Short: "Federated webring host and member",
		Long: `ringlink runs a site's side of a federated webring: it hosts rings other
sites join, mirrors rings hosted elsewhere, probes member health and
records ratings. The same binary administers a running site over gRPC.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "server config file (yaml or json)")
	flags.StringVar(&clientConfig, "client-config", "", "CLI config file (default ~/.ringlink/client.json)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&siteName, "site", "", "administered site to talk to, by name")
	flags.StringVar(&adminAddress, "admin", "", "admin address of the site, overrides --site")
	flags.StringVar(&adminToken, "token", os.Getenv("RINGLINK_ADMIN_TOKEN"), "admin token")
	flags.StringVarP(&outputFormat, "output", "o", "", "output format: styled, json, yaml")

	rootCmd.AddCommand(
		serveCmd(),
		ringCmd(),
		joinCmd(),
		leaveCmd(),
		joinedCmd(),
		syncCmd(),
		healthCmd(),
		rateCmd(),
		siteCmd(),
		widgetCmd(),
		sitesCmd(),
		statusCmd(),
		tokenCmd(),
		versionCmd(),
	)
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the site",
		Long:  `Serve the federation and local HTTP endpoints and the admin RPC, and run the scheduled health and sync cycles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			n, err := node.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("Starting ringlink",
				zap.String("version", federation.Version),
				zap.String("site", cfg.Site.URL))
			return n.Run(ctx)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ringlink v%s\n", federation.Version)
		},
	}
}

func setupLogger(verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
