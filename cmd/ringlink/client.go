package main

import (
	"context"
	"errors"

	"ringlink/pkg/client"
	"ringlink/pkg/config"
	"ringlink/pkg/protocol"

	"google.golang.org/grpc/status"
)

func loadClientConfig() (*config.ClientConfig, error) {
	return config.LoadClientConfig(clientConfig)
}

// withAdmin dials the selected site, runs fn and turns gRPC statuses into
// plain errors for the terminal.
func withAdmin(fn func(ctx context.Context, c protocol.AdminClient) error) error {
	cfg, err := loadClientConfig()
	if err != nil {
		return err
	}
	conn, err := cfg.ResolveConnection(siteName, adminAddress, adminToken)
	if err != nil {
		return err
	}
	if outputFormat == "" {
		outputFormat = cfg.Defaults.OutputFormat
	}

	admin, err := client.Dial(conn)
	if err != nil {
		return err
	}
	defer admin.Close()

	ctx, cancel := admin.Context(context.Background())
	defer cancel()

	if err := fn(ctx, admin); err != nil {
		if st, ok := status.FromError(err); ok {
			return errors.New(st.Message())
		}
		return err
	}
	return nil
}
