package client

import (
	"context"
	"fmt"
	"time"

	"ringlink/pkg/auth"
	"ringlink/pkg/config"
	"ringlink/pkg/protocol"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// KeepaliveParams are the pings every admin connection sends. Servers must
// enforce a MinTime no longer than Time or they close the connection.
var KeepaliveParams = keepalive.ClientParameters{
	Time:                10 * time.Second,
	Timeout:             3 * time.Second,
	PermitWithoutStream: true,
}

// Admin is a connection to a site's admin RPC
type Admin struct {
	protocol.AdminClient

	conn    *grpc.ClientConn
	timeout time.Duration
}

// Dial connects to the admin address in conn and attaches its token to
// every call. The connection is plaintext; admin listeners are meant to
// stay on loopback or a private network.
func Dial(conn *config.ConnectionConfig, opts ...grpc.DialOption) (*Admin, error) {
	if conn == nil || conn.Address == "" {
		return nil, fmt.Errorf("admin address is required")
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(KeepaliveParams),
		grpc.WithUnaryInterceptor(auth.UnaryClientInterceptor(conn.Token)),
	}
	dialOpts = append(dialOpts, opts...)

	cc, err := grpc.NewClient(conn.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", conn.Address, err)
	}
	return &Admin{
		AdminClient: protocol.NewAdminClient(cc),
		conn:        cc,
		timeout:     conn.Timeout,
	}, nil
}

// Context bounds a call with the configured timeout
func (a *Admin) Context(parent context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, a.timeout)
}

func (a *Admin) Close() error {
	return a.conn.Close()
}
