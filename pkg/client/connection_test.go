package client

import (
	"context"
	"net"
	"testing"
	"time"

	"ringlink/pkg/auth"
	"ringlink/pkg/config"
	"ringlink/pkg/protocol"
	"ringlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const token = "amber-kettle-57-quiet-ridge"

type siteServer struct {
	protocol.UnimplementedAdminServer
}

func (siteServer) GetSite(context.Context, *protocol.Empty) (*protocol.SiteMessage, error) {
	return &protocol.SiteMessage{Site: types.Identity{URL: "https://self.example", Name: "Self"}}, nil
}

func serve(t *testing.T) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(auth.NewTokenAuth(token).UnaryServerInterceptor(zaptest.NewLogger(t))))
	protocol.RegisterAdminServer(srv, siteServer{})
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)
	return lis
}

func dialer(lis *bufconn.Listener) grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

func TestDial(t *testing.T) {
	lis := serve(t)

	admin, err := Dial(&config.ConnectionConfig{Address: "passthrough:///bufnet", Token: token, Timeout: time.Second}, dialer(lis))
	require.NoError(t, err)
	defer admin.Close()

	ctx, cancel := admin.Context(context.Background())
	defer cancel()
	_, hasDeadline := ctx.Deadline()
	assert.True(t, hasDeadline)

	resp, err := admin.GetSite(ctx, &protocol.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "https://self.example", resp.Site.URL)

	_, err = admin.Status(ctx, &protocol.Empty{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestDial_WrongToken(t *testing.T) {
	lis := serve(t)

	admin, err := Dial(&config.ConnectionConfig{Address: "passthrough:///bufnet", Token: "nope"}, dialer(lis))
	require.NoError(t, err)
	defer admin.Close()

	ctx, cancel := admin.Context(context.Background())
	defer cancel()
	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)

	_, err = admin.GetSite(ctx, &protocol.Empty{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestDial_RequiresAddress(t *testing.T) {
	_, err := Dial(&config.ConnectionConfig{})
	assert.Error(t, err)
	_, err = Dial(nil)
	assert.Error(t, err)
}
