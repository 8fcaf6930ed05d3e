package protocol

import (
	"context"
	"net"
	"testing"

	"ringlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type echoServer struct {
	UnimplementedAdminServer
	created []*CreateRingRequest
}

func (s *echoServer) CreateRing(_ context.Context, req *CreateRingRequest) (*RingResponse, error) {
	s.created = append(s.created, req)
	return &RingResponse{Ring: &types.HostedRing{ID: req.ID, Name: req.Name, Type: req.Type}}, nil
}

func (s *echoServer) GetRing(_ context.Context, req *RingRequest) (*RingResponse, error) {
	return nil, status.Errorf(codes.NotFound, "ring %s not found", req.RingID)
}

func dial(t *testing.T, srv AdminServer, opts ...grpc.ServerOption) AdminClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(opts...)
	RegisterAdminServer(server, srv)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewAdminClient(conn)
}

func TestAdminRoundTrip(t *testing.T) {
	srv := &echoServer{}
	client := dial(t, srv)
	ctx := context.Background()

	resp, err := client.CreateRing(ctx, &CreateRingRequest{ID: "webring", Name: "Web Ring", Type: types.RingPrivate, Secret: "s"})
	require.NoError(t, err)
	assert.Equal(t, "webring", resp.Ring.ID)
	assert.Equal(t, types.RingPrivate, resp.Ring.Type)
	require.Len(t, srv.created, 1)
	assert.Equal(t, "s", srv.created[0].Secret)

	_, err = client.GetRing(ctx, &RingRequest{RingID: "nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.Status(ctx, &Empty{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestAdminInterceptorSeesFullMethod(t *testing.T) {
	var seen []string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = append(seen, info.FullMethod)
		return handler(ctx, req)
	}
	client := dial(t, &echoServer{}, grpc.UnaryInterceptor(interceptor))

	_, err := client.CreateRing(context.Background(), &CreateRingRequest{ID: "r"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/ringlink.Admin/CreateRing"}, seen)
}

func TestServiceDescCoversInterface(t *testing.T) {
	names := make(map[string]bool)
	for _, m := range AdminServiceDesc.Methods {
		assert.False(t, names[m.MethodName], "duplicate method %s", m.MethodName)
		names[m.MethodName] = true
	}
	assert.Len(t, names, 19)
}
