package protocol

import (
	"context"

	"google.golang.org/grpc"
)

// AdminClient is the CLI side of ringlink.Admin
type AdminClient interface {
	CreateRing(ctx context.Context, in *CreateRingRequest, opts ...grpc.CallOption) (*RingResponse, error)
	DeleteRing(ctx context.Context, in *RingRequest, opts ...grpc.CallOption) (*Empty, error)
	ListRings(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListRingsResponse, error)
	GetRing(ctx context.Context, in *RingRequest, opts ...grpc.CallOption) (*RingResponse, error)
	Approve(ctx context.Context, in *MemberRequest, opts ...grpc.CallOption) (*Empty, error)
	Reject(ctx context.Context, in *MemberRequest, opts ...grpc.CallOption) (*Empty, error)
	RemoveMember(ctx context.Context, in *MemberRequest, opts ...grpc.CallOption) (*Empty, error)
	AddMember(ctx context.Context, in *AddMemberRequest, opts ...grpc.CallOption) (*Empty, error)
	JoinRing(ctx context.Context, in *JoinRingRequest, opts ...grpc.CallOption) (*JoinRingResponse, error)
	LeaveRing(ctx context.Context, in *JoinedRequest, opts ...grpc.CallOption) (*Empty, error)
	ListJoined(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListJoinedResponse, error)
	SyncNow(ctx context.Context, in *SyncNowRequest, opts ...grpc.CallOption) (*SyncNowResponse, error)
	HealthCheckNow(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*HealthCheckResponse, error)
	Rate(ctx context.Context, in *RateRequest, opts ...grpc.CallOption) (*Empty, error)
	GetSite(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*SiteMessage, error)
	SetSite(ctx context.Context, in *SiteMessage, opts ...grpc.CallOption) (*Empty, error)
	GetDisplay(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*DisplayMessage, error)
	SetDisplay(ctx context.Context, in *DisplayMessage, opts ...grpc.CallOption) (*Empty, error)
	Status(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StatusResponse, error)
}

type adminClient struct {
	cc grpc.ClientConnInterface
}

func NewAdminClient(cc grpc.ClientConnInterface) AdminClient {
	return &adminClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *adminClient) CreateRing(ctx context.Context, in *CreateRingRequest, opts ...grpc.CallOption) (*RingResponse, error) {
	return invoke[RingResponse](ctx, c.cc, "CreateRing", in, opts)
}

func (c *adminClient) DeleteRing(ctx context.Context, in *RingRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "DeleteRing", in, opts)
}

func (c *adminClient) ListRings(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListRingsResponse, error) {
	return invoke[ListRingsResponse](ctx, c.cc, "ListRings", in, opts)
}

func (c *adminClient) GetRing(ctx context.Context, in *RingRequest, opts ...grpc.CallOption) (*RingResponse, error) {
	return invoke[RingResponse](ctx, c.cc, "GetRing", in, opts)
}

func (c *adminClient) Approve(ctx context.Context, in *MemberRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "Approve", in, opts)
}

func (c *adminClient) Reject(ctx context.Context, in *MemberRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "Reject", in, opts)
}

func (c *adminClient) RemoveMember(ctx context.Context, in *MemberRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "RemoveMember", in, opts)
}

func (c *adminClient) AddMember(ctx context.Context, in *AddMemberRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "AddMember", in, opts)
}

func (c *adminClient) JoinRing(ctx context.Context, in *JoinRingRequest, opts ...grpc.CallOption) (*JoinRingResponse, error) {
	return invoke[JoinRingResponse](ctx, c.cc, "JoinRing", in, opts)
}

func (c *adminClient) LeaveRing(ctx context.Context, in *JoinedRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "LeaveRing", in, opts)
}

func (c *adminClient) ListJoined(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListJoinedResponse, error) {
	return invoke[ListJoinedResponse](ctx, c.cc, "ListJoined", in, opts)
}

func (c *adminClient) SyncNow(ctx context.Context, in *SyncNowRequest, opts ...grpc.CallOption) (*SyncNowResponse, error) {
	return invoke[SyncNowResponse](ctx, c.cc, "SyncNow", in, opts)
}

func (c *adminClient) HealthCheckNow(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*HealthCheckResponse, error) {
	return invoke[HealthCheckResponse](ctx, c.cc, "HealthCheckNow", in, opts)
}

func (c *adminClient) Rate(ctx context.Context, in *RateRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "Rate", in, opts)
}

func (c *adminClient) GetSite(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*SiteMessage, error) {
	return invoke[SiteMessage](ctx, c.cc, "GetSite", in, opts)
}

func (c *adminClient) SetSite(ctx context.Context, in *SiteMessage, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "SetSite", in, opts)
}

func (c *adminClient) GetDisplay(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*DisplayMessage, error) {
	return invoke[DisplayMessage](ctx, c.cc, "GetDisplay", in, opts)
}

func (c *adminClient) SetDisplay(ctx context.Context, in *DisplayMessage, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "SetDisplay", in, opts)
}

func (c *adminClient) Status(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, "Status", in, opts)
}
