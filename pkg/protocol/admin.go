package protocol

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const AdminServiceName = "ringlink.Admin"

// AdminServer is implemented by a running site
type AdminServer interface {
	CreateRing(context.Context, *CreateRingRequest) (*RingResponse, error)
	DeleteRing(context.Context, *RingRequest) (*Empty, error)
	ListRings(context.Context, *Empty) (*ListRingsResponse, error)
	GetRing(context.Context, *RingRequest) (*RingResponse, error)
	Approve(context.Context, *MemberRequest) (*Empty, error)
	Reject(context.Context, *MemberRequest) (*Empty, error)
	RemoveMember(context.Context, *MemberRequest) (*Empty, error)
	AddMember(context.Context, *AddMemberRequest) (*Empty, error)
	JoinRing(context.Context, *JoinRingRequest) (*JoinRingResponse, error)
	LeaveRing(context.Context, *JoinedRequest) (*Empty, error)
	ListJoined(context.Context, *Empty) (*ListJoinedResponse, error)
	SyncNow(context.Context, *SyncNowRequest) (*SyncNowResponse, error)
	HealthCheckNow(context.Context, *Empty) (*HealthCheckResponse, error)
	Rate(context.Context, *RateRequest) (*Empty, error)
	GetSite(context.Context, *Empty) (*SiteMessage, error)
	SetSite(context.Context, *SiteMessage) (*Empty, error)
	GetDisplay(context.Context, *Empty) (*DisplayMessage, error)
	SetDisplay(context.Context, *DisplayMessage) (*Empty, error)
	Status(context.Context, *Empty) (*StatusResponse, error)
}

// UnimplementedAdminServer answers every call with codes.Unimplemented.
// Embed it to stay forward compatible.
type UnimplementedAdminServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedAdminServer) CreateRing(context.Context, *CreateRingRequest) (*RingResponse, error) {
	return nil, unimplemented("CreateRing")
}
func (UnimplementedAdminServer) DeleteRing(context.Context, *RingRequest) (*Empty, error) {
	return nil, unimplemented("DeleteRing")
}
func (UnimplementedAdminServer) ListRings(context.Context, *Empty) (*ListRingsResponse, error) {
	return nil, unimplemented("ListRings")
}
func (UnimplementedAdminServer) GetRing(context.Context, *RingRequest) (*RingResponse, error) {
	return nil, unimplemented("GetRing")
}
func (UnimplementedAdminServer) Approve(context.Context, *MemberRequest) (*Empty, error) {
	return nil, unimplemented("Approve")
}
func (UnimplementedAdminServer) Reject(context.Context, *MemberRequest) (*Empty, error) {
	return nil, unimplemented("Reject")
}
func (UnimplementedAdminServer) RemoveMember(context.Context, *MemberRequest) (*Empty, error) {
	return nil, unimplemented("RemoveMember")
}
func (UnimplementedAdminServer) AddMember(context.Context, *AddMemberRequest) (*Empty, error) {
	return nil, unimplemented("AddMember")
}
func (UnimplementedAdminServer) JoinRing(context.Context, *JoinRingRequest) (*JoinRingResponse, error) {
	return nil, unimplemented("JoinRing")
}
func (UnimplementedAdminServer) LeaveRing(context.Context, *JoinedRequest) (*Empty, error) {
	return nil, unimplemented("LeaveRing")
}
func (UnimplementedAdminServer) ListJoined(context.Context, *Empty) (*ListJoinedResponse, error) {
	return nil, unimplemented("ListJoined")
}
func (UnimplementedAdminServer) SyncNow(context.Context, *SyncNowRequest) (*SyncNowResponse, error) {
	return nil, unimplemented("SyncNow")
}
func (UnimplementedAdminServer) HealthCheckNow(context.Context, *Empty) (*HealthCheckResponse, error) {
	return nil, unimplemented("HealthCheckNow")
}
func (UnimplementedAdminServer) Rate(context.Context, *RateRequest) (*Empty, error) {
	return nil, unimplemented("Rate")
}
func (UnimplementedAdminServer) GetSite(context.Context, *Empty) (*SiteMessage, error) {
	return nil, unimplemented("GetSite")
}
func (UnimplementedAdminServer) SetSite(context.Context, *SiteMessage) (*Empty, error) {
	return nil, unimplemented("SetSite")
}
func (UnimplementedAdminServer) GetDisplay(context.Context, *Empty) (*DisplayMessage, error) {
	return nil, unimplemented("GetDisplay")
}
func (UnimplementedAdminServer) SetDisplay(context.Context, *DisplayMessage) (*Empty, error) {
	return nil, unimplemented("SetDisplay")
}
func (UnimplementedAdminServer) Status(context.Context, *Empty) (*StatusResponse, error) {
	return nil, unimplemented("Status")
}

func fullMethod(name string) string {
	return "/" + AdminServiceName + "/" + name
}

// unary adapts a typed server method to a grpc method handler
func unary[Req, Resp any](name string, call func(AdminServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AdminServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AdminServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// AdminServiceDesc describes ringlink.Admin for grpc.Server.RegisterService
var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateRing", AdminServer.CreateRing),
		unary("DeleteRing", AdminServer.DeleteRing),
		unary("ListRings", AdminServer.ListRings),
		unary("GetRing", AdminServer.GetRing),
		unary("Approve", AdminServer.Approve),
		unary("Reject", AdminServer.Reject),
		unary("RemoveMember", AdminServer.RemoveMember),
		unary("AddMember", AdminServer.AddMember),
		unary("JoinRing", AdminServer.JoinRing),
		unary("LeaveRing", AdminServer.LeaveRing),
		unary("ListJoined", AdminServer.ListJoined),
		unary("SyncNow", AdminServer.SyncNow),
		unary("HealthCheckNow", AdminServer.HealthCheckNow),
		unary("Rate", AdminServer.Rate),
		unary("GetSite", AdminServer.GetSite),
		unary("SetSite", AdminServer.SetSite),
		unary("GetDisplay", AdminServer.GetDisplay),
		unary("SetDisplay", AdminServer.SetDisplay),
		unary("Status", AdminServer.Status),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ringlink/admin",
}

func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&AdminServiceDesc, srv)
}
