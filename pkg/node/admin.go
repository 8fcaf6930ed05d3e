package node

import (
	"context"
	"errors"

	"ringlink/pkg/federation"
	"ringlink/pkg/protocol"
	"ringlink/pkg/storage"
	"ringlink/pkg/types"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps a service error onto a gRPC status. Host failures relayed
// from joined rings keep their message.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch federation.KindOf(err) {
	case federation.KindValidation:
		code = codes.InvalidArgument
	case federation.KindNotFound:
		code = codes.NotFound
	case federation.KindForbidden:
		code = codes.PermissionDenied
	case federation.KindConflict:
		code = codes.AlreadyExists
	case federation.KindTransient:
		code = codes.Unavailable
	default:
		if errors.Is(err, context.Canceled) {
			return status.Error(codes.Canceled, err.Error())
		}
		return status.Error(codes.Internal, err.Error())
	}
	return status.Error(code, federation.PublicMessage(err))
}

func (n *Node) CreateRing(ctx context.Context, req *protocol.CreateRingRequest) (*protocol.RingResponse, error) {
	ring, err := n.membership.CreateRing(ctx, federation.CreateRingRequest{
		ID:     req.ID,
		Name:   req.Name,
		Type:   req.Type,
		Secret: req.Secret,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &protocol.RingResponse{Ring: ring}, nil
}

func (n *Node) DeleteRing(ctx context.Context, req *protocol.RingRequest) (*protocol.Empty, error) {
	return &protocol.Empty{}, toStatus(n.membership.DeleteRing(ctx, req.RingID))
}

func (n *Node) ListRings(ctx context.Context, _ *protocol.Empty) (*protocol.ListRingsResponse, error) {
	rings, err := n.membership.ListRings(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &protocol.ListRingsResponse{Rings: rings}, nil
}

func (n *Node) GetRing(ctx context.Context, req *protocol.RingRequest) (*protocol.RingResponse, error) {
	ring, err := n.membership.GetRing(ctx, req.RingID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &protocol.RingResponse{Ring: ring}, nil
}

func (n *Node) Approve(ctx context.Context, req *protocol.MemberRequest) (*protocol.Empty, error) {
	return &protocol.Empty{}, toStatus(n.membership.Approve(ctx, req.RingID, req.URL))
}

func (n *Node) Reject(ctx context.Context, req *protocol.MemberRequest) (*protocol.Empty, error) {
	return &protocol.Empty{}, toStatus(n.membership.Reject(ctx, req.RingID, req.URL))
}

func (n *Node) RemoveMember(ctx context.Context, req *protocol.MemberRequest) (*protocol.Empty, error) {
	return &protocol.Empty{}, toStatus(n.membership.Remove(ctx, req.RingID, req.URL))
}

func (n *Node) AddMember(ctx context.Context, req *protocol.AddMemberRequest) (*protocol.Empty, error) {
	return &protocol.Empty{}, toStatus(n.membership.AddCurated(ctx, req.RingID, req.Member))
}

func (n *Node) JoinRing(ctx context.Context, req *protocol.JoinRingRequest) (*protocol.JoinRingResponse, error) {
	ring, joinStatus, err := n.sync.JoinRemote(ctx, req.HostURL, req.RingID, req.Secret)
	if err != nil {
		return nil, toStatus(err)
	}
	return &protocol.JoinRingResponse{Ring: ring, Status: string(joinStatus)}, nil
}

func (n *Node) LeaveRing(ctx context.Context, req *protocol.JoinedRequest) (*protocol.Empty, error) {
	return &protocol.Empty{}, toStatus(n.sync.Leave(ctx, req.Key))
}

func (n *Node) ListJoined(ctx context.Context, _ *protocol.Empty) (*protocol.ListJoinedResponse, error) {
	rings, err := n.sync.ListJoined(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &protocol.ListJoinedResponse{Rings: rings}, nil
}

func (n *Node) SyncNow(ctx context.Context, req *protocol.SyncNowRequest) (*protocol.SyncNowResponse, error) {
	if req.Key != "" {
		if err := n.sync.SyncOne(ctx, req.Key); err != nil {
			return nil, toStatus(err)
		}
		return &protocol.SyncNowResponse{Rings: 1, Synced: 1}, nil
	}
	report, err := n.syncCycle(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &protocol.SyncNowResponse{Rings: report.Rings, Synced: report.Synced, Failed: report.Failed}, nil
}

func (n *Node) HealthCheckNow(ctx context.Context, _ *protocol.Empty) (*protocol.HealthCheckResponse, error) {
	report, err := n.healthCycle(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &protocol.HealthCheckResponse{
		Rings:     report.Rings,
		Probed:    report.Probed,
		Failed:    report.Failed,
		Died:      report.Died,
		Recovered: report.Recovered,
	}, nil
}

func (n *Node) Rate(ctx context.Context, req *protocol.RateRequest) (*protocol.Empty, error) {
	err := n.ratings.SubmitRating(ctx, federation.RateInput{
		RingID:    req.RingID,
		TargetURL: req.TargetURL,
		Rating:    req.Rating,
		Origin:    federation.OriginLocal,
	})
	return &protocol.Empty{}, toStatus(err)
}

func (n *Node) GetSite(ctx context.Context, _ *protocol.Empty) (*protocol.SiteMessage, error) {
	site, err := n.store.GetSite(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "site identity is not configured")
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return &protocol.SiteMessage{Site: site}, nil
}

func (n *Node) SetSite(ctx context.Context, req *protocol.SiteMessage) (*protocol.Empty, error) {
	site := req.Site.WithDefaults()
	if site.URL == "" || site.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "url and name are required")
	}
	if err := n.store.SaveSite(ctx, site); err != nil {
		return nil, toStatus(err)
	}
	n.logger.Info("Saved site identity", zap.String("url", site.URL))
	return &protocol.Empty{}, nil
}

func (n *Node) GetDisplay(ctx context.Context, _ *protocol.Empty) (*protocol.DisplayMessage, error) {
	d, err := n.store.GetDisplay(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &protocol.DisplayMessage{Display: d}, nil
}

func (n *Node) SetDisplay(ctx context.Context, req *protocol.DisplayMessage) (*protocol.Empty, error) {
	if err := req.Display.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	current, err := n.store.GetDisplay(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := n.store.SaveDisplay(ctx, current.Merge(req.Display)); err != nil {
		return nil, toStatus(err)
	}
	return &protocol.Empty{}, nil
}

func (n *Node) Status(ctx context.Context, _ *protocol.Empty) (*protocol.StatusResponse, error) {
	resp := &protocol.StatusResponse{
		Version:        federation.Version,
		StorageBackend: n.cfg.Storage.Backend,
		HTTPAddress:    n.cfg.HTTP.Address,
		StartedAt:      n.startedAt,
		ProbedSites:    n.latency.Size(),
	}

	site, err := n.store.GetSite(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, toStatus(err)
	}
	resp.Site = site

	hosted, err := n.store.ListHosted(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp.HostedRings = len(hosted)
	for _, r := range hosted {
		resp.Members += len(r.Members)
		resp.PendingRequests += len(r.Pending)
		for _, m := range r.Members {
			if m.Status == types.StatusDead {
				resp.DeadMembers++
			}
		}
	}

	joined, err := n.store.ListJoined(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp.JoinedRings = len(joined)

	n.mu.Lock()
	resp.LastHealthCheck = n.lastHealthCheck
	resp.LastSync = n.lastSync
	n.mu.Unlock()
	return resp, nil
}
