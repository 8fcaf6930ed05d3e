package federation

import (
	"context"
	"errors"
	"time"

	"ringlink/pkg/storage"
	"ringlink/pkg/types"

	"go.uber.org/zap"
)

const (
	msgCuratedJoin   = "curated rings accept members only from the host"
	msgInvalidInvite = "invalid invite code"
)

// MembershipService applies admission policy to hosted rings. Every
// mutation is a single read-modify-write on the ring.
type MembershipService struct {
	store   storage.RingStore
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewMembershipService creates a membership service over store
func NewMembershipService(store storage.RingStore, metrics *Metrics, logger *zap.Logger) *MembershipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// ringErr maps a storage miss to a not_found federation error.
func ringErr(err error, ringID string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundf("ring %s not found", ringID)
	}
	return err
}

// RequestJoin resolves a join request according to the ring's type.
// Duplicates never grow the member or pending lists.
func (s *MembershipService) RequestJoin(ctx context.Context, ringID string, candidate types.Identity, secret string) (JoinStatus, error) {
	candidate = candidate.WithDefaults()

	var status JoinStatus
	err := s.store.UpdateHosted(ctx, ringID, func(r *types.HostedRing) (bool, error) {
		switch r.Type {
		case types.RingCurated:
			return false, forbidden(msgCuratedJoin)
		case types.RingPrivate:
			if secret != r.Secret {
				return false, forbidden(msgInvalidInvite)
			}
		}

		if candidate.URL == "" || candidate.Name == "" {
			return false, validationf("url and name are required")
		}

		if r.MemberIndex(candidate.URL) >= 0 {
			status = JoinAlreadyMember
			return false, nil
		}
		if r.PendingIndex(candidate.URL) >= 0 {
			status = JoinPending
			return false, nil
		}

		now := s.now()
		if r.Type == types.RingOpen {
			r.Members = append(r.Members, types.NewMember(candidate, now))
			r.Updated = now
			status = JoinApproved
			return true, nil
		}

		r.Pending = append(r.Pending, types.PendingRequest{Identity: candidate, Joined: now})
		status = JoinPending
		return true, nil
	})
	if err != nil {
		err = ringErr(err, ringID)
		s.metrics.join(resultLabel(err))
		return "", err
	}

	s.metrics.join(string(status))
	s.logger.Info("Join request handled",
		zap.String("ring_id", ringID),
		zap.String("url", candidate.URL),
		zap.String("status", string(status)))
	return status, nil
}

// Approve promotes the first pending request for url to a member. It is a
// no-op when nothing is pending for url.
func (s *MembershipService) Approve(ctx context.Context, ringID, url string) error {
	err := s.store.UpdateHosted(ctx, ringID, func(r *types.HostedRing) (bool, error) {
		i := r.PendingIndex(url)
		if i < 0 {
			return false, nil
		}
		req := r.Pending[i]
		r.Pending = append(r.Pending[:i], r.Pending[i+1:]...)

		now := s.now()
		r.Members = append(r.Members, types.NewMember(req.Identity, now))
		r.Updated = now
		return true, nil
	})
	return ringErr(err, ringID)
}

// Reject drops the pending request for url
func (s *MembershipService) Reject(ctx context.Context, ringID, url string) error {
	err := s.store.UpdateHosted(ctx, ringID, func(r *types.HostedRing) (bool, error) {
		i := r.PendingIndex(url)
		if i < 0 {
			return false, nil
		}
		r.Pending = append(r.Pending[:i], r.Pending[i+1:]...)
		return true, nil
	})
	return ringErr(err, ringID)
}

// Remove deletes the member with url
func (s *MembershipService) Remove(ctx context.Context, ringID, url string) error {
	err := s.store.UpdateHosted(ctx, ringID, func(r *types.HostedRing) (bool, error) {
		i := r.MemberIndex(url)
		if i < 0 {
			return false, nil
		}
		r.Members = append(r.Members[:i], r.Members[i+1:]...)
		r.Updated = s.now()
		return true, nil
	})
	return ringErr(err, ringID)
}

// AddCurated appends a host-authored member directly. It works for every
// ring type and is the only way into a curated ring.
func (s *MembershipService) AddCurated(ctx context.Context, ringID string, id types.Identity) error {
	id = id.WithDefaults()
	if id.URL == "" || id.Name == "" {
		return validationf("url and name are required")
	}

	err := s.store.UpdateHosted(ctx, ringID, func(r *types.HostedRing) (bool, error) {
		if r.HasURL(id.URL) {
			return false, conflictf("%s is already in ring %s", id.URL, ringID)
		}
		now := s.now()
		r.Members = append(r.Members, types.NewMember(id, now))
		r.Updated = now
		return true, nil
	})
	return ringErr(err, ringID)
}

// CreateRingRequest describes a new hosted ring.
type CreateRingRequest struct {
	ID     string
	Name   string
	Type   types.RingType
	Secret string
}

// CreateRing creates a hosted ring with this site as its first member.
// Private rings without a secret get a generated invite code.
func (s *MembershipService) CreateRing(ctx context.Context, req CreateRingRequest) (*types.HostedRing, error) {
	if !types.ValidRingID(req.ID) {
		return nil, validationf("ring id must match [A-Za-z0-9_-]+")
	}
	if req.Type == "" {
		req.Type = types.RingOpen
	}
	if !req.Type.Valid() {
		return nil, validationf("unknown ring type %q", req.Type)
	}
	if req.Name == "" {
		req.Name = req.ID
	}

	switch {
	case req.Type != types.RingPrivate && req.Secret != "":
		return nil, validationf("only private rings take an invite code")
	case req.Type == types.RingPrivate && req.Secret == "":
		code, err := GenerateInviteCode()
		if err != nil {
			return nil, err
		}
		req.Secret = code
	case req.Type == types.RingPrivate && IsWeakSecret(req.Secret, req.ID, req.Name):
		s.logger.Warn("Invite code is easy to guess", zap.String("ring_id", req.ID))
	}

	site, err := s.store.GetSite(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, validationf("site identity is not configured")
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	ring := &types.HostedRing{
		ID:      req.ID,
		Name:    req.Name,
		Type:    req.Type,
		Secret:  req.Secret,
		Members: []types.Member{types.NewMember(site, now)},
		Pending: []types.PendingRequest{},
		Created: now,
		Updated: now,
	}
	if err := s.store.CreateHosted(ctx, ring); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return nil, conflictf("ring %s already exists", req.ID)
		}
		return nil, err
	}

	s.logger.Info("Created ring",
		zap.String("ring_id", ring.ID),
		zap.String("type", string(ring.Type)))
	return ring, nil
}

// DeleteRing removes a hosted ring permanently
func (s *MembershipService) DeleteRing(ctx context.Context, ringID string) error {
	if err := s.store.DeleteHosted(ctx, ringID); err != nil {
		return ringErr(err, ringID)
	}
	s.logger.Info("Deleted ring", zap.String("ring_id", ringID))
	return nil
}

func (s *MembershipService) GetRing(ctx context.Context, ringID string) (*types.HostedRing, error) {
	ring, err := s.store.GetHosted(ctx, ringID)
	if err != nil {
		return nil, ringErr(err, ringID)
	}
	return ring, nil
}

func (s *MembershipService) ListRings(ctx context.Context) ([]*types.HostedRing, error) {
	return s.store.ListHosted(ctx)
}

// Snapshot returns the public view of a hosted ring. When memberURL is
// set the snapshot also says where that site stands in the ring.
func (s *MembershipService) Snapshot(ctx context.Context, ringID, secret, memberURL string) (*RingSnapshot, error) {
	ring, err := s.store.GetHosted(ctx, ringID)
	if err != nil {
		return nil, ringErr(err, ringID)
	}
	if ring.Type == types.RingPrivate && ring.Secret != secret {
		return nil, forbidden(msgInvalidInvite)
	}

	snap := &RingSnapshot{
		RingID:  ring.ID,
		Name:    ring.Name,
		Type:    ring.Type,
		Members: ring.Members,
		Updated: ring.Updated,
	}
	if snap.Members == nil {
		snap.Members = []types.Member{}
	}
	if memberURL != "" {
		switch {
		case ring.MemberIndex(memberURL) >= 0:
			snap.Membership = MembershipMember
		case ring.PendingIndex(memberURL) >= 0:
			snap.Membership = MembershipPending
		default:
			snap.Membership = MembershipNone
		}
	}
	return snap, nil
}
