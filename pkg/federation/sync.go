package federation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"ringlink/pkg/storage"
	"ringlink/pkg/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultSyncConcurrency = 4

// SyncAgent keeps joined-ring mirrors in line with their hosts. The host
// is always right: a successful fetch replaces the mirror's members
// wholesale, a failed one leaves the mirror untouched.
type SyncAgent struct {
	store       storage.RingStore
	remote      Remote
	concurrency int
	metrics     *Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewSyncAgent creates a sync agent. concurrency <= 0 uses the default.
func NewSyncAgent(store storage.RingStore, remote Remote, concurrency int, metrics *Metrics, logger *zap.Logger) *SyncAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = DefaultSyncConcurrency
	}
	return &SyncAgent{
		store:       store,
		remote:      remote,
		concurrency: concurrency,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// SyncReport summarises one sync cycle.
type SyncReport struct {
	Rings  int `json:"rings"`
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// RunSyncCycle refreshes every joined ring. Per-ring failures are logged
// and counted; the mirror is retried on the next cycle.
func (a *SyncAgent) RunSyncCycle(ctx context.Context) (SyncReport, error) {
	var report SyncReport

	rings, err := a.store.ListJoined(ctx)
	if err != nil {
		return report, fmt.Errorf("sync: %w", err)
	}
	report.Rings = len(rings)
	self := a.selfURL(ctx)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(a.concurrency)
	for _, ring := range rings {
		g.Go(func() error {
			err := a.syncRing(ctx, ring, self)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				a.logger.Warn("Sync failed",
					zap.String("host", ring.HostURL),
					zap.String("ring_id", ring.RingID),
					zap.Error(err))
				return nil
			}
			report.Synced++
			return nil
		})
	}
	_ = g.Wait()

	a.metrics.syncCycleDone(a.now())
	a.logger.Info("Sync cycle completed",
		zap.Int("rings", report.Rings),
		zap.Int("synced", report.Synced),
		zap.Int("failed", report.Failed))
	return report, nil
}

// SyncOne refreshes a single mirror by key
func (a *SyncAgent) SyncOne(ctx context.Context, key string) error {
	ring, err := a.store.GetJoined(ctx, key)
	if err != nil {
		return joinedErr(err, key)
	}
	return a.syncRing(ctx, ring, a.selfURL(ctx))
}

func (a *SyncAgent) syncRing(ctx context.Context, ring *types.JoinedRing, self string) error {
	snap, err := a.remote.FetchSnapshot(ctx, ring.HostURL, ring.RingID, ring.Secret, self)
	a.metrics.syncFetch(err)
	if err != nil {
		return err
	}

	err = a.store.UpdateJoined(ctx, ring.Key, func(r *types.JoinedRing) (bool, error) {
		r.Members = snap.Members
		if snap.Name != "" {
			r.Name = snap.Name
		}
		r.LastSync = a.now()
		r.Pending = derivePending(r.Pending, snap, self)
		return true, nil
	})
	if err != nil {
		return joinedErr(err, ring.Key)
	}

	a.logger.Debug("Synced joined ring",
		zap.String("key", ring.Key),
		zap.Int("members", len(snap.Members)))
	return nil
}

// derivePending reads the admission state from the host's answer. Hosts
// that do not report membership leave a pending mirror pending until this
// site shows up among the members.
func derivePending(previous bool, snap *RingSnapshot, self string) bool {
	switch snap.Membership {
	case MembershipPending:
		return true
	case MembershipMember, MembershipNone:
		return false
	}
	if !previous || self == "" {
		return false
	}
	for _, m := range snap.Members {
		if m.URL == self {
			return false
		}
	}
	return true
}

// JoinRemote asks a remote host to admit this site and records the mirror
// when the host accepts or queues the request. Host rejections are
// returned as *RemoteError with the host's message.
func (a *SyncAgent) JoinRemote(ctx context.Context, hostURL, ringID, secret string) (*types.JoinedRing, JoinStatus, error) {
	hostURL = strings.TrimRight(strings.TrimSpace(hostURL), "/")
	if u, err := url.Parse(hostURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", validationf("host url must be an absolute http(s) url")
	}
	if !types.ValidRingID(ringID) {
		return nil, "", validationf("ring id must match [A-Za-z0-9_-]+")
	}

	site, err := a.store.GetSite(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", validationf("site identity is not configured")
	}
	if err != nil {
		return nil, "", err
	}

	status, err := a.remote.Join(ctx, hostURL, ringID, JoinRequest{
		URL:     site.URL,
		Name:    site.Name,
		PageURL: site.PageURL,
		Image:   site.Image,
		Excerpt: site.Excerpt,
		Secret:  secret,
	})
	if err != nil {
		return nil, "", err
	}

	key := types.JoinedKey(hostURL, ringID)
	pending := status == JoinPending
	err = a.store.UpdateJoined(ctx, key, func(r *types.JoinedRing) (bool, error) {
		r.Secret = secret
		r.Pending = pending
		return true, nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		err = a.store.PutJoined(ctx, &types.JoinedRing{
			Key:     key,
			HostURL: hostURL,
			RingID:  ringID,
			Name:    ringID,
			Secret:  secret,
			Members: []types.Member{},
			Pending: pending,
		})
	}
	if err != nil {
		return nil, "", err
	}

	a.logger.Info("Joined remote ring",
		zap.String("host", hostURL),
		zap.String("ring_id", ringID),
		zap.String("status", string(status)))

	if err := a.SyncOne(ctx, key); err != nil {
		a.logger.Warn("Initial sync failed", zap.String("key", key), zap.Error(err))
	}

	ring, err := a.store.GetJoined(ctx, key)
	if err != nil {
		return nil, "", joinedErr(err, key)
	}
	return ring, status, nil
}

// Leave forgets a joined ring. The host is not notified.
func (a *SyncAgent) Leave(ctx context.Context, key string) error {
	if err := a.store.DeleteJoined(ctx, key); err != nil {
		return joinedErr(err, key)
	}
	a.logger.Info("Left joined ring", zap.String("key", key))
	return nil
}

func (a *SyncAgent) ListJoined(ctx context.Context) ([]*types.JoinedRing, error) {
	return a.store.ListJoined(ctx)
}

func (a *SyncAgent) selfURL(ctx context.Context) string {
	site, err := a.store.GetSite(ctx)
	if err != nil {
		return ""
	}
	return site.URL
}

func joinedErr(err error, key string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundf("joined ring %s not found", key)
	}
	return err
}
