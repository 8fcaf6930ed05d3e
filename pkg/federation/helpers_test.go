package federation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ringlink/pkg/storage"
	"ringlink/pkg/types"

	"github.com/stretchr/testify/require"
)

const selfURL = "https://self.example"

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// newTestStore returns an in-memory store with the local site configured.
func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s := storage.NewStore(storage.NewMemoryBackend(), nil)
	require.NoError(t, s.SaveSite(context.Background(), types.Identity{URL: selfURL, Name: "Self"}))
	return s
}

func seedRing(t *testing.T, s storage.RingStore, ring *types.HostedRing) {
	t.Helper()
	if ring.Created.IsZero() {
		ring.Created = t0
		ring.Updated = t0
	}
	require.NoError(t, s.CreateHosted(context.Background(), ring))
}

func member(url string) types.Member {
	return types.NewMember(types.Identity{URL: url, Name: url}, t0)
}

type fakeProber struct {
	mu    sync.Mutex
	down  map[string]bool
	calls []string
}

func newFakeProber(down ...string) *fakeProber {
	p := &fakeProber{down: make(map[string]bool)}
	for _, u := range down {
		p.down[u] = true
	}
	return p
}

func (p *fakeProber) Ping(_ context.Context, u string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, u)
	if p.down[u] {
		return transient("remote site unreachable", errors.New("connection refused"))
	}
	return nil
}

func (p *fakeProber) setDown(u string, down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down[u] = down
}

func (p *fakeProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeRemote struct {
	mu         sync.Mutex
	snapshots  map[string]*RingSnapshot
	snapErr    error
	joinStatus JoinStatus
	joinErr    error
	rateErr    error

	fetchMembers []string
	joins        []JoinRequest
	rates        []RateRequest
	rateHosts    []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{snapshots: make(map[string]*RingSnapshot), joinStatus: JoinApproved}
}

func (r *fakeRemote) FetchSnapshot(_ context.Context, _, ringID, _, memberURL string) (*RingSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchMembers = append(r.fetchMembers, memberURL)
	if r.snapErr != nil {
		return nil, r.snapErr
	}
	snap, ok := r.snapshots[ringID]
	if !ok {
		return nil, &RemoteError{StatusCode: 404, Message: "Ring not found"}
	}
	return snap, nil
}

func (r *fakeRemote) Join(_ context.Context, _, _ string, req JoinRequest) (JoinStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joins = append(r.joins, req)
	return r.joinStatus, r.joinErr
}

func (r *fakeRemote) Rate(_ context.Context, hostURL, _ string, req RateRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates = append(r.rates, req)
	r.rateHosts = append(r.rateHosts, hostURL)
	return r.rateErr
}
