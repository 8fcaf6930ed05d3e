package federation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ringlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newMembership(t *testing.T) (*MembershipService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: t0}
	svc := NewMembershipService(newTestStore(t), nil, zaptest.NewLogger(t))
	svc.now = clock.Now
	return svc, clock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func candidate(url string) types.Identity {
	return types.Identity{URL: url, Name: "Site " + url}
}

func TestRequestJoin_OpenRingApproves(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMembership(t)
	seedRing(t, svc.store, &types.HostedRing{ID: "r1", Type: types.RingOpen, Members: []types.Member{member(selfURL)}})

	status, err := svc.RequestJoin(ctx, "r1", candidate("https://a.example"), "")
	require.NoError(t, err)
	assert.Equal(t, JoinApproved, status)

	ring, err := svc.GetRing(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, ring.Members, 2)
	assert.True(t, ring.Updated.After(t0))

	added := ring.Members[1]
	assert.Equal(t, "https://a.example", added.PageURL)
	assert.Equal(t, types.StatusActive, added.Status)
	assert.Zero(t, added.Fails)
}

func TestRequestJoin_Dedup(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMembership(t)
	seedRing(t, svc.store, &types.HostedRing{ID: "open", Type: types.RingOpen})
	seedRing(t, svc.store, &types.HostedRing{ID: "mod", Type: types.RingModerated})

	for i := 0; i < 3; i++ {
		status, err := svc.RequestJoin(ctx, "open", candidate("https://a.example"), "")
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, JoinApproved, status)
		} else {
			assert.Equal(t, JoinAlreadyMember, status)
		}

		status, err = svc.RequestJoin(ctx, "mod", candidate("https://a.example"), "")
		require.NoError(t, err)
		assert.Equal(t, JoinPending, status)
	}

	open, _ := svc.GetRing(ctx, "open")
	assert.Len(t, open.Members, 1)
	assert.Empty(t, open.Pending)

	mod, _ := svc.GetRing(ctx, "mod")
	assert.Empty(t, mod.Members)
	assert.Len(t, mod.Pending, 1)
}

func TestRequestJoin_CuratedAlwaysForbidden(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMembership(t)
	seedRing(t, svc.store, &types.HostedRing{ID: "c", Type: types.RingCurated, Members: []types.Member{member(selfURL)}})

	for _, secret := range []string{"", "anything"} {
		_, err := svc.RequestJoin(ctx, "c", candidate("https://a.example"), secret)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, msgCuratedJoin, PublicMessage(err))
	}

	ring, _ := svc.GetRing(ctx, "c")
	assert.Len(t, ring.Members, 1)
	assert.Empty(t, ring.Pending)
	assert.True(t, t0.Equal(ring.Updated))
}

func TestRequestJoin_PrivateRing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMembership(t)
	seedRing(t, svc.store, &types.HostedRing{ID: "p", Type: types.RingPrivate, Secret: "s3cret-code"})

	_, err := svc.RequestJoin(ctx, "p", candidate("https://a.example"), "wrong")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, msgInvalidInvite, PublicMessage(err))

	status, err := svc.RequestJoin(ctx, "p", candidate("https://a.example"), "s3cret-code")
	require.NoError(t, err)
	assert.Equal(t, JoinPending, status)

	ring, _ := svc.GetRing(ctx, "p")
	assert.Empty(t, ring.Members)
	assert.Len(t, ring.Pending, 1)
}

func TestRequestJoin_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMembership(t)
	seedRing(t, svc.store, &types.HostedRing{ID: "r1", Type: types.RingOpen})

	_, err := svc.RequestJoin(ctx, "missing", candidate("https://a.example"), "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.RequestJoin(ctx, "r1", types.Identity{URL: "https://a.example"}, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.RequestJoin(ctx, "r1", types.Identity{Name: "nameless"}, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestApproveRejectRemove(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMembership(t)
	seedRing(t, svc.store, &types.HostedRing{ID: "m", Type: types.RingModerated, Members: []types.Member{member(selfURL)}})

	for _, u := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		_, err := svc.RequestJoin(ctx, "m", candidate(u), "")
		require.NoError(t, err)
	}

	require.NoError(t, svc.Approve(ctx, "m", "https://b.example"))
	ring, _ := svc.GetRing(ctx, "m")
	require.Len(t, ring.Members, 2)
	assert.Equal(t, "https://b.example", ring.Members[1].URL)
	assert.Equal(t, types.StatusActive, ring.Members[1].Status)
	assert.NotNil(t, ring.Members[1].Ratings)
	require.Len(t, ring.Pending, 2)
	assert.Equal(t, "https://a.example", ring.Pending[0].URL)
	assert.Equal(t, "https://c.example", ring.Pending[1].URL)

	// Approving something that is not pending changes nothing.
	before := ring.Updated
	require.NoError(t, svc.Approve(ctx, "m", "https://nobody.example"))
	ring, _ = svc.GetRing(ctx, "m")
	assert.Equal(t, before, ring.Updated)

	require.NoError(t, svc.Reject(ctx, "m", "https://a.example"))
	ring, _ = svc.GetRing(ctx, "m")
	require.Len(t, ring.Pending, 1)
	assert.Equal(t, before, ring.Updated)

	require.NoError(t, svc.Remove(ctx, "m", "https://b.example"))
	ring, _ = svc.GetRing(ctx, "m")
	assert.Len(t, ring.Members, 1)
	assert.True(t, ring.Updated.After(before))

	assert.ErrorIs(t, svc.Approve(ctx, "missing", "https://a.example"), ErrNotFound)
}

func TestAddCurated(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMembership(t)
	seedRing(t, svc.store, &types.HostedRing{ID: "c", Type: types.RingCurated, Members: []types.Member{member(selfURL)}})

	require.NoError(t, svc.AddCurated(ctx, "c", candidate("https://a.example")))

	err := svc.AddCurated(ctx, "c", candidate("https://a.example"))
	assert.ErrorIs(t, err, ErrConflict)

	err = svc.AddCurated(ctx, "c", types.Identity{URL: "https://b.example"})
	assert.ErrorIs(t, err, ErrValidation)

	ring, _ := svc.GetRing(ctx, "c")
	assert.Len(t, ring.Members, 2)
}

func TestCreateRing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMembership(t)

	ring, err := svc.CreateRing(ctx, CreateRingRequest{ID: "indie", Name: "Indie", Type: types.RingOpen})
	require.NoError(t, err)
	require.Len(t, ring.Members, 1)
	assert.Equal(t, selfURL, ring.Members[0].URL)
	assert.Empty(t, ring.Secret)

	_, err = svc.CreateRing(ctx, CreateRingRequest{ID: "indie"})
	assert.ErrorIs(t, err, ErrConflict)

	priv, err := svc.CreateRing(ctx, CreateRingRequest{ID: "secret-club", Type: types.RingPrivate})
	require.NoError(t, err)
	assert.Len(t, priv.Secret, 16)
	assert.Equal(t, "secret-club", priv.Name)

	_, err = svc.CreateRing(ctx, CreateRingRequest{ID: "x", Type: types.RingOpen, Secret: "nope"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateRing(ctx, CreateRingRequest{ID: "bad id"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateRing(ctx, CreateRingRequest{ID: "y", Type: "secretive"})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.DeleteRing(ctx, "indie"))
	assert.ErrorIs(t, svc.DeleteRing(ctx, "indie"), ErrNotFound)
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMembership(t)
	seedRing(t, svc.store, &types.HostedRing{
		ID:      "p",
		Type:    types.RingPrivate,
		Secret:  "code",
		Members: []types.Member{member(selfURL)},
		Pending: []types.PendingRequest{{Identity: candidate("https://q.example")}},
	})

	_, err := svc.Snapshot(ctx, "p", "bad", "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Snapshot(ctx, "nope", "", "")
	assert.ErrorIs(t, err, ErrNotFound)

	snap, err := svc.Snapshot(ctx, "p", "code", "")
	require.NoError(t, err)
	assert.Equal(t, "p", snap.RingID)
	assert.Len(t, snap.Members, 1)
	assert.Empty(t, snap.Membership)

	cases := map[string]string{
		selfURL:             MembershipMember,
		"https://q.example": MembershipPending,
		"https://z.example": MembershipNone,
	}
	for u, want := range cases {
		snap, err := svc.Snapshot(ctx, "p", "code", u)
		require.NoError(t, err)
		assert.Equal(t, want, snap.Membership, u)
	}
}

func TestConcurrentApprovalsAreNotLost(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMembership(t)
	seedRing(t, svc.store, &types.HostedRing{ID: "m", Type: types.RingModerated})

	const n = 25
	for i := 0; i < n; i++ {
		_, err := svc.RequestJoin(ctx, "m", candidate(fmt.Sprintf("https://s%d.example", i)), "")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, svc.Approve(ctx, "m", fmt.Sprintf("https://s%d.example", i)))
		}(i)
	}
	wg.Wait()

	ring, _ := svc.GetRing(ctx, "m")
	assert.Len(t, ring.Members, n)
	assert.Empty(t, ring.Pending)
}
