package federation

import (
	"context"
	"testing"

	"ringlink/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	raterURL  = "https://rater.example"
	targetURL = "https://target.example"
)

func newRatingFixture(t *testing.T) (*RatingService, *fakeProber, *fakeRemote) {
	t.Helper()
	store := newTestStore(t)
	seedRing(t, store, &types.HostedRing{
		ID:      "r1",
		Type:    types.RingOpen,
		Members: []types.Member{member(selfURL), member(targetURL)},
	})
	prober := newFakeProber()
	remote := newFakeRemote()
	return NewRatingService(store, prober, remote, nil, zaptest.NewLogger(t)), prober, remote
}

func targetRatings(t *testing.T, s *RatingService) map[string]int {
	t.Helper()
	ring, err := s.store.GetHosted(context.Background(), "r1")
	require.NoError(t, err)
	return ring.Members[ring.MemberIndex(targetURL)].Ratings
}

func TestSubmitRating_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newRatingFixture(t)

	for _, r := range []int{5, 2} {
		err := svc.SubmitRating(ctx, RateInput{RingID: "r1", TargetURL: targetURL, Rating: r, RaterURL: raterURL, Origin: OriginFederation})
		require.NoError(t, err)
	}

	ratings := targetRatings(t, svc)
	assert.Equal(t, map[string]int{raterURL: 2}, ratings)

	ring, _ := svc.store.GetHosted(ctx, "r1")
	assert.Equal(t, 2.0, ring.Members[1].AverageRating())
	assert.True(t, ring.Updated.After(t0))
}

func TestSubmitRating_OutOfRange(t *testing.T) {
	ctx := context.Background()
	svc, prober, _ := newRatingFixture(t)

	for _, r := range []int{0, 6, -1} {
		err := svc.SubmitRating(ctx, RateInput{RingID: "r1", TargetURL: targetURL, Rating: r, RaterURL: raterURL, Origin: OriginFederation})
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Empty(t, targetRatings(t, svc))
	assert.Zero(t, prober.callCount())
}

func TestSubmitRating_AntiSpoofProbe(t *testing.T) {
	ctx := context.Background()
	svc, prober, _ := newRatingFixture(t)
	prober.setDown(raterURL, true)

	err := svc.SubmitRating(ctx, RateInput{RingID: "r1", TargetURL: targetURL, Rating: 4, RaterURL: raterURL, Origin: OriginFederation})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, targetRatings(t, svc))
}

func TestSubmitRating_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, prober, _ := newRatingFixture(t)

	err := svc.SubmitRating(ctx, RateInput{RingID: "r1", TargetURL: "https://stranger.example", Rating: 3, RaterURL: raterURL, Origin: OriginFederation})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, prober.callCount(), "no probe for a missing target")

	err = svc.SubmitRating(ctx, RateInput{RingID: "nope", TargetURL: targetURL, Rating: 3, RaterURL: raterURL, Origin: OriginFederation})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitRating_LocalUsesOwnIdentity(t *testing.T) {
	ctx := context.Background()
	svc, prober, _ := newRatingFixture(t)

	err := svc.SubmitRating(ctx, RateInput{RingID: "r1", TargetURL: targetURL, Rating: 4, RaterURL: "https://ignored.example", Origin: OriginLocal})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{selfURL: 4}, targetRatings(t, svc))
	assert.Zero(t, prober.callCount())
}

func TestSubmitRating_JoinedRing(t *testing.T) {
	ctx := context.Background()
	svc, _, remote := newRatingFixture(t)
	key := types.JoinedKey(hostURL, "remote-ring")
	require.NoError(t, svc.store.PutJoined(ctx, &types.JoinedRing{Key: key, HostURL: hostURL, RingID: "remote-ring"}))

	target, err := svc.Resolve(ctx, key)
	require.NoError(t, err)
	assert.IsType(t, JoinedTarget{}, target)

	target, err = svc.Resolve(ctx, "r1")
	require.NoError(t, err)
	assert.IsType(t, HostedTarget{}, target)

	err = svc.SubmitRating(ctx, RateInput{RingID: key, TargetURL: targetURL, Rating: 5, Origin: OriginLocal})
	require.NoError(t, err)
	require.Len(t, remote.rates, 1)
	assert.Equal(t, selfURL, remote.rates[0].RaterURL)
	assert.Equal(t, 5, remote.rates[0].Rating)

	// Host failures come back verbatim.
	remote.rateErr = &RemoteError{StatusCode: 403, Message: "rater must be running ringlink"}
	err = svc.SubmitRating(ctx, RateInput{RingID: key, TargetURL: targetURL, Rating: 5, Origin: OriginLocal})
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "rater must be running ringlink", PublicMessage(err))

	// Other sites cannot rate through a mirror.
	err = svc.SubmitRating(ctx, RateInput{RingID: key, TargetURL: targetURL, Rating: 5, RaterURL: raterURL, Origin: OriginFederation})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, remote.rates, 2)
}

func TestResolve_JoinedRingsByKeyOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, remote := newRatingFixture(t)

	// Two hosts run a ring with the same id, and so does this site.
	keyA := types.JoinedKey("https://a.example", "r1")
	keyB := types.JoinedKey("https://b.example", "r1")
	for _, host := range []string{"https://a.example", "https://b.example"} {
		require.NoError(t, svc.store.PutJoined(ctx, &types.JoinedRing{Key: types.JoinedKey(host, "r1"), HostURL: host, RingID: "r1"}))
	}

	target, err := svc.Resolve(ctx, "r1")
	require.NoError(t, err)
	assert.IsType(t, HostedTarget{}, target)

	for key, host := range map[string]string{keyA: "https://a.example", keyB: "https://b.example"} {
		target, err := svc.Resolve(ctx, key)
		require.NoError(t, err)
		joined, ok := target.(JoinedTarget)
		require.True(t, ok)
		assert.Equal(t, host, joined.Ring.HostURL)
	}

	require.NoError(t, svc.SubmitRating(ctx, RateInput{RingID: keyB, TargetURL: targetURL, Rating: 3, Origin: OriginLocal}))
	require.Len(t, remote.rates, 1)
	require.Len(t, remote.rateHosts, 1)
	assert.Equal(t, "https://b.example", remote.rateHosts[0])

	_, err = svc.Resolve(ctx, "r2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitRating_Metrics(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newRatingFixture(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	svc.metrics = metrics

	_ = svc.SubmitRating(ctx, RateInput{RingID: "r1", TargetURL: targetURL, Rating: 3, RaterURL: raterURL, Origin: OriginFederation})
	_ = svc.SubmitRating(ctx, RateInput{RingID: "r1", TargetURL: targetURL, Rating: 9, RaterURL: raterURL, Origin: OriginFederation})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Ratings.WithLabelValues("federation", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Ratings.WithLabelValues("federation", "validation")))
}
