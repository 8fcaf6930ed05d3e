package federation

import (
	"context"
	"errors"
	"time"

	"ringlink/pkg/storage"
	"ringlink/pkg/types"

	"go.uber.org/zap"
)

// Origin tells where a rating came from.
type Origin string

const (
	// OriginLocal is this site's own operator or widget.
	OriginLocal Origin = "local"
	// OriginFederation is another site calling the rate endpoint.
	OriginFederation Origin = "federation"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Target is a ring id resolved to the ring that owns it: a HostedTarget
// or a JoinedTarget.
type Target interface {
	isTarget()
}

type HostedTarget struct {
	Ring *types.HostedRing
}

type JoinedTarget struct {
	Ring *types.JoinedRing
}

func (HostedTarget) isTarget() {}
func (JoinedTarget) isTarget() {}

// RatingService records ratings on hosted rings and forwards local
// ratings for joined rings to their hosts.
type RatingService struct {
	store   storage.RingStore
	prober  Prober
	remote  Remote
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewRatingService creates a rating service
func NewRatingService(store storage.RingStore, prober Prober, remote Remote, metrics *Metrics, logger *zap.Logger) *RatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingService{
		store:   store,
		prober:  prober,
		remote:  remote,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Resolve finds the ring behind ringID: a hosted ring by its id, else a
// joined ring by its mirror key. Remote ring ids are not unique across
// hosts and never match.
func (s *RatingService) Resolve(ctx context.Context, ringID string) (Target, error) {
	hosted, err := s.store.GetHosted(ctx, ringID)
	if err == nil {
		return HostedTarget{Ring: hosted}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	joined, err := s.store.GetJoined(ctx, ringID)
	if err == nil {
		return JoinedTarget{Ring: joined}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	return nil, notFoundf("ring %s not found", ringID)
}

// RateInput is one rating submission. RaterURL is only read for
// federation-origin ratings; local ratings are cast as this site.
type RateInput struct {
	RingID    string
	TargetURL string
	Rating    int
	RaterURL  string
	Origin    Origin
}

// SubmitRating validates and records a rating. A rater rating the same
// member again overwrites its earlier vote.
func (s *RatingService) SubmitRating(ctx context.Context, in RateInput) (err error) {
	defer func() { s.metrics.rating(in.Origin, err) }()

	if in.Rating < MinRating || in.Rating > MaxRating {
		return validationf("rating must be between %d and %d", MinRating, MaxRating)
	}
	if in.TargetURL == "" {
		return validationf("target_url is required")
	}

	target, err := s.Resolve(ctx, in.RingID)
	if err != nil {
		return err
	}

	switch t := target.(type) {
	case HostedTarget:
		return s.rateHosted(ctx, t.Ring, in)
	case JoinedTarget:
		if in.Origin != OriginLocal {
			// A mirror never relays votes from other sites.
			return notFoundf("ring %s not found", in.RingID)
		}
		return s.rateJoined(ctx, t.Ring, in)
	}
	return notFoundf("ring %s not found", in.RingID)
}

func (s *RatingService) rateHosted(ctx context.Context, ring *types.HostedRing, in RateInput) error {
	if ring.MemberIndex(in.TargetURL) < 0 {
		return notFoundf("target member not found")
	}

	rater := in.RaterURL
	if in.Origin == OriginFederation {
		if rater == "" {
			return validationf("rater_url is required")
		}
		// Only sites running this protocol may vote.
		if err := s.prober.Ping(ctx, rater); err != nil {
			s.logger.Info("Rejected rating from unreachable rater",
				zap.String("ring_id", ring.ID),
				zap.String("rater", rater),
				zap.Error(err))
			return forbidden("rater must be running ringlink")
		}
	} else {
		self, err := s.self(ctx)
		if err != nil {
			return err
		}
		rater = self
	}

	err := s.store.UpdateHosted(ctx, ring.ID, func(r *types.HostedRing) (bool, error) {
		i := r.MemberIndex(in.TargetURL)
		if i < 0 {
			return false, notFoundf("target member not found")
		}
		m := &r.Members[i]
		if m.Ratings == nil {
			m.Ratings = make(map[string]int)
		}
		m.Ratings[rater] = in.Rating
		r.Updated = s.now()
		return true, nil
	})
	if err != nil {
		return ringErr(err, ring.ID)
	}

	s.logger.Debug("Recorded rating",
		zap.String("ring_id", ring.ID),
		zap.String("target", in.TargetURL),
		zap.String("rater", rater),
		zap.Int("rating", in.Rating))
	return nil
}

func (s *RatingService) rateJoined(ctx context.Context, ring *types.JoinedRing, in RateInput) error {
	self, err := s.self(ctx)
	if err != nil {
		return err
	}
	return s.remote.Rate(ctx, ring.HostURL, ring.RingID, RateRequest{
		TargetURL: in.TargetURL,
		Rating:    in.Rating,
		RaterURL:  self,
	})
}

func (s *RatingService) self(ctx context.Context) (string, error) {
	site, err := s.store.GetSite(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return "", validationf("site identity is not configured")
	}
	if err != nil {
		return "", err
	}
	return site.URL, nil
}
