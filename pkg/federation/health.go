package federation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"ringlink/pkg/storage"
	"ringlink/pkg/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// SampleSize is how many members of each ring are probed per cycle.
	SampleSize = 3
	// DeadThreshold is the failure count at which a member is marked dead.
	DeadThreshold = 3

	DefaultProbeConcurrency = 8
)

// Sampler picks k distinct indexes out of [0, n).
type Sampler func(n, k int) []int

// RandomSample draws k indexes uniformly without replacement
func RandomSample(n, k int) []int {
	if k > n {
		k = n
	}
	return rand.Perm(n)[:k]
}

type HealthOptions struct {
	Concurrency int
	Sampler     Sampler
	Latency     *LatencyTable
}

// HealthChecker probes a sample of every hosted ring's members and keeps
// their failure counters. A member dies after DeadThreshold consecutive
// failed probes and recovers fully on the first successful one.
type HealthChecker struct {
	store       storage.RingStore
	prober      Prober
	sample      Sampler
	concurrency int
	latency     *LatencyTable
	metrics     *Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewHealthChecker creates a health checker
func NewHealthChecker(store storage.RingStore, prober Prober, opts HealthOptions, metrics *Metrics, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultProbeConcurrency
	}
	if opts.Sampler == nil {
		opts.Sampler = RandomSample
	}
	return &HealthChecker{
		store:       store,
		prober:      prober,
		sample:      opts.Sampler,
		concurrency: opts.Concurrency,
		latency:     opts.Latency,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// HealthReport summarises one health check cycle.
type HealthReport struct {
	Rings     int `json:"rings"`
	Probed    int `json:"probed"`
	Failed    int `json:"failed"`
	Died      int `json:"died"`
	Recovered int `json:"recovered"`
}

// RunHealthCheckCycle probes a sample of every hosted ring. Probe failures
// are recorded on the members, never returned.
func (h *HealthChecker) RunHealthCheckCycle(ctx context.Context) (HealthReport, error) {
	var report HealthReport

	rings, err := h.store.ListHosted(ctx)
	if err != nil {
		return report, fmt.Errorf("health check: %w", err)
	}
	report.Rings = len(rings)

	samples := make(map[string][]string, len(rings))
	var urls []string
	seen := make(map[string]bool)
	for _, ring := range rings {
		n := len(ring.Members)
		if n == 0 {
			continue
		}
		for _, i := range h.sample(n, min(SampleSize, n)) {
			u := ring.Members[i].URL
			samples[ring.ID] = append(samples[ring.ID], u)
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}

	alive := h.probeAll(ctx, urls)
	report.Probed = len(urls)
	for _, ok := range alive {
		if !ok {
			report.Failed++
		}
	}

	for _, ring := range rings {
		sampled := samples[ring.ID]
		if len(sampled) == 0 {
			continue
		}
		died, recovered, err := h.apply(ctx, ring.ID, sampled, alive)
		if err != nil {
			h.logger.Warn("Failed to store health results",
				zap.String("ring_id", ring.ID), zap.Error(err))
			continue
		}
		report.Died += died
		report.Recovered += recovered
	}

	h.metrics.healthCycleDone(h.now())
	h.logger.Info("Health check cycle completed",
		zap.Int("rings", report.Rings),
		zap.Int("probed", report.Probed),
		zap.Int("failed", report.Failed),
		zap.Int("died", report.Died),
		zap.Int("recovered", report.Recovered))
	return report, nil
}

// probeAll pings every url with bounded parallelism. One failing probe
// never stops the others.
func (h *HealthChecker) probeAll(ctx context.Context, urls []string) map[string]bool {
	var (
		mu    sync.Mutex
		alive = make(map[string]bool, len(urls))
		g     errgroup.Group
	)
	g.SetLimit(h.concurrency)

	for _, u := range urls {
		g.Go(func() error {
			start := time.Now()
			err := h.prober.Ping(ctx, u)
			if err != nil {
				h.logger.Debug("Probe failed", zap.String("url", u), zap.Error(err))
			}
			if h.latency != nil {
				h.latency.Record(u, ProbeResult{Latency: time.Since(start), OK: err == nil, At: start})
			}
			mu.Lock()
			alive[u] = err == nil
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return alive
}

// apply writes probe outcomes back to one ring. Members removed while
// probes were in flight are skipped.
func (h *HealthChecker) apply(ctx context.Context, ringID string, sampled []string, alive map[string]bool) (died, recovered int, err error) {
	err = h.store.UpdateHosted(ctx, ringID, func(r *types.HostedRing) (bool, error) {
		died, recovered = 0, 0
		changed := false
		for _, u := range sampled {
			i := r.MemberIndex(u)
			if i < 0 {
				continue
			}
			m := &r.Members[i]
			if alive[u] {
				if m.IsDead() || m.Fails > 0 {
					if m.IsDead() {
						recovered++
					}
					m.Fails = 0
					m.Status = types.StatusActive
					changed = true
				}
				continue
			}
			m.Fails++
			changed = true
			if m.Fails >= DeadThreshold && !m.IsDead() {
				m.Status = types.StatusDead
				died++
			}
		}
		return changed, nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted mid-cycle.
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	for range died {
		h.metrics.transition(string(types.StatusDead))
	}
	for range recovered {
		h.metrics.transition(string(types.StatusActive))
	}
	if died > 0 || recovered > 0 {
		h.logger.Info("Member health changed",
			zap.String("ring_id", ringID),
			zap.Int("died", died),
			zap.Int("recovered", recovered))
	}
	return died, recovered, nil
}
