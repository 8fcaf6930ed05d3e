package federation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks federation activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Admission
	JoinRequests *prometheus.CounterVec

	// Health
	Probes            *prometheus.CounterVec
	ProbeLatency      prometheus.Histogram
	MemberTransitions *prometheus.CounterVec
	HealthCycles      prometheus.Counter
	LastHealthCheck   prometheus.Gauge

	// Sync
	SyncFetches  *prometheus.CounterVec
	LastSyncTime prometheus.Gauge

	// Ratings
	Ratings *prometheus.CounterVec
}

// NewMetrics creates and registers the federation metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	f := promauto.With(registry)

	return &Metrics{
		JoinRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ringlink_join_requests_total",
			Help: "Join requests handled for hosted rings, by outcome",
		}, []string{"result"}),

		Probes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ringlink_probes_total",
			Help: "Liveness probes sent to other sites, by outcome",
		}, []string{"result"}),
		ProbeLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ringlink_probe_latency_seconds",
			Help:    "Liveness probe latency",
			Buckets: prometheus.DefBuckets,
		}),
		MemberTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ringlink_member_transitions_total",
			Help: "Member health state transitions, by new state",
		}, []string{"to"}),
		HealthCycles: f.NewCounter(prometheus.CounterOpts{
			Name: "ringlink_health_cycles_total",
			Help: "Completed health check cycles",
		}),
		LastHealthCheck: f.NewGauge(prometheus.GaugeOpts{
			Name: "ringlink_last_health_check_timestamp",
			Help: "Timestamp of the last completed health check cycle",
		}),

		SyncFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ringlink_sync_fetches_total",
			Help: "Joined ring snapshot fetches, by outcome",
		}, []string{"result"}),
		LastSyncTime: f.NewGauge(prometheus.GaugeOpts{
			Name: "ringlink_last_sync_timestamp",
			Help: "Timestamp of the last completed sync cycle",
		}),

		Ratings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ringlink_ratings_total",
			Help: "Rating submissions, by origin and outcome",
		}, []string{"origin", "result"}),
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if k := KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}

func (m *Metrics) observeProbe(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ProbeLatency.Observe(d.Seconds())
	m.Probes.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) join(result string) {
	if m == nil {
		return
	}
	m.JoinRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) transition(to string) {
	if m == nil {
		return
	}
	m.MemberTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) healthCycleDone(at time.Time) {
	if m == nil {
		return
	}
	m.HealthCycles.Inc()
	m.LastHealthCheck.Set(float64(at.Unix()))
}

func (m *Metrics) syncFetch(err error) {
	if m == nil {
		return
	}
	m.SyncFetches.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) syncCycleDone(at time.Time) {
	if m == nil {
		return
	}
	m.LastSyncTime.Set(float64(at.Unix()))
}

func (m *Metrics) rating(origin Origin, err error) {
	if m == nil {
		return
	}
	m.Ratings.WithLabelValues(string(origin), resultLabel(err)).Inc()
}
