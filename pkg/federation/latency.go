package federation

import (
	"time"

	"github.com/maypok86/otter"
)

// ProbeResult is the outcome of the last liveness probe sent to a site.
type ProbeResult struct {
	Latency time.Duration
	OK      bool
	At      time.Time
}

// LatencyTable remembers the last probe per site url, bounded so a site
// that hosts many large rings cannot grow it without limit.
type LatencyTable struct {
	cache otter.Cache[string, ProbeResult]
}

// NewLatencyTable creates a table holding at most maxEntries sites
func NewLatencyTable(maxEntries int) *LatencyTable {
	cache, err := otter.MustBuilder[string, ProbeResult](maxEntries).
		Cost(func(_ string, _ ProbeResult) uint32 { return 1 }).
		Build()
	if err != nil {
		panic("federation: failed to create latency table: " + err.Error())
	}
	return &LatencyTable{cache: cache}
}

func (t *LatencyTable) Record(url string, r ProbeResult) {
	t.cache.Set(url, r)
}

func (t *LatencyTable) Get(url string) (ProbeResult, bool) {
	return t.cache.Get(url)
}

func (t *LatencyTable) Size() int {
	return t.cache.Size()
}

func (t *LatencyTable) Close() {
	t.cache.Close()
}
