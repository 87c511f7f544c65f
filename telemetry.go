package particlefx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/gekko3d/particlefx/rt/manager"
	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"
)

// Sample is one telemetry window. Denied and Evicted are per window; the
// rest are taken at the window's last tick.
type Sample struct {
	Tick        uint64 `csv:"tick"`
	Systems     int    `csv:"systems"`
	Active      int    `csv:"active"`
	Max         int    `csv:"max"`
	Denied      uint64 `csv:"denied"`
	Evicted     uint64 `csv:"evicted"`
	Groups      int    `csv:"groups"`
	Submitted   int    `csv:"submitted"`
	CacheHits   uint64 `csv:"cache_hits"`
	CacheMisses uint64 `csv:"cache_misses"`
	Rendered    int    `csv:"rendered"`
	Culled      int    `csv:"culled"`
}

// Summary aggregates all samples of a run.
type Summary struct {
	Samples      int
	ActiveMean   float64
	ActiveStdDev float64
	ActiveP50    float64
	ActiveP95    float64
	ActiveMax    float64
	Denied       uint64
	Evicted      uint64
	CacheHitRate float64
}

// Telemetry samples manager counters every N ticks and appends them as CSV.
type Telemetry struct {
	every         int
	out           io.Writer
	file          *os.File
	headerWritten bool

	lastTick    uint64
	lastDenied  uint64
	lastEvicted uint64
	samples     []Sample
}

// NewTelemetry writes CSV to out, which may be nil to only keep samples.
func NewTelemetry(out io.Writer, everyNTicks int) *Telemetry {
	return &Telemetry{every: max(1, everyNTicks), out: out}
}

// OpenTelemetry creates dir/particles.csv. Returns nil when dir is empty.
func OpenTelemetry(dir string, everyNTicks int) (*Telemetry, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating telemetry directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "particles.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating particles.csv: %w", err)
	}
	t := NewTelemetry(f, everyNTicks)
	t.file = f
	return t, nil
}

// Observe records a sample if at least N ticks passed since the last one.
func (t *Telemetry) Observe(tick uint64, st manager.Stats, rs RenderStats) error {
	if t == nil || tick < t.lastTick+uint64(t.every) {
		return nil
	}
	s := Sample{
		Tick:        tick,
		Systems:     st.Systems,
		Active:      st.ActiveParticles,
		Max:         st.MaxParticles,
		Denied:      st.Denied - t.lastDenied,
		Evicted:     st.Evicted - t.lastEvicted,
		Groups:      st.Groups,
		Submitted:   st.Submitted,
		CacheHits:   st.CacheHits,
		CacheMisses: st.CacheMisses,
		Rendered:    rs.Rendered,
		Culled:      rs.Culled,
	}
	t.lastTick = tick
	t.lastDenied = st.Denied
	t.lastEvicted = st.Evicted
	t.samples = append(t.samples, s)
	return t.write(s)
}

func (t *Telemetry) write(s Sample) error {
	if t.out == nil {
		return nil
	}
	records := []Sample{s}
	if !t.headerWritten {
		if err := gocsv.Marshal(records, t.out); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		t.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, t.out); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

func (t *Telemetry) Samples() []Sample {
	if t == nil {
		return nil
	}
	return t.samples
}

func (t *Telemetry) Summary() Summary {
	var sum Summary
	if t == nil || len(t.samples) == 0 {
		return sum
	}
	active := make([]float64, len(t.samples))
	for i, s := range t.samples {
		active[i] = float64(s.Active)
		sum.Denied += s.Denied
		sum.Evicted += s.Evicted
	}
	last := t.samples[len(t.samples)-1]
	if lookups := last.CacheHits + last.CacheMisses; lookups > 0 {
		sum.CacheHitRate = float64(last.CacheHits) / float64(lookups)
	}

	sum.Samples = len(active)
	sum.ActiveMean, sum.ActiveStdDev = stat.MeanStdDev(active, nil)
	slices.Sort(active)
	sum.ActiveP50 = stat.Quantile(0.5, stat.Empirical, active, nil)
	sum.ActiveP95 = stat.Quantile(0.95, stat.Empirical, active, nil)
	sum.ActiveMax = active[len(active)-1]
	return sum
}

func (t *Telemetry) Close() error {
	if t == nil || t.file == nil {
		return nil
	}
	return t.file.Close()
}
