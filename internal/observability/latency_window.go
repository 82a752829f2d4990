package observability

import (
	"math"
	"slices"
	"sync"
	"time"
)

// StageLatency summarizes the retained samples of one turn stage.
type StageLatency struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
}

type LatencySnapshot struct {
	GeneratedAt time.Time        `json:"generated_at"`
	WindowSize  int              `json:"window_size"`
	Stages      []StageLatency   `json:"stages"`
	Counters    map[string]int64 `json:"counters,omitempty"`
}

// stageTargets are the latency budgets shown next to the observed p95.
var stageTargets = map[string]float64{
	"generation": 4000,
	"turn_total": 4500,
}

// latencyWindow keeps the last size samples per stage plus plain counters.
type latencyWindow struct {
	mu       sync.Mutex
	size     int
	rings    map[string]*ring
	counters map[string]int64
}

type ring struct {
	samples []float64
	pos     int
	last    float64
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = 256
	}
	return &latencyWindow{
		size:     size,
		rings:    make(map[string]*ring),
		counters: make(map[string]int64),
	}
}

func (w *latencyWindow) Observe(stage string, ms float64) {
	if stage == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	r := w.rings[stage]
	if r == nil {
		r = &ring{samples: make([]float64, 0, w.size)}
		w.rings[stage] = r
	}
	if len(r.samples) < w.size {
		r.samples = append(r.samples, ms)
	} else {
		r.samples[r.pos] = ms
		r.pos = (r.pos + 1) % w.size
	}
	r.last = ms
}

func (w *latencyWindow) Count(name string) {
	if name == "" {
		return
	}
	w.mu.Lock()
	w.counters[name]++
	w.mu.Unlock()
}

func (w *latencyWindow) Snapshot() LatencySnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := LatencySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.size,
		Stages:      make([]StageLatency, 0, len(w.rings)),
	}
	for stage, r := range w.rings {
		sorted := slices.Clone(r.samples)
		slices.Sort(sorted)
		var sum float64
		for _, v := range sorted {
			sum += v
		}
		snap.Stages = append(snap.Stages, StageLatency{
			Stage:       stage,
			Samples:     len(sorted),
			LastMS:      round2(r.last),
			AvgMS:       round2(sum / float64(len(sorted))),
			P50MS:       round2(percentile(sorted, 0.50)),
			P95MS:       round2(percentile(sorted, 0.95)),
			TargetP95MS: stageTargets[stage],
		})
	}
	slices.SortFunc(snap.Stages, func(a, b StageLatency) int {
		switch {
		case a.Stage < b.Stage:
			return -1
		case a.Stage > b.Stage:
			return 1
		}
		return 0
	})
	if len(w.counters) > 0 {
		snap.Counters = make(map[string]int64, len(w.counters))
		for k, v := range w.counters {
			snap.Counters[k] = v
		}
	}
	return snap
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
