package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLatencyWindowSnapshot(t *testing.T) {
	w := newLatencyWindow(8)
	w.Observe("generation", 500)
	w.Observe("generation", 700)
	w.Observe("generation", 900)
	w.Count("fallback_hit")
	w.Count("fallback_hit")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != "generation" || s.Samples != 3 {
		t.Fatalf("unexpected stage: %+v", s)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", s.LastMS)
	}
	if s.P50MS != 700 {
		t.Fatalf("P50MS = %.2f, want 700", s.P50MS)
	}
	if s.P95MS <= 700 || s.P95MS > 900 {
		t.Fatalf("P95MS = %.2f, want (700,900]", s.P95MS)
	}
	if s.TargetP95MS != 4000 {
		t.Fatalf("TargetP95MS = %.2f, want 4000", s.TargetP95MS)
	}
	if snap.Counters["fallback_hit"] != 2 {
		t.Fatalf("Counters = %+v, want fallback_hit=2", snap.Counters)
	}
}

func TestLatencyWindowKeepsNewestSamples(t *testing.T) {
	w := newLatencyWindow(2)
	w.Observe("turn_total", 100)
	w.Observe("turn_total", 200)
	w.Observe("turn_total", 300)

	s := w.Snapshot().Stages[0]
	if s.Samples != 2 {
		t.Fatalf("Samples = %d, want 2", s.Samples)
	}
	if s.AvgMS != 250 {
		t.Fatalf("AvgMS = %.2f, want 250", s.AvgMS)
	}
	if s.LastMS != 300 {
		t.Fatalf("LastMS = %.2f, want 300", s.LastMS)
	}
}

func TestMetricsHandlerExposesReplies(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveReply("fallback")
	m.ObserveGeneration(120 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `test_replies_total{source="fallback"} 1`) {
		t.Fatalf("metrics output missing replies counter")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveReply("generated")
	m.ObserveGenerationError("openai", "timeout")
	m.SessionEvent("created")
	if snap := m.SnapshotLatency(); len(snap.Stages) != 0 {
		t.Fatalf("nil metrics snapshot should be empty")
	}
}
