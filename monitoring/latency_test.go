package monitoring

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLatencyTrackerSummary(t *testing.T) {
	tracker := NewLatencyTracker()
	for i := 1; i <= 20; i++ {
		var err error
		if i%10 == 0 {
			err = errors.New("timeout")
		}
		tracker.Record("Times_Classify", time.Duration(i)*time.Millisecond, err)
	}

	summary := tracker.Summary()
	if summary.Count != 20 || summary.Failures != 2 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.Min != time.Millisecond || summary.Max != 20*time.Millisecond {
		t.Fatalf("unexpected min/max: %+v", summary)
	}
	if summary.Mean != 10500*time.Microsecond {
		t.Fatalf("unexpected mean: %v", summary.Mean)
	}
	if summary.P95 != 19*time.Millisecond {
		t.Fatalf("unexpected p95: %v", summary.P95)
	}
	if summary.Latest != 20*time.Millisecond {
		t.Fatalf("unexpected latest: %v", summary.Latest)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	summary := NewLatencyTracker().Summary()
	if summary.Count != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestLatencyTrackerBoundsHistory(t *testing.T) {
	tracker := NewLatencyTracker()
	for i := 0; i < maxSamples+1; i++ {
		tracker.Record("m", time.Millisecond, nil)
	}
	if n := len(tracker.Samples()); n != maxSamples+1-100 {
		t.Fatalf("expected history to be trimmed, got %d", n)
	}
}

func TestLatencyTrackerExportJSON(t *testing.T) {
	tracker := NewLatencyTracker()
	tracker.Record("m", 2*time.Millisecond, nil)
	out, err := tracker.ExportJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"count": 1`) {
		t.Fatalf("unexpected json: %s", out)
	}
}
