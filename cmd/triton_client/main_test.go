package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"tritonclient/inference"
	"tritonclient/ml"
	"tritonclient/monitoring"
	"tritonclient/tensor"
)

func TestRecordRunKeepsFailureLatency(t *testing.T) {
	tracker := monitoring.NewLatencyTracker()
	ok := &ml.PredictionResult{Latency: 4 * time.Millisecond}

	recordRun(tracker, "Times_Classify", ok, 4*time.Millisecond, nil)
	recordRun(tracker, "Times_Classify", nil, 6*time.Millisecond,
		fmt.Errorf("%w: %w", inference.ErrInference, inference.ErrTransport))

	summary := tracker.Summary()
	if summary.Count != 2 || summary.Failures != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.Min != 4*time.Millisecond || summary.Max != 6*time.Millisecond {
		t.Fatalf("failure latency was not kept: %+v", summary)
	}
}

func TestRecordRunSkipsInputFailures(t *testing.T) {
	tracker := monitoring.NewLatencyTracker()

	recordRun(tracker, "Times_Classify", nil, 0, fmt.Errorf("%w: ragged input", tensor.ErrDataShape))
	recordRun(tracker, "Times_Classify", nil, 0, fmt.Errorf("failed to load input: %w", errors.New("no such file")))

	if got := tracker.Summary().Count; got != 0 {
		t.Fatalf("expected no recorded runs, got %d", got)
	}
}
