package ml

import (
	"errors"
	"testing"
	"time"

	"tritonclient/tensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretBirdOrUAV(t *testing.T) {
	result, err := Interpret([]float32{2.0, -1.0}, []string{"bird", "uav"}, 3*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, 0, result.PredictedIndex)
	assert.Equal(t, "bird", result.PredictedLabel)
	assert.InDelta(t, 0.9526, result.Confidence, 1e-3)
	assert.InDelta(t, 0.0474, result.Probabilities[1], 1e-3)
	assert.Equal(t, []float32{2.0, -1.0}, result.RawOutput)
	assert.Equal(t, 3*time.Millisecond, result.Latency)
}

func TestInterpretLabelFallback(t *testing.T) {
	result, err := Interpret([]float32{0.1, 0.2, 5.0}, []string{"bird", "uav"}, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, result.PredictedIndex)
	assert.Equal(t, "Class_2", result.PredictedLabel)
	assert.Len(t, result.Probabilities, 3)
}

func TestInterpretEmptyOutput(t *testing.T) {
	_, err := Interpret(nil, DefaultLabels, 0)
	if !errors.Is(err, ErrEmptyOutput) {
		t.Fatalf("expected ErrEmptyOutput, got %v", err)
	}
}

func TestInterpretOutputUsesFirstSample(t *testing.T) {
	out := tensor.OutputTensor{
		Name:  "output",
		Shape: tensor.Shape{2, 2},
		Data:  []float32{-1, 4, 9, -9},
	}
	result, err := InterpretOutput(out, DefaultLabels, 0)
	require.NoError(t, err)

	assert.Equal(t, "uav", result.PredictedLabel)
	assert.Equal(t, []float32{-1, 4}, result.RawOutput)
}

func TestResolveLabel(t *testing.T) {
	labels := []string{"bird", "uav"}
	assert.Equal(t, "bird", ResolveLabel(0, labels))
	assert.Equal(t, "uav", ResolveLabel(1, labels))
	assert.Equal(t, "Class_7", ResolveLabel(7, labels))
	assert.Equal(t, "Class_0", ResolveLabel(0, nil))
}
