// Package ml 解释模型输出并生成样本数据
package ml

import (
	"errors"
	"fmt"
	"time"

	"tritonclient/tensor"
)

// ErrEmptyOutput is returned when there are no logits to interpret.
var ErrEmptyOutput = errors.New("model output is empty")

// DefaultLabels are the Times_Classify classes.
var DefaultLabels = []string{"bird", "uav"}

// PredictionResult 带标签的预测结果
type PredictionResult struct {
	PredictedIndex int           `json:"predicted_class"`
	PredictedLabel string        `json:"predicted_label"`
	Confidence     float64       `json:"confidence"`
	Probabilities  []float64     `json:"probabilities"`
	RawOutput      []float32     `json:"raw_output"`
	Latency        time.Duration `json:"-"`
}

// ResolveLabel maps a class index to its label, falling back to
// "Class_<index>" when the label list is too short.
func ResolveLabel(index int, labels []string) string {
	if index >= 0 && index < len(labels) {
		return labels[index]
	}
	return fmt.Sprintf("Class_%d", index)
}

// Interpret turns the logits of one sample into a labeled prediction.
func Interpret(logits []float32, labels []string, latency time.Duration) (*PredictionResult, error) {
	if len(logits) == 0 {
		return nil, ErrEmptyOutput
	}

	probs := Softmax(logits)
	idx := Argmax(probs)

	raw := make([]float32, len(logits))
	copy(raw, logits)

	return &PredictionResult{
		PredictedIndex: idx,
		PredictedLabel: ResolveLabel(idx, labels),
		Confidence:     probs[idx],
		Probabilities:  probs,
		RawOutput:      raw,
		Latency:        latency,
	}, nil
}

// InterpretOutput interprets the first sample of a (possibly batched)
// output tensor. Further samples in the batch are ignored.
func InterpretOutput(out tensor.OutputTensor, labels []string, latency time.Duration) (*PredictionResult, error) {
	return Interpret(out.FirstSample(), labels, latency)
}
