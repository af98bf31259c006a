// Package report 将推理结果打印到控制台
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"tritonclient/client"
	"tritonclient/inference"
	"tritonclient/ml"
	"tritonclient/monitoring"
	"tritonclient/tensor"
)

// Summary is the JSON form of a prediction.
type Summary struct {
	PredictedClass int       `json:"predicted_class"`
	PredictedLabel string    `json:"predicted_label"`
	Confidence     float64   `json:"confidence"`
	Probabilities  []float64 `json:"probabilities"`
	RawOutput      []float32 `json:"raw_output"`
	InferenceTime  float64   `json:"inference_time"`
}

// NewSummary converts a prediction, reporting latency in seconds.
func NewSummary(r *ml.PredictionResult) Summary {
	return Summary{
		PredictedClass: r.PredictedIndex,
		PredictedLabel: r.PredictedLabel,
		Confidence:     r.Confidence,
		Probabilities:  r.Probabilities,
		RawOutput:      r.RawOutput,
		InferenceTime:  r.Latency.Seconds(),
	}
}

// Connecting prints the endpoint banner.
func Connecting(w io.Writer, url string, protocol inference.Protocol) {
	fmt.Fprintf(w, "Connecting to inference server: %s (protocol: %s)\n", url, protocol)
}

// ServerStatus prints the liveness result.
func ServerStatus(w io.Writer, live bool) {
	if live {
		fmt.Fprintln(w, "Server is live")
		return
	}
	fmt.Fprintln(w, "Server is not responding")
}

// Models prints the repository index.
func Models(w io.Writer, models []inference.ModelIndex) {
	fmt.Fprintln(w, "\nAvailable models:")
	for _, m := range models {
		fmt.Fprintf(w, "  - %s (state: %s)\n", m.Name, m.State)
	}
}

// ModelInfo prints platform, batching and the declared tensors of a model.
func ModelInfo(w io.Writer, name string, info *client.ModelInfo) {
	fmt.Fprintf(w, "\nModel: %s\n", name)
	fmt.Fprintf(w, "Platform: %s\n", info.Config.Platform)
	fmt.Fprintf(w, "Max batch size: %d\n", info.Config.MaxBatchSize)

	fmt.Fprintln(w, "\nInputs:")
	writeTensors(w, info.Metadata.Inputs)
	fmt.Fprintln(w, "\nOutputs:")
	writeTensors(w, info.Metadata.Outputs)
}

func writeTensors(w io.Writer, tensors []inference.TensorMetadata) {
	for _, t := range tensors {
		fmt.Fprintf(w, "  - name: %s\n", t.Name)
		fmt.Fprintf(w, "    datatype: %s\n", t.Datatype)
		fmt.Fprintf(w, "    shape: %v\n", t.Shape)
	}
}

// Input prints the shape and value range of the input data.
func Input(w io.Writer, arr tensor.Array) {
	lo, hi := arr.Range()
	fmt.Fprintf(w, "Input shape: %s\n", arr.Shape)
	fmt.Fprintf(w, "Data range: [%.4f, %.4f]\n", lo, hi)
}

// Prediction prints the predicted label, probabilities and the JSON summary.
func Prediction(w io.Writer, r *ml.PredictionResult, labels []string) error {
	fmt.Fprintln(w, "\nPrediction:")
	fmt.Fprintf(w, "Label: %s\n", r.PredictedLabel)
	fmt.Fprintf(w, "Confidence: %.4f\n", r.Confidence)
	fmt.Fprintf(w, "Inference time: %.4f s\n", r.Latency.Seconds())

	parts := make([]string, len(r.Probabilities))
	for i, p := range r.Probabilities {
		parts[i] = fmt.Sprintf("%s=%.4f", ml.ResolveLabel(i, labels), p)
	}
	fmt.Fprintf(w, "Probabilities: %s\n", strings.Join(parts, ", "))

	data, err := json.MarshalIndent(NewSummary(r), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nSummary:\n%s\n", data)
	return nil
}

// Latency prints aggregated latency statistics.
func Latency(w io.Writer, s monitoring.LatencySummary) {
	fmt.Fprintf(w, "\nRuns: %d (failed: %d)\n", s.Count, s.Failures)
	if s.Count == 0 {
		return
	}
	fmt.Fprintf(w, "Latency min/mean/p95/max: %v / %v / %v / %v\n", s.Min, s.Mean, s.P95, s.Max)
}
