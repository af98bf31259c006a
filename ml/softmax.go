package ml

import "math"

// Softmax converts logits into a probability distribution. The maximum logit
// is subtracted before exponentiating so large inputs cannot overflow.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}

	maxVal := float64(logits[0])
	for _, v := range logits[1:] {
		if float64(v) > maxVal {
			maxVal = float64(v)
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(float64(v) - maxVal)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Argmax returns the index of the largest value, the lowest index on ties,
// or -1 for an empty slice.
func Argmax[T float32 | float64](values []T) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i, v := range values[1:] {
		if v > values[best] {
			best = i + 1
		}
	}
	return best
}
