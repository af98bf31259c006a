package ml

import (
	"math"
	"math/rand"

	"tritonclient/tensor"
)

// GenerateSample builds a reproducible 20x14 time-series window: standard
// normal noise plus a per-column scaled sine wave over one period.
func GenerateSample(seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	rows, cols := tensor.WindowRows, tensor.WindowCols

	data := make([][]float32, rows)
	for i := range data {
		data[i] = make([]float32, cols)
		for j := range data[i] {
			data[i][j] = float32(rng.NormFloat64())
		}
	}

	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			phase := 2 * math.Pi * float64(i) / float64(rows-1)
			data[i][j] += float32(math.Sin(phase) * float64(j+1) * 0.1)
		}
	}
	return data
}

// GenerateBatch returns a (1,20,14) random input without the sine pattern.
func GenerateBatch(seed int64) tensor.Array {
	rng := rand.New(rand.NewSource(seed))
	shape := tensor.Shape{1, tensor.WindowRows, tensor.WindowCols}
	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return tensor.Array{Shape: shape, Data: data}
}
