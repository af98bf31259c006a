package tensor

import "fmt"

// Feature window of a single Times_Classify sample.
const (
	WindowRows = 20
	WindowCols = 14
)

// Normalize turns raw input into a single batched FP32 input tensor named
// inputName. A bare 20x14 window gets a leading batch dimension of 1; any
// other shape is passed through, so normalizing an already batched tensor
// again leaves its rank alone. With batchSize > 1 every slice along axis 0 is
// repeated batchSize times. The returned tensor never shares memory with data.
func Normalize(data any, inputName string, batchSize int) (InputTensor, error) {
	arr, err := FromValues(data)
	if err != nil {
		return InputTensor{}, err
	}

	shape := arr.Shape.Clone()
	if len(shape) == 2 && shape[0] == WindowRows && shape[1] == WindowCols {
		shape = append(Shape{1}, shape...)
	}

	var values []float32
	if batchSize > 1 {
		shape, values, err = Repeat(shape, arr.Data, batchSize)
		if err != nil {
			return InputTensor{}, err
		}
	} else {
		values = append([]float32(nil), arr.Data...)
	}

	return InputTensor{
		Name:     inputName,
		Shape:    shape,
		Datatype: DatatypeFP32,
		Data:     values,
	}, nil
}

// Repeat repeats each slice along axis 0 n times in place order, so rows
// [a, b] become [a, a, b, b] for n=2.
func Repeat(shape Shape, data []float32, n int) (Shape, []float32, error) {
	if len(shape) == 0 {
		return nil, nil, fmt.Errorf("%w: cannot repeat a scalar along axis 0", ErrDataShape)
	}
	if n < 1 {
		return nil, nil, fmt.Errorf("%w: repeat count must be positive, got %d", ErrDataShape, n)
	}
	if len(data) != shape.NumElements() {
		return nil, nil, fmt.Errorf("%w: %d values do not fill shape %s", ErrDataShape, len(data), shape)
	}

	stride := 1
	if shape[0] > 0 {
		stride = len(data) / shape[0]
	}
	out := make([]float32, 0, len(data)*n)
	for i := 0; i < shape[0]; i++ {
		slice := data[i*stride : (i+1)*stride]
		for r := 0; r < n; r++ {
			out = append(out, slice...)
		}
	}

	repeated := shape.Clone()
	repeated[0] *= n
	return repeated, out, nil
}
