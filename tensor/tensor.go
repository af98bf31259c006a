// Package tensor 提供推理请求的张量描述与输入规范化
package tensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// DatatypeFP32 is the only datatype this model family accepts.
const DatatypeFP32 = "FP32"

// ErrDataShape is returned when input cannot be laid out as the expected float32 tensor.
var ErrDataShape = errors.New("data shape error")

// Array is a dense row-major float32 buffer with its shape.
type Array struct {
	Shape Shape
	Data  []float32
}

// NewArray checks that data fits shape and wraps both.
func NewArray(shape Shape, data []float32) (Array, error) {
	if err := shape.Validate(); err != nil {
		return Array{}, err
	}
	if len(data) != shape.NumElements() {
		return Array{}, fmt.Errorf("%w: %d values do not fill shape %s", ErrDataShape, len(data), shape)
	}
	return Array{Shape: shape.Clone(), Data: data}, nil
}

// Range returns the smallest and largest value in the array.
func (a Array) Range() (lo, hi float32) {
	if len(a.Data) == 0 {
		return 0, 0
	}
	lo, hi = a.Data[0], a.Data[0]
	for _, v := range a.Data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// InputTensor 推理输入张量
type InputTensor struct {
	Name     string
	Shape    Shape
	Datatype string
	Data     []float32
}

// RawContents encodes the payload as little-endian float32 bytes, the layout
// both wire protocols carry.
func (t InputTensor) RawContents() []byte {
	return EncodeFP32(t.Data)
}

// OutputSpec requests a named output tensor.
type OutputSpec struct {
	Name string
}

// OutputTensor 推理输出张量
type OutputTensor struct {
	Name     string
	Shape    Shape
	Datatype string
	Data     []float32
}

// FirstSample returns the values of index 0 along the batch axis. Tensors
// with fewer than two dimensions are returned whole.
func (t OutputTensor) FirstSample() []float32 {
	if len(t.Shape) < 2 || t.Shape[0] <= 1 {
		return t.Data
	}
	size := len(t.Data) / t.Shape[0]
	return t.Data[:size]
}

// CheckLength reports an error when the payload does not fill the shape.
func (t OutputTensor) CheckLength() error {
	for i, dim := range t.Shape {
		if dim < 0 {
			return fmt.Errorf("%w: output %q has negative dimension at index %d: %d", ErrDataShape, t.Name, i, dim)
		}
	}
	if len(t.Data) != t.Shape.NumElements() {
		return fmt.Errorf("%w: output %q has %d values for shape %s", ErrDataShape, t.Name, len(t.Data), t.Shape)
	}
	return nil
}

// EncodeFP32 serializes values as little-endian IEEE-754 float32.
func EncodeFP32(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// DecodeFP32 parses little-endian float32 bytes.
func DecodeFP32(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of FP32 values", ErrDataShape, len(raw))
	}
	values := make([]float32, len(raw)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return values, nil
}
