package tensor

import (
	"fmt"
	"reflect"
)

// FromValues converts v into a float32 Array. v may be an Array, a flat
// []float32, or an arbitrarily nested slice or array of any Go numeric type;
// nested values must be rectangular.
func FromValues(v any) (Array, error) {
	switch val := v.(type) {
	case Array:
		return NewArray(val.Shape, val.Data)
	case *Array:
		if val == nil {
			return Array{}, fmt.Errorf("%w: nil array", ErrDataShape)
		}
		return NewArray(val.Shape, val.Data)
	case []float32:
		return NewArray(Shape{len(val)}, val)
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return Array{}, fmt.Errorf("%w: nil input", ErrDataShape)
	}
	shape, err := inferShape(rv)
	if err != nil {
		return Array{}, err
	}
	if err := shape.Validate(); err != nil {
		return Array{}, err
	}
	data := make([]float32, 0, shape.NumElements())
	data, err = flatten(rv, shape, data)
	if err != nil {
		return Array{}, err
	}
	return Array{Shape: shape, Data: data}, nil
}

func inferShape(rv reflect.Value) (Shape, error) {
	var shape Shape
	for {
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			shape = append(shape, rv.Len())
			if rv.Len() == 0 {
				return shape, nil
			}
			rv = rv.Index(0)
		case reflect.Interface, reflect.Pointer:
			if rv.IsNil() {
				return nil, fmt.Errorf("%w: nil element", ErrDataShape)
			}
			rv = rv.Elem()
		default:
			if !isNumeric(rv.Kind()) {
				return nil, fmt.Errorf("%w: unsupported element type %s", ErrDataShape, rv.Type())
			}
			return shape, nil
		}
	}
}

func flatten(rv reflect.Value, shape Shape, out []float32) ([]float32, error) {
	for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil element", ErrDataShape)
		}
		rv = rv.Elem()
	}
	if len(shape) == 0 {
		f, ok := toFloat32(rv)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported element type %s", ErrDataShape, rv.Type())
		}
		return append(out, f), nil
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: expected %d more dimensions, got %s", ErrDataShape, len(shape), rv.Type())
	}
	if rv.Len() != shape[0] {
		return nil, fmt.Errorf("%w: ragged input, expected length %d got %d", ErrDataShape, shape[0], rv.Len())
	}
	var err error
	for i := 0; i < rv.Len(); i++ {
		out, err = flatten(rv.Index(i), shape[1:], out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool:
		return true
	}
	return false
}

func toFloat32(rv reflect.Value) (float32, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float32(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float32(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return float32(rv.Float()), true
	case reflect.Bool:
		if rv.Bool() {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
