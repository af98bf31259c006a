package tensor

import (
	"fmt"
	"os"

	"github.com/sbinet/npyio"
)

// LoadNPY reads a NumPy .npy file into an Array, casting any integer or
// float dtype to float32.
func LoadNPY(path string) (Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return Array{}, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return Array{}, fmt.Errorf("failed to read npy header: %w", err)
	}
	if r.Header.Descr.Fortran {
		return Array{}, fmt.Errorf("%w: fortran-ordered arrays are not supported", ErrDataShape)
	}

	shape := Shape(append([]int(nil), r.Header.Descr.Shape...))
	data, err := readNPYData(r)
	if err != nil {
		return Array{}, err
	}
	return NewArray(shape, data)
}

func readNPYData(r *npyio.Reader) ([]float32, error) {
	switch r.Header.Descr.Type {
	case "<f4", "|f4":
		var v []float32
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("failed to read npy data: %w", err)
		}
		return v, nil
	case "<f8", "|f8":
		var v []float64
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("failed to read npy data: %w", err)
		}
		return castFloat32(v), nil
	case "<i8":
		var v []int64
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("failed to read npy data: %w", err)
		}
		return castFloat32(v), nil
	case "<i4":
		var v []int32
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("failed to read npy data: %w", err)
		}
		return castFloat32(v), nil
	case "<i2":
		var v []int16
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("failed to read npy data: %w", err)
		}
		return castFloat32(v), nil
	case "|u1", "<u1":
		var v []uint8
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("failed to read npy data: %w", err)
		}
		return castFloat32(v), nil
	}
	return nil, fmt.Errorf("%w: unsupported npy dtype %q", ErrDataShape, r.Header.Descr.Type)
}

type number interface {
	~int16 | ~int32 | ~int64 | ~uint8 | ~float64
}

func castFloat32[T number](v []T) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
