package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// Shape is the dimension list of a tensor, outermost axis first.
type Shape []int

// NumElements returns the number of values a tensor of this shape holds.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that every dimension is positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("%w: invalid dimension at index %d: %d", ErrDataShape, i, dim)
		}
	}
	return nil
}

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Int64 converts the shape to the wire representation.
func (s Shape) Int64() []int64 {
	out := make([]int64, len(s))
	for i, dim := range s {
		out[i] = int64(dim)
	}
	return out
}

// ShapeFromInt64 converts a wire shape back into a Shape.
func ShapeFromInt64(dims []int64) Shape {
	out := make(Shape, len(dims))
	for i, dim := range dims {
		out[i] = int(dim)
	}
	return out
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = strconv.Itoa(dim)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
