// Package tensor implements the dense row-major float64 tensor and frame mask
// passed between the dataset, the encoders and the fusion model.
package tensor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrShapeMismatch is returned whenever two shapes cannot be reconciled.
var ErrShapeMismatch = errors.New("shape mismatch")

// Tensor is a dense row-major float64 array.
type Tensor struct {
	shape []int
	data  []float64
}

// New allocates a zero tensor of the given shape.
func New(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor{shape: append([]int(nil), shape...), data: make([]float64, n)}
}

// FromSlice wraps data in a tensor of the given shape. The slice is not copied.
func FromSlice(data []float64, shape ...int) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("negative dimension %v: %w", shape, ErrShapeMismatch)
		}
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("%d values do not fill shape %v: %w", len(data), shape, ErrShapeMismatch)
	}
	return &Tensor{shape: append([]int(nil), shape...), data: data}, nil
}

// Shape returns a copy of the tensor dimensions.
func (t *Tensor) Shape() []int { return append([]int(nil), t.shape...) }

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int { return t.shape[i] }

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Len returns the number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// Data exposes the backing slice.
func (t *Tensor) Data() []float64 { return t.data }

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index %v for shape %v", idx, t.shape))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.shape))
		}
		off = off*t.shape[i] + v
	}
	return off
}

// At returns the element at idx.
func (t *Tensor) At(idx ...int) float64 { return t.data[t.offset(idx)] }

// Set writes v at idx.
func (t *Tensor) Set(v float64, idx ...int) { t.data[t.offset(idx)] = v }

// View returns a tensor sharing the same data with a new shape. At most one
// dimension may be -1, in which case it is inferred from the element count.
func (t *Tensor) View(shape ...int) (*Tensor, error) {
	infer := -1
	known := 1
	for i, d := range shape {
		switch {
		case d == -1:
			if infer >= 0 {
				return nil, fmt.Errorf("view %v: only one dimension can be inferred: %w", shape, ErrShapeMismatch)
			}
			infer = i
		case d <= 0:
			return nil, fmt.Errorf("view %v: invalid dimension %d: %w", shape, d, ErrShapeMismatch)
		default:
			known *= d
		}
	}
	out := append([]int(nil), shape...)
	if infer >= 0 {
		if len(t.data)%known != 0 {
			return nil, fmt.Errorf("view %v of %v: %d elements not divisible by %d: %w", shape, t.shape, len(t.data), known, ErrShapeMismatch)
		}
		out[infer] = len(t.data) / known
	} else if known != len(t.data) {
		return nil, fmt.Errorf("view %v of %v: %w", shape, t.shape, ErrShapeMismatch)
	}
	return &Tensor{shape: out, data: t.data}, nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{shape: t.Shape(), data: append([]float64(nil), t.data...)}
}

// Add returns t + o for tensors of identical shape.
func (t *Tensor) Add(o *Tensor) (*Tensor, error) {
	if !SameShape(t, o) {
		return nil, fmt.Errorf("add %v and %v: %w", t.shape, o.shape, ErrShapeMismatch)
	}
	out := New(t.shape...)
	floats.AddTo(out.data, t.data, o.data)
	return out, nil
}

// SameShape reports whether a and b have identical dimensions.
func SameShape(a, b *Tensor) bool {
	if len(a.shape) != len(b.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}
	return true
}
