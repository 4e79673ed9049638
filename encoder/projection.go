package encoder

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/maastricht-university/edaic-vafn/tensor"
)

// Projection is a bias-free linear map applied to the last axis.
type Projection struct {
	in, out int
	w       *mat.Dense // out × in
}

// NewProjection draws weights from U(-1/sqrt(in), 1/sqrt(in)).
func NewProjection(in, out int, rng *rand.Rand) *Projection {
	bound := 1 / math.Sqrt(float64(in))
	w := make([]float64, out*in)
	for i := range w {
		w[i] = (2*rng.Float64() - 1) * bound
	}
	return &Projection{in: in, out: out, w: mat.NewDense(out, in, w)}
}

// Weights exposes the out × in weight matrix.
func (p *Projection) Weights() *mat.Dense { return p.w }

// SetWeights replaces the weights with a row-major out × in slice.
func (p *Projection) SetWeights(w []float64) error {
	if len(w) != p.in*p.out {
		return fmt.Errorf("projection %dx%d got %d weights: %w", p.out, p.in, len(w), tensor.ErrShapeMismatch)
	}
	p.w = mat.NewDense(p.out, p.in, append([]float64(nil), w...))
	return nil
}

// Forward maps (..., in) to (..., out).
func (p *Projection) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	shape := x.Shape()
	if len(shape) == 0 || shape[len(shape)-1] != p.in {
		return nil, fmt.Errorf("projection from %d got %v: %w", p.in, shape, tensor.ErrShapeMismatch)
	}
	shape[len(shape)-1] = p.out
	rows := x.Len() / p.in
	if rows == 0 {
		return tensor.New(shape...), nil
	}
	var y mat.Dense
	y.Mul(mat.NewDense(rows, p.in, x.Data()), p.w.T())
	return tensor.FromSlice(y.RawMatrix().Data, shape...)
}
