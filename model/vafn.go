// Package model implements the VAFN audio/video fusion classifier.
package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/maastricht-university/edaic-vafn/dataset"
	"github.com/maastricht-university/edaic-vafn/encoder"
	"github.com/maastricht-university/edaic-vafn/tensor"
)

// VAFN encodes each modality into the shared latent space, pools every stream
// over its valid frames, averages the streams and classifies the result.
type VAFN struct {
	encoders   []encoder.Encoder
	latent     int
	numClasses int
	head       *mat.Dense // numClasses × latent
	bias       *mat.VecDense
}

// NewVAFN requires every encoder to share one latent dimension.
func NewVAFN(encoders []encoder.Encoder, numClasses int, seed int64) (*VAFN, error) {
	if len(encoders) == 0 {
		return nil, fmt.Errorf("vafn: no modality encoders")
	}
	if numClasses < 2 {
		return nil, fmt.Errorf("vafn: %d classes: %w", numClasses, encoder.ErrInvalidArgument)
	}
	latent := encoders[0].LatentDim()
	for _, e := range encoders[1:] {
		if e.LatentDim() != latent {
			return nil, fmt.Errorf("vafn: %s latent %d differs from %s latent %d: %w",
				e.Name(), e.LatentDim(), encoders[0].Name(), latent, tensor.ErrShapeMismatch)
		}
	}
	rng := rand.New(rand.NewSource(seed))
	bound := 1 / math.Sqrt(float64(latent))
	w := make([]float64, numClasses*latent)
	for i := range w {
		w[i] = (2*rng.Float64() - 1) * bound
	}
	return &VAFN{
		encoders:   encoders,
		latent:     latent,
		numClasses: numClasses,
		head:       mat.NewDense(numClasses, latent, w),
		bias:       mat.NewVecDense(numClasses, nil),
	}, nil
}

func (m *VAFN) NumClasses() int { return m.numClasses }

// Encoders returns the per-modality encoders in configuration order.
func (m *VAFN) Encoders() []encoder.Encoder { return m.encoders }

// SetHead replaces the classifier weights (row-major numClasses × latent) and bias.
func (m *VAFN) SetHead(w, bias []float64) error {
	if len(w) != m.numClasses*m.latent || len(bias) != m.numClasses {
		return fmt.Errorf("vafn head %dx%d: %w", m.numClasses, m.latent, tensor.ErrShapeMismatch)
	}
	m.head = mat.NewDense(m.numClasses, m.latent, append([]float64(nil), w...))
	m.bias = mat.NewVecDense(m.numClasses, append([]float64(nil), bias...))
	return nil
}

// Fuse returns the (batch, latent) pooled representation of b.
func (m *VAFN) Fuse(mode encoder.Mode, b *dataset.Batch) (*tensor.Tensor, error) {
	n := b.Size()
	fused := tensor.New(n, m.latent)
	counts := make([]int, n)
	for _, e := range m.encoders {
		in, ok := b.Inputs[e.Name()]
		if !ok {
			return nil, fmt.Errorf("vafn: batch has no %s input", e.Name())
		}
		z, err := e.Forward(mode, in.Data, in.Mask, in.FramerateRatio)
		if err != nil {
			return nil, err
		}
		frames := z.Dim(1)
		zd := z.Data()
		pooled := make([]float64, m.latent)
		for s := 0; s < n; s++ {
			valid := in.Mask.Valid(s)
			if valid == 0 {
				continue
			}
			for i := range pooled {
				pooled[i] = 0
			}
			for t := 0; t < frames; t++ {
				if in.Mask.Invalid(s, t) {
					continue
				}
				floats.Add(pooled, zd[(s*frames+t)*m.latent:(s*frames+t+1)*m.latent])
			}
			floats.AddScaled(fused.Data()[s*m.latent:(s+1)*m.latent], 1/float64(valid), pooled)
			counts[s]++
		}
	}
	for s, c := range counts {
		if c > 1 {
			floats.Scale(1/float64(c), fused.Data()[s*m.latent:(s+1)*m.latent])
		}
	}
	return fused, nil
}

// Forward returns (batch, numClasses) logits.
func (m *VAFN) Forward(mode encoder.Mode, b *dataset.Batch) (*tensor.Tensor, error) {
	fused, err := m.Fuse(mode, b)
	if err != nil {
		return nil, err
	}
	n := b.Size()
	var logits mat.Dense
	logits.Mul(mat.NewDense(n, m.latent, fused.Data()), m.head.T())
	for r := 0; r < n; r++ {
		row := logits.RawRowView(r)
		floats.Add(row, m.bias.RawVector().Data)
	}
	out := tensor.New(n, m.numClasses)
	for r := 0; r < n; r++ {
		copy(out.Data()[r*m.numClasses:], logits.RawRowView(r))
	}
	return out, nil
}
