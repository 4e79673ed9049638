// Package encoder maps raw per-modality feature streams into the latent space
// shared by every modality entering fusion.
package encoder

import (
	"fmt"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/maastricht-university/edaic-vafn/modality"
	"github.com/maastricht-university/edaic-vafn/tensor"
)

// Encoder turns a (batch, time, ...) feature tensor into (batch, time, latent).
type Encoder interface {
	Forward(mode Mode, data *tensor.Tensor, mask *tensor.Mask, framerateRatio []float64) (*tensor.Tensor, error)
	Name() string
	LatentDim() int
}

// Args configures one modality encoder.
type Args struct {
	Name          string
	InputDim      int
	LatentDim     int
	Clock         modality.ClockPolicy
	MaxDataLength int
	Seed          int64
}

// NoOp normalizes, projects and adds a positional signal, nothing more.
type NoOp struct {
	args Args
	norm *BatchNorm
	proj *Projection

	mu sync.Mutex
	// positions holds one (MaxDataLength, latent) encoding per clock rate.
	positions map[float64][]float64
}

// MustNewNoOp is NewNoOp that panics on a bad configuration.
func MustNewNoOp(args Args) *NoOp {
	e, err := NewNoOp(args)
	if err != nil {
		panic(err.Error())
	}
	return e
}

// NewNoOp builds a no-op encoder. An odd latent dimension is rejected here so
// that it never reaches a forward pass.
func NewNoOp(args Args) (*NoOp, error) {
	if args.InputDim <= 0 || args.LatentDim <= 0 || args.MaxDataLength <= 0 {
		return nil, fmt.Errorf("encoder %s: input_dim=%d latent_dim=%d max_data_length=%d: %w",
			args.Name, args.InputDim, args.LatentDim, args.MaxDataLength, ErrInvalidArgument)
	}
	if args.LatentDim%2 != 0 {
		return nil, fmt.Errorf("encoder %s: latent_dim=%d: %w", args.Name, args.LatentDim, ErrOddModelDim)
	}
	return &NoOp{
		args:      args,
		norm:      NewBatchNorm(args.InputDim),
		proj:      NewProjection(args.InputDim, args.LatentDim, rand.New(rand.NewSource(args.Seed))),
		positions: map[float64][]float64{},
	}, nil
}

func (e *NoOp) Name() string       { return e.args.Name }
func (e *NoOp) LatentDim() int     { return e.args.LatentDim }
func (e *NoOp) MaxDataLength() int { return e.args.MaxDataLength }

// Norm exposes the normalization layer and its running state.
func (e *NoOp) Norm() *BatchNorm { return e.norm }

// Projection exposes the latent projection.
func (e *NoOp) Projection() *Projection { return e.proj }

// Forward encodes data. The mask is checked against the data but does not
// alter the result. Fixed-clock encoders ignore the ratio values.
func (e *NoOp) Forward(mode Mode, data *tensor.Tensor, mask *tensor.Mask, framerateRatio []float64) (*tensor.Tensor, error) {
	if data.Rank() == 0 {
		return nil, fmt.Errorf("encoder %s: scalar input: %w", e.args.Name, tensor.ErrShapeMismatch)
	}
	batch := data.Dim(0)
	x, err := data.View(batch, -1, e.args.InputDim)
	if err != nil {
		return nil, fmt.Errorf("encoder %s: %w", e.args.Name, err)
	}
	frames := x.Dim(1)
	if frames == 0 {
		return nil, fmt.Errorf("encoder %s: no frames: %w", e.args.Name, ErrInvalidArgument)
	}
	if frames > e.args.MaxDataLength {
		return nil, fmt.Errorf("encoder %s: %d frames exceed max data length %d: %w", e.args.Name, frames, e.args.MaxDataLength, tensor.ErrShapeMismatch)
	}
	if mask == nil || mask.Batch() != batch || mask.Time() != frames {
		return nil, fmt.Errorf("encoder %s: mask does not cover (%d, %d): %w", e.args.Name, batch, frames, tensor.ErrShapeMismatch)
	}
	if len(framerateRatio) != batch {
		return nil, fmt.Errorf("encoder %s: %d framerate ratios for batch of %d: %w", e.args.Name, len(framerateRatio), batch, tensor.ErrShapeMismatch)
	}

	x, err = e.norm.Forward(mode, x)
	if err != nil {
		return nil, fmt.Errorf("encoder %s: %w", e.args.Name, err)
	}
	x, err = e.proj.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("encoder %s: %w", e.args.Name, err)
	}

	d := e.args.LatentDim
	out := x.Data()
	for b := 0; b < batch; b++ {
		rate := 1.0
		if e.args.Clock == modality.ClockScaledByFramerate {
			rate = framerateRatio[b]
		}
		pe, err := e.position(rate)
		if err != nil {
			return nil, fmt.Errorf("encoder %s: %w", e.args.Name, err)
		}
		floats.Add(out[b*frames*d:(b+1)*frames*d], pe[:frames*d])
	}
	return x, nil
}

// position returns the encoding of one sample running at rate, built over the
// full MaxDataLength on first use.
func (e *NoOp) position(rate float64) ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if pe, ok := e.positions[rate]; ok {
		return pe, nil
	}
	pe, err := FractionalPositionalEncoding(1, e.args.LatentDim, e.args.MaxDataLength, []float64{rate})
	if err != nil {
		return nil, err
	}
	e.positions[rate] = pe.Data()
	return pe.Data(), nil
}
