package encoder

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/maastricht-university/edaic-vafn/tensor"
)

// Mode selects between statistics-updating and read-only passes.
type Mode int

const (
	Eval Mode = iota
	Train
)

func (m Mode) String() string {
	if m == Train {
		return "train"
	}
	return "eval"
}

const (
	normEps      = 1e-5
	normMomentum = 0.1
)

// NormState is the running statistics of a BatchNorm, one entry per channel.
type NormState struct {
	Mean    []float64
	Var     []float64
	Tracked int
}

// BatchNorm normalizes every channel of a (batch, time, channel) tensor over
// the batch and time axes.
type BatchNorm struct {
	Gamma []float64
	Beta  []float64
	state NormState
}

// NewBatchNorm returns a norm with unit scale, zero shift, zero running mean
// and unit running variance.
func NewBatchNorm(channels int) *BatchNorm {
	n := &BatchNorm{
		Gamma: make([]float64, channels),
		Beta:  make([]float64, channels),
		state: NormState{Mean: make([]float64, channels), Var: make([]float64, channels)},
	}
	for c := 0; c < channels; c++ {
		n.Gamma[c] = 1
		n.state.Var[c] = 1
	}
	return n
}

// State returns a copy of the running statistics.
func (n *BatchNorm) State() NormState {
	return NormState{
		Mean:    append([]float64(nil), n.state.Mean...),
		Var:     append([]float64(nil), n.state.Var...),
		Tracked: n.state.Tracked,
	}
}

// Forward dispatches to Update in Train mode and Apply in Eval mode.
func (n *BatchNorm) Forward(mode Mode, x *tensor.Tensor) (*tensor.Tensor, error) {
	if mode == Train {
		return n.Update(x)
	}
	return n.Apply(x)
}

func (n *BatchNorm) check(x *tensor.Tensor) error {
	if x.Rank() != 3 || x.Dim(2) != len(n.Gamma) {
		return fmt.Errorf("batch norm over %d channels got %v: %w", len(n.Gamma), x.Shape(), tensor.ErrShapeMismatch)
	}
	return nil
}

// Update normalizes x with its own statistics and folds them into the
// running state.
func (n *BatchNorm) Update(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := n.check(x); err != nil {
		return nil, err
	}
	channels := len(n.Gamma)
	rows := x.Dim(0) * x.Dim(1)
	if rows < 2 {
		return nil, fmt.Errorf("batch norm needs more than one value per channel in training, got %d: %w", rows, ErrInvalidArgument)
	}

	out := tensor.New(x.Shape()...)
	src, dst := x.Data(), out.Data()
	col := make([]float64, rows)
	for c := 0; c < channels; c++ {
		for r := 0; r < rows; r++ {
			col[r] = src[r*channels+c]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		scale := n.Gamma[c] / math.Sqrt(variance+normEps)
		for r := 0; r < rows; r++ {
			dst[r*channels+c] = (col[r]-mean)*scale + n.Beta[c]
		}
		unbiased := variance * float64(rows) / float64(rows-1)
		n.state.Mean[c] = (1-normMomentum)*n.state.Mean[c] + normMomentum*mean
		n.state.Var[c] = (1-normMomentum)*n.state.Var[c] + normMomentum*unbiased
	}
	n.state.Tracked++
	return out, nil
}

// Apply normalizes x with the running statistics without touching them.
func (n *BatchNorm) Apply(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := n.check(x); err != nil {
		return nil, err
	}
	channels := len(n.Gamma)
	out := tensor.New(x.Shape()...)
	src, dst := x.Data(), out.Data()
	for i, v := range src {
		c := i % channels
		dst[i] = (v-n.state.Mean[c])/math.Sqrt(n.state.Var[c]+normEps)*n.Gamma[c] + n.Beta[c]
	}
	return out, nil
}
