package encoder

import (
	"errors"
	"fmt"
	"math"

	"github.com/maastricht-university/edaic-vafn/tensor"
)

var (
	// ErrOddModelDim rejects positional encodings whose sine/cosine pairs would
	// leave a trailing feature unfilled.
	ErrOddModelDim = errors.New("model dimension must be even")
	// ErrInvalidArgument covers non-positive sizes and downscale factors.
	ErrInvalidArgument = errors.New("invalid argument")
)

// FractionalPositionalEncoding returns a (batchSize, length, dModel) sinusoidal
// encoding whose clock runs at its own rate per sample: position t of sample b
// sits at t/downscale[b]. Even features hold the sines and odd ones the
// cosines, with frequency divisor 10000^(2i/dModel) for pair i.
func FractionalPositionalEncoding(batchSize, dModel, length int, downscale []float64) (*tensor.Tensor, error) {
	if batchSize <= 0 || dModel <= 0 || length <= 0 {
		return nil, fmt.Errorf("positional encoding batch=%d d_model=%d length=%d: %w", batchSize, dModel, length, ErrInvalidArgument)
	}
	if dModel%2 != 0 {
		return nil, fmt.Errorf("positional encoding d_model=%d: %w", dModel, ErrOddModelDim)
	}
	if len(downscale) != batchSize {
		return nil, fmt.Errorf("%d downscale factors for batch of %d: %w", len(downscale), batchSize, tensor.ErrShapeMismatch)
	}
	for b, f := range downscale {
		if !(f > 0) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("downscale factor %v of sample %d: %w", f, b, ErrInvalidArgument)
		}
	}

	div := make([]float64, dModel/2)
	for i := range div {
		div[i] = math.Pow(10000, float64(2*i)/float64(dModel))
	}

	pe := tensor.New(batchSize, length, dModel)
	data := pe.Data()
	for b := 0; b < batchSize; b++ {
		for t := 0; t < length; t++ {
			pos := float64(t) / downscale[b]
			row := data[(b*length+t)*dModel : (b*length+t+1)*dModel]
			for i, d := range div {
				row[2*i] = math.Sin(pos / d)
				row[2*i+1] = math.Cos(pos / d)
			}
		}
	}
	return pe, nil
}
