package dataset

import (
	"fmt"

	"github.com/maastricht-university/edaic-vafn/modality"
	"github.com/maastricht-university/edaic-vafn/tensor"
)

// Input is what a modality encoder consumes for one batch.
type Input struct {
	Data           *tensor.Tensor
	Mask           *tensor.Mask
	FramerateRatio []float64
}

// Batch is a collated group of samples.
type Batch struct {
	Inputs  map[string]Input
	Labels  []int
	Windows []Window
}

// Size returns the number of samples.
func (b *Batch) Size() int { return len(b.Labels) }

// Collate stacks samples into (batch, time, dim) tensors per modality. Shorter
// streams are zero padded and their padding is masked.
func Collate(samples []Sample, descs []*modality.Descriptor) (*Batch, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("collate: empty batch: %w", tensor.ErrShapeMismatch)
	}
	b := &Batch{
		Inputs:  make(map[string]Input, len(descs)),
		Labels:  make([]int, len(samples)),
		Windows: make([]Window, len(samples)),
	}
	for i, s := range samples {
		b.Labels[i], b.Windows[i] = s.Label, s.Window
	}

	for _, desc := range descs {
		frames, dim := 0, -1
		for _, s := range samples {
			st, ok := s.Streams[desc.Name]
			if !ok {
				return nil, fmt.Errorf("collate: window %s/%d has no %s stream", s.Window.Session, s.Window.Index, desc.Name)
			}
			if len(st.Frames) > frames {
				frames = len(st.Frames)
			}
			for _, f := range st.Frames {
				if dim == -1 {
					dim = len(f)
				}
				if len(f) != dim {
					return nil, fmt.Errorf("collate %s: frame width %d, expected %d: %w", desc.Name, len(f), dim, tensor.ErrShapeMismatch)
				}
			}
		}

		if frames == 0 {
			return nil, fmt.Errorf("collate %s: %w", desc.Name, ErrNoFrames)
		}

		data := tensor.New(len(samples), frames, dim)
		mask := tensor.NewMask(len(samples), frames)
		ratio := make([]float64, len(samples))
		raw := data.Data()
		for i, s := range samples {
			st := s.Streams[desc.Name]
			for t := 0; t < frames; t++ {
				if t >= len(st.Frames) {
					mask.SetInvalid(i, t, true)
					continue
				}
				copy(raw[(i*frames+t)*dim:], st.Frames[t])
				mask.SetInvalid(i, t, st.Invalid[t])
			}
			ratio[i] = st.FramerateRatio
		}
		b.Inputs[desc.Name] = Input{Data: data, Mask: mask, FramerateRatio: ratio}
	}
	return b, nil
}
