package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/edaic-vafn/dataset"
	"github.com/maastricht-university/edaic-vafn/encoder"
	"github.com/maastricht-university/edaic-vafn/modality"
	"github.com/maastricht-university/edaic-vafn/tensor"
)

// constEncoder emits value v + frame index in every latent feature.
type constEncoder struct {
	name   string
	latent int
	v      float64
}

func (c constEncoder) Name() string   { return c.name }
func (c constEncoder) LatentDim() int { return c.latent }
func (c constEncoder) Forward(mode encoder.Mode, data *tensor.Tensor, mask *tensor.Mask, ratio []float64) (*tensor.Tensor, error) {
	out := tensor.New(data.Dim(0), data.Dim(1), c.latent)
	for b := 0; b < data.Dim(0); b++ {
		for t := 0; t < data.Dim(1); t++ {
			for i := 0; i < c.latent; i++ {
				out.Set(c.v+float64(t), b, t, i)
			}
		}
	}
	return out, nil
}

func batchOf(names ...string) *dataset.Batch {
	b := &dataset.Batch{Inputs: map[string]dataset.Input{}, Labels: []int{0, 1}}
	for _, n := range names {
		m := tensor.NewMask(2, 3)
		m.SetInvalid(0, 0, true)
		for t := 0; t < 3; t++ {
			m.SetInvalid(1, t, true)
		}
		b.Inputs[n] = dataset.Input{Data: tensor.New(2, 3, 1), Mask: m, FramerateRatio: []float64{1, 1}}
	}
	return b
}

func TestFuseMaskedMean(t *testing.T) {
	m, err := NewVAFN([]encoder.Encoder{
		constEncoder{"a", 2, 0},
		constEncoder{"b", 2, 10},
	}, 2, 1)
	require.NoError(t, err)

	z, err := m.Fuse(encoder.Eval, batchOf("a", "b"))
	require.NoError(t, err)
	// sample 0 keeps frames 1 and 2: a pools to 1.5, b to 11.5
	assert.InDelta(t, 6.5, z.At(0, 0), 1e-12)
	assert.InDelta(t, 6.5, z.At(0, 1), 1e-12)
	// sample 1 has no valid frame anywhere
	assert.Equal(t, 0.0, z.At(1, 0))
}

func TestForwardLogits(t *testing.T) {
	m, err := NewVAFN([]encoder.Encoder{constEncoder{"a", 2, 0}}, 3, 1)
	require.NoError(t, err)
	require.NoError(t, m.SetHead([]float64{
		1, 0,
		0, 1,
		1, 1,
	}, []float64{0, 1, -1}))

	logits, err := m.Forward(encoder.Eval, batchOf("a"))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, logits.Shape())
	assert.InDeltaSlice(t, []float64{1.5, 2.5, 2, 0, 1, -1}, logits.Data(), 1e-12)
}

func TestNewVAFNErrors(t *testing.T) {
	_, err := NewVAFN(nil, 2, 1)
	require.Error(t, err)

	_, err = NewVAFN([]encoder.Encoder{constEncoder{"a", 2, 0}, constEncoder{"b", 4, 0}}, 2, 1)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)

	_, err = NewVAFN([]encoder.Encoder{constEncoder{"a", 2, 0}}, 1, 1)
	require.ErrorIs(t, err, encoder.ErrInvalidArgument)
}

func TestForwardMissingInput(t *testing.T) {
	m, err := NewVAFN([]encoder.Encoder{constEncoder{"a", 2, 0}}, 2, 1)
	require.NoError(t, err)
	_, err = m.Forward(encoder.Eval, batchOf("b"))
	require.Error(t, err)
}

func TestForwardWithNoOpEncoders(t *testing.T) {
	audio := encoder.MustNewNoOp(encoder.Args{Name: "edaic_audio_mfcc", InputDim: 1, LatentDim: 4, Clock: modality.ClockFixed, MaxDataLength: 3})
	video := encoder.MustNewNoOp(encoder.Args{Name: "edaic_video_pose_gaze_aus", InputDim: 1, LatentDim: 4, Clock: modality.ClockScaledByFramerate, MaxDataLength: 3})
	m, err := NewVAFN([]encoder.Encoder{audio, video}, 2, 1)
	require.NoError(t, err)

	b := batchOf("edaic_audio_mfcc", "edaic_video_pose_gaze_aus")
	logits, err := m.Forward(encoder.Train, b)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, logits.Shape())
	assert.Equal(t, 1, audio.Norm().State().Tracked)
	assert.Equal(t, 1, video.Norm().State().Tracked)
}

func TestSoftmaxAndLoss(t *testing.T) {
	p := Softmax([]float64{0, math.Log(3)})
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, p, 1e-12)
	assert.Equal(t, 1, Argmax(p))

	logits, _ := tensor.FromSlice([]float64{0, math.Log(3), 0, 0}, 2, 2)
	loss, err := CrossEntropy(logits, []int{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, (-math.Log(0.75)-math.Log(0.5))/2, loss, 1e-12)

	_, err = CrossEntropy(logits, []int{2, 0})
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
	_, err = CrossEntropy(logits, []int{1})
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
}
