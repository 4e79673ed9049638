package encoder

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/edaic-vafn/modality"
	"github.com/maastricht-university/edaic-vafn/tensor"
)

func randomInput(rng *rand.Rand, shape ...int) *tensor.Tensor {
	x := tensor.New(shape...)
	for i := range x.Data() {
		x.Data()[i] = rng.NormFloat64()
	}
	return x
}

func ones(n int) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = 1
	}
	return o
}

func TestNoOpOutputShape(t *testing.T) {
	tests := []struct {
		name     string
		inputDim int
		shape    []int
	}{
		{"already shaped", 5, []int{2, 4, 5}},
		{"flattened frames", 3, []int{2, 12}},
		{"single feature", 1, []int{3, 6, 1}},
		{"wide input", 64, []int{1, 2, 64}},
	}
	rng := rand.New(rand.NewSource(3))
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := MustNewNoOp(Args{Name: "edaic_video_pose_gaze_aus", InputDim: tc.inputDim, LatentDim: 8,
				Clock: modality.ClockScaledByFramerate, MaxDataLength: 10})
			x := randomInput(rng, tc.shape...)
			batch := tc.shape[0]
			frames := x.Len() / batch / tc.inputDim

			for _, mode := range []Mode{Train, Eval} {
				y, err := e.Forward(mode, x, tensor.NewMask(batch, frames), ones(batch))
				require.NoError(t, err)
				assert.Equal(t, []int{batch, frames, 8}, y.Shape())
			}
		})
	}
}

func TestNoOpShapeMismatch(t *testing.T) {
	e := MustNewNoOp(Args{Name: "edaic_audio_mfcc", InputDim: 4, LatentDim: 8, Clock: modality.ClockFixed, MaxDataLength: 5})
	tests := []struct {
		name  string
		data  *tensor.Tensor
		mask  *tensor.Mask
		ratio []float64
	}{
		{"not divisible", tensor.New(2, 7), tensor.NewMask(2, 1), ones(2)},
		{"too many frames", tensor.New(1, 6, 4), tensor.NewMask(1, 6), ones(1)},
		{"mask batch", tensor.New(2, 3, 4), tensor.NewMask(1, 3), ones(2)},
		{"mask time", tensor.New(2, 3, 4), tensor.NewMask(2, 2), ones(2)},
		{"missing mask", tensor.New(2, 3, 4), nil, ones(2)},
		{"ratio batch", tensor.New(2, 3, 4), tensor.NewMask(2, 3), ones(3)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Forward(Eval, tc.data, tc.mask, tc.ratio)
			require.ErrorIs(t, err, tensor.ErrShapeMismatch)
		})
	}
}

func TestNoOpRejectsOddLatent(t *testing.T) {
	_, err := NewNoOp(Args{Name: "x", InputDim: 4, LatentDim: 7, MaxDataLength: 5})
	require.ErrorIs(t, err, ErrOddModelDim)

	_, err = NewNoOp(Args{Name: "x", InputDim: 0, LatentDim: 8, MaxDataLength: 5})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNoOpFixedClockIgnoresRatio(t *testing.T) {
	args := Args{Name: "edaic_audio_egemaps", InputDim: 3, LatentDim: 6, Clock: modality.ClockFixed, MaxDataLength: 8, Seed: 11}
	x := randomInput(rand.New(rand.NewSource(5)), 2, 8, 3)
	mask := tensor.NewMask(2, 8)

	a, err := MustNewNoOp(args).Forward(Train, x, mask, []float64{1, 1})
	require.NoError(t, err)
	b, err := MustNewNoOp(args).Forward(Train, x, mask, []float64{0.25, 3})
	require.NoError(t, err)
	assert.Equal(t, a.Data(), b.Data())
}

func TestNoOpScaledClockUsesRatio(t *testing.T) {
	args := Args{Name: "edaic_video_cnn_resnet", InputDim: 3, LatentDim: 6, Clock: modality.ClockScaledByFramerate, MaxDataLength: 8, Seed: 11}
	x := randomInput(rand.New(rand.NewSource(5)), 2, 8, 3)
	mask := tensor.NewMask(2, 8)
	e := MustNewNoOp(args)

	a, err := e.Forward(Eval, x, mask, []float64{1, 1})
	require.NoError(t, err)
	b, err := e.Forward(Eval, x, mask, []float64{1, 0.5})
	require.NoError(t, err)

	// first sample keeps its clock, second one differs past frame zero
	assert.Equal(t, a.Data()[:8*6], b.Data()[:8*6])
	assert.NotEqual(t, a.Data()[8*6:], b.Data()[8*6:])

	pa, _ := FractionalPositionalEncoding(1, 6, 8, []float64{1})
	pb, _ := FractionalPositionalEncoding(1, 6, 8, []float64{0.5})
	for i := 0; i < 8*6; i++ {
		assert.InDelta(t, pb.Data()[i]-pa.Data()[i], b.Data()[8*6+i]-a.Data()[8*6+i], 1e-9)
	}
}

func TestNoOpReusesEncodingPerClockRate(t *testing.T) {
	args := Args{Name: "edaic_video_pose_gaze_aus", InputDim: 2, LatentDim: 4, Clock: modality.ClockScaledByFramerate, MaxDataLength: 6}
	e := MustNewNoOp(args)
	require.NoError(t, e.Projection().SetWeights(make([]float64, 8)))
	x := tensor.New(3, 4, 2)

	a, err := e.Forward(Eval, x, tensor.NewMask(3, 4), []float64{1, 0.5, 0.5})
	require.NoError(t, err)
	b, err := e.Forward(Eval, x, tensor.NewMask(3, 4), []float64{0.5, 1, 1})
	require.NoError(t, err)
	assert.Len(t, e.positions, 2)

	// zero projection leaves only the first frames of the full-length encoding
	for i, rate := range []float64{1, 0.5, 0.5} {
		pe, err := FractionalPositionalEncoding(1, 4, 6, []float64{rate})
		require.NoError(t, err)
		assert.InDeltaSlice(t, pe.Data()[:4*4], a.Data()[i*16:(i+1)*16], 1e-12)
	}
	assert.Equal(t, a.Data()[16:32], b.Data()[:16])
	assert.Equal(t, a.Data()[:16], b.Data()[16:32])

	_, err = e.Forward(Eval, x, tensor.NewMask(3, 4), []float64{1, 0, 1})
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Len(t, e.positions, 2)
}

func TestNoOpAddsPositionalEncodingToProjection(t *testing.T) {
	e := MustNewNoOp(Args{Name: "edaic_audio_mfcc", InputDim: 2, LatentDim: 2, Clock: modality.ClockFixed, MaxDataLength: 4})
	require.NoError(t, e.Projection().SetWeights([]float64{1, 0, 0, 1}))

	// zero input stays zero through the untouched norm, leaving only the encoding
	y, err := e.Forward(Eval, tensor.New(1, 3, 2), tensor.NewMask(1, 3), []float64{1})
	require.NoError(t, err)
	pe, _ := FractionalPositionalEncoding(1, 2, 4, []float64{1})
	assert.InDeltaSlice(t, pe.Data()[:3*2], y.Data(), 1e-12)
}

func TestNoOpTrainModeUpdatesOnlyOwnState(t *testing.T) {
	args := Args{Name: "edaic_audio_mfcc", InputDim: 3, LatentDim: 4, Clock: modality.ClockFixed, MaxDataLength: 4}
	e1, e2 := MustNewNoOp(args), MustNewNoOp(args)
	x := randomInput(rand.New(rand.NewSource(9)), 2, 4, 3)

	_, err := e1.Forward(Train, x, tensor.NewMask(2, 4), ones(2))
	require.NoError(t, err)
	assert.Equal(t, 1, e1.Norm().State().Tracked)
	assert.Equal(t, 0, e2.Norm().State().Tracked)

	_, err = e1.Forward(Eval, x, tensor.NewMask(2, 4), ones(2))
	require.NoError(t, err)
	assert.Equal(t, 1, e1.Norm().State().Tracked)
}
