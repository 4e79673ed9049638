package trainer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/edaic-vafn/config"
	"github.com/maastricht-university/edaic-vafn/dataset"
	"github.com/maastricht-university/edaic-vafn/encoder"
	"github.com/maastricht-university/edaic-vafn/modality"
	"github.com/maastricht-university/edaic-vafn/tensor"
)

type fakeClassifier struct {
	modes []encoder.Mode
	err   error
}

// Forward returns uniform two-class logits.
func (f *fakeClassifier) Forward(mode encoder.Mode, b *dataset.Batch) (*tensor.Tensor, error) {
	f.modes = append(f.modes, mode)
	if f.err != nil {
		return nil, f.err
	}
	return tensor.New(b.Size(), 2), nil
}

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	cfg := &config.Root{}
	cfg.Experiment.SecondsPerWindow = 1
	cfg.Constants.MaxVideoFPS = 4
	cfg.ApplyDefaults()

	src := dataset.NewMemorySource([]modality.Session{{ID: "400", PHQBinary: 1}})
	frames := make([][]float64, 12)
	for i := range frames {
		frames[i] = []float64{float64(i)}
	}
	src.Put("400", "video_pose_gaze_aus", &dataset.Recording{FPS: 4, Frames: frames})

	d, err := modality.New(modality.VideoPoseGazeAus, nil, "", cfg)
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	ds, err := dataset.New(context.Background(), "e-daic-woz", src, []*modality.Descriptor{d}, cfg,
		dataset.Options{BatchSize: 2, NumClasses: 2, Shuffle: true}, log)
	require.NoError(t, err)
	return ds
}

func TestFit(t *testing.T) {
	ds := testDataset(t)
	f := &fakeClassifier{}
	log, hook := test.NewNullLogger()

	rep, err := NewClassification(f, 2, log).Fit(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, rep.Epochs, 2)
	for i, st := range rep.Epochs {
		assert.Equal(t, i, st.Epoch)
		assert.Equal(t, 2, st.Batches)
		assert.Equal(t, 3, st.Samples)
		assert.InDelta(t, math.Log(2), st.MeanLoss, 1e-12)
	}
	assert.Equal(t, []encoder.Mode{encoder.Train, encoder.Train, encoder.Train, encoder.Train}, f.modes)
	assert.Len(t, hook.AllEntries(), 2)
}

func TestFitStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeClassifier{}
	log, _ := test.NewNullLogger()

	_, err := NewClassification(f, 1, log).Fit(ctx, testDataset(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.modes)
}

func TestFitPropagatesForwardError(t *testing.T) {
	boom := errors.New("boom")
	log, _ := test.NewNullLogger()
	_, err := NewClassification(&fakeClassifier{err: boom}, 1, log).Fit(context.Background(), testDataset(t))
	require.ErrorIs(t, err, boom)
}
