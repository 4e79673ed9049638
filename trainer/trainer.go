// Package trainer runs training-mode passes of a classifier over a dataset.
package trainer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/edaic-vafn/dataset"
	"github.com/maastricht-university/edaic-vafn/encoder"
	"github.com/maastricht-university/edaic-vafn/model"
	"github.com/maastricht-university/edaic-vafn/tensor"
)

// Classifier is the part of a model a trainer drives.
type Classifier interface {
	Forward(mode encoder.Mode, b *dataset.Batch) (*tensor.Tensor, error)
}

type EpochStats struct {
	Epoch    int     `json:"epoch"`
	Batches  int     `json:"batches"`
	Samples  int     `json:"samples"`
	MeanLoss float64 `json:"mean_loss"`
}

type Report struct {
	Epochs []EpochStats `json:"epochs"`
}

// Classification runs forward passes in training mode, which refreshes every
// encoder's normalization statistics, and tracks the cross-entropy of each
// epoch. Parameter updates belong to the optimizer that consumes the losses.
type Classification struct {
	model  Classifier
	epochs int
	log    logrus.FieldLogger
}

func NewClassification(m Classifier, epochs int, log logrus.FieldLogger) *Classification {
	return &Classification{model: m, epochs: epochs, log: log}
}

// Fit stops between batches when ctx is done.
func (c *Classification) Fit(ctx context.Context, ds *dataset.Dataset) (*Report, error) {
	rep := &Report{}
	for epoch := 0; epoch < c.epochs; epoch++ {
		st := EpochStats{Epoch: epoch}
		var total float64
		for _, samples := range ds.Batches(epoch) {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			b, err := dataset.Collate(samples, ds.Modalities())
			if err != nil {
				return rep, fmt.Errorf("epoch %d batch %d: %w", epoch, st.Batches, err)
			}
			logits, err := c.model.Forward(encoder.Train, b)
			if err != nil {
				return rep, fmt.Errorf("epoch %d batch %d: %w", epoch, st.Batches, err)
			}
			loss, err := model.CrossEntropy(logits, b.Labels)
			if err != nil {
				return rep, fmt.Errorf("epoch %d batch %d: %w", epoch, st.Batches, err)
			}
			total += loss * float64(b.Size())
			st.Batches++
			st.Samples += b.Size()
		}
		if st.Samples > 0 {
			st.MeanLoss = total / float64(st.Samples)
		}
		rep.Epochs = append(rep.Epochs, st)
		c.log.WithFields(logrus.Fields{
			"dataset": ds.Name(),
			"epoch":   epoch,
			"batches": st.Batches,
			"loss":    st.MeanLoss,
		}).Info("epoch done")
	}
	return rep, nil
}
