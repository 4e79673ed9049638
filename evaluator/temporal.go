// Package evaluator turns per-window predictions into per-session decisions.
package evaluator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/maastricht-university/edaic-vafn/dataset"
	"github.com/maastricht-university/edaic-vafn/encoder"
	"github.com/maastricht-university/edaic-vafn/model"
	"github.com/maastricht-university/edaic-vafn/tensor"
)

// Classifier is the part of a model the evaluator drives.
type Classifier interface {
	Forward(mode encoder.Mode, b *dataset.Batch) (*tensor.Tensor, error)
}

type WindowPrediction struct {
	Window    dataset.Window `json:"window"`
	Label     int            `json:"label"`
	Probs     []float64      `json:"probs"`
	Predicted int            `json:"predicted"`
}

type SessionPrediction struct {
	Session   string    `json:"session"`
	Label     int       `json:"label"`
	Windows   int       `json:"windows"`
	Probs     []float64 `json:"probs"`
	Predicted int       `json:"predicted"`
}

type Result struct {
	Windows  []WindowPrediction  `json:"windows"`
	Sessions []SessionPrediction `json:"sessions"`
}

// Temporal evaluates every window in inference mode and averages the window
// probabilities of a session into its prediction.
type Temporal struct {
	model Classifier
	log   logrus.FieldLogger
}

func NewTemporal(m Classifier, log logrus.FieldLogger) *Temporal {
	return &Temporal{model: m, log: log}
}

func (e *Temporal) Evaluate(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	res := &Result{}
	for i, samples := range ds.Batches(0) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := dataset.Collate(samples, ds.Modalities())
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		logits, err := e.model.Forward(encoder.Eval, b)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		classes := logits.Dim(1)
		for s := 0; s < b.Size(); s++ {
			p := model.Softmax(logits.Data()[s*classes : (s+1)*classes])
			res.Windows = append(res.Windows, WindowPrediction{
				Window:    b.Windows[s],
				Label:     b.Labels[s],
				Probs:     p,
				Predicted: model.Argmax(p),
			})
		}
	}
	res.Sessions = aggregate(res.Windows)
	e.log.WithFields(logrus.Fields{
		"dataset":  ds.Name(),
		"windows":  len(res.Windows),
		"sessions": len(res.Sessions),
	}).Info("evaluation done")
	return res, nil
}

// aggregate keeps sessions in order of first appearance.
func aggregate(windows []WindowPrediction) []SessionPrediction {
	index := map[string]int{}
	var out []SessionPrediction
	for _, w := range windows {
		i, ok := index[w.Window.Session]
		if !ok {
			i = len(out)
			index[w.Window.Session] = i
			out = append(out, SessionPrediction{Session: w.Window.Session, Label: w.Label, Probs: make([]float64, len(w.Probs))})
		}
		floats.Add(out[i].Probs, w.Probs)
		out[i].Windows++
	}
	for i := range out {
		floats.Scale(1/float64(out[i].Windows), out[i].Probs)
		out[i].Predicted = model.Argmax(out[i].Probs)
	}
	return out
}
