// Package orchestrator wires configuration, registry, data and model into
// training and evaluation runs.
package orchestrator

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/edaic-vafn/clients"
	cfg "github.com/maastricht-university/edaic-vafn/config"
	"github.com/maastricht-university/edaic-vafn/dataset"
	"github.com/maastricht-university/edaic-vafn/encoder"
	"github.com/maastricht-university/edaic-vafn/model"
	"github.com/maastricht-university/edaic-vafn/modality"
	"github.com/maastricht-university/edaic-vafn/registry"
)

type Pipeline struct {
	cfg  *cfg.Root
	plan *registry.Plan
	src  dataset.Source
	http *clients.HTTP
	log  logrus.FieldLogger

	// model survives between runs so an evaluation after training sees the
	// trained normalization statistics.
	model *model.VAFN
	descs []*modality.Descriptor
}

// NewPipeline validates c and resolves every registry key before returning.
func NewPipeline(c *cfg.Root, src dataset.Source, log logrus.FieldLogger) (*Pipeline, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	plan, err := registry.Resolve(c)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: c, plan: plan, src: src, http: clients.NewHTTP(), log: log}, nil
}

// WithHTTP replaces the client used for the visualization service.
func (p *Pipeline) WithHTTP(h *clients.HTTP) *Pipeline {
	p.http = h
	return p
}

// Model returns the model of the last run, nil before the first one.
func (p *Pipeline) Model() *model.VAFN { return p.model }

func (p *Pipeline) build(ctx context.Context) error {
	if p.model != nil {
		return nil
	}
	sessions, err := p.src.Sessions(ctx)
	if err != nil {
		return err
	}
	var (
		descs    []*modality.Descriptor
		encoders []encoder.Encoder
	)
	for i, spec := range p.plan.Modalities {
		d, err := registry.NewModality(spec.Modality, sessions, p.cfg.Paths.Data, p.cfg)
		if err != nil {
			return err
		}
		e, err := registry.NewEncoder(spec.Encoder, d, spec.Args, p.cfg, int64(i))
		if err != nil {
			return err
		}
		descs = append(descs, d)
		encoders = append(encoders, e)
		p.log.WithFields(logrus.Fields{
			"modality":        d.Name,
			"dir":             d.Dir,
			"clock":           d.Clock.String(),
			"max_data_length": d.MaxDataLength(p.cfg.Experiment.SecondsPerWindow),
		}).Debug("modality ready")
	}
	m, err := registry.NewModel(p.plan.Model, encoders, p.cfg)
	if err != nil {
		return err
	}
	p.model, p.descs = m, descs
	return nil
}

func (p *Pipeline) summary(mode Mode, ds *dataset.Dataset, split string) *RunSummary {
	sum := &RunSummary{
		Mode:        mode,
		Dataset:     ds.Name(),
		Split:       split,
		Samples:     ds.Len(),
		GeneratedAt: time.Now(),
	}
	for _, d := range p.descs {
		sum.Modalities = append(sum.Modalities, d.Name)
	}
	return sum
}

// Train runs the configured trainer over split and persists its report.
func (p *Pipeline) Train(ctx context.Context, split string) (*RunSummary, error) {
	if err := p.build(ctx); err != nil {
		return nil, err
	}
	ds, err := registry.NewDataset(ctx, p.plan.Dataset, p.src, p.descs, p.cfg, split, p.log)
	if err != nil {
		return nil, err
	}
	tr, err := registry.NewTrainer(p.plan.Trainer, p.model, p.cfg, p.log)
	if err != nil {
		return nil, err
	}
	rep, err := tr.Fit(ctx, ds)
	if err != nil {
		return nil, err
	}
	sum := p.summary(ModeTrain, ds, split)
	sum.Report = rep
	if err := persist(p.cfg.Paths.Outputs, sum); err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{"run": sum.RunID, "dir": sum.Dir, "samples": sum.Samples}).Info("training run saved")
	return sum, nil
}

// Evaluate runs the configured evaluator over split, persists the window and
// session predictions and, when a visualization service is configured,
// requests a timeline per session and a radar of its class probabilities.
func (p *Pipeline) Evaluate(ctx context.Context, split string) (*RunSummary, error) {
	if err := p.build(ctx); err != nil {
		return nil, err
	}
	ds, err := registry.NewDataset(ctx, p.plan.EvalDataset, p.src, p.descs, p.cfg, split, p.log)
	if err != nil {
		return nil, err
	}
	ev, err := registry.NewEvaluator(p.plan.Evaluator, p.model, p.log)
	if err != nil {
		return nil, err
	}
	res, err := ev.Evaluate(ctx, ds)
	if err != nil {
		return nil, err
	}
	sum := p.summary(ModeEvaluate, ds, split)
	sum.Result = res
	if err := persist(p.cfg.Paths.Outputs, sum); err != nil {
		return nil, err
	}

	if url := p.cfg.Services.Visualization.URL; url != "" {
		p.visualize(ctx, url, sum)
		if err := writeJSON(filepath.Join(sum.Dir, "run.json"), sum); err != nil {
			return nil, err
		}
	}
	p.log.WithFields(logrus.Fields{"run": sum.RunID, "dir": sum.Dir, "sessions": len(res.Sessions)}).Info("evaluation run saved")
	return sum, nil
}

// visualize never fails the run; the predictions are already on disk.
func (p *Pipeline) visualize(ctx context.Context, url string, sum *RunSummary) {
	for _, req := range timelines(sum.Result, sum.Dir) {
		resp, err := p.http.GenerateTimeline(ctx, url, req)
		if err != nil {
			p.log.WithError(err).WithField("session", req.Session).Warn("timeline not generated")
			continue
		}
		sum.Visualization = append(sum.Visualization, resp.Path)
	}
	for _, s := range sum.Result.Sessions {
		resp, err := p.http.GenerateRadar(ctx, url, radar(s, sum.Dir))
		if err != nil {
			p.log.WithError(err).WithField("session", s.Session).Warn("radar not generated")
			continue
		}
		sum.Visualization = append(sum.Visualization, resp.Path)
	}
}
