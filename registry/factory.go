package registry

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/edaic-vafn/config"
	"github.com/maastricht-university/edaic-vafn/dataset"
	"github.com/maastricht-university/edaic-vafn/encoder"
	"github.com/maastricht-university/edaic-vafn/evaluator"
	"github.com/maastricht-university/edaic-vafn/model"
	"github.com/maastricht-university/edaic-vafn/modality"
	"github.com/maastricht-university/edaic-vafn/trainer"
)

// Trainer is what every registered trainer provides.
type Trainer interface {
	Fit(ctx context.Context, ds *dataset.Dataset) (*trainer.Report, error)
}

// Evaluator is what every registered evaluator provides.
type Evaluator interface {
	Evaluate(ctx context.Context, ds *dataset.Dataset) (*evaluator.Result, error)
}

func NewModality(k modality.Kind, sessions []modality.Session, envPath string, cfg *config.Root) (*modality.Descriptor, error) {
	return modality.New(k, sessions, envPath, cfg)
}

// NewEncoder builds the encoder of one modality. seed offsets the run seed so
// each modality gets its own projection.
func NewEncoder(k EncoderKind, desc *modality.Descriptor, args config.ModalityEncoder, cfg *config.Root, seed int64) (encoder.Encoder, error) {
	switch k {
	case EncoderNoOp:
		return encoder.NewNoOp(encoder.Args{
			Name:          args.Name,
			InputDim:      args.InputDim,
			LatentDim:     args.ModelArgs.LatentDim,
			Clock:         desc.Clock,
			MaxDataLength: desc.MaxDataLength(cfg.Experiment.SecondsPerWindow),
			Seed:          cfg.Experiment.Seed + seed,
		})
	}
	return nil, fmt.Errorf("encoder kind %d has no constructor", int(k))
}

func NewModel(k ModelKind, encoders []encoder.Encoder, cfg *config.Root) (*model.VAFN, error) {
	switch k {
	case ModelBaseline:
		return model.NewVAFN(encoders, cfg.Experiment.NumClasses, cfg.Experiment.Seed)
	}
	return nil, fmt.Errorf("model kind %d has no constructor", int(k))
}

// NewDataset loads the split. Training windows are disjoint and shuffled per
// epoch; evaluation windows overlap by the configured amount and keep their
// order.
func NewDataset(ctx context.Context, k DatasetKind, src dataset.Source, descs []*modality.Descriptor, cfg *config.Root, split string, log logrus.FieldLogger) (*dataset.Dataset, error) {
	opts := dataset.Options{
		Split:      split,
		BatchSize:  cfg.Experiment.BatchSize,
		NumClasses: cfg.Experiment.NumClasses,
		Seed:       cfg.Experiment.Seed,
	}
	switch k {
	case DatasetEDaicWoz:
		opts.Shuffle = true
		return dataset.New(ctx, "e-daic-woz", src, descs, cfg, opts, log)
	case DatasetEDaicWozEval:
		opts.Overlap = cfg.Experiment.WindowOverlap
		return dataset.New(ctx, "e-daic-woz-eval", src, descs, cfg, opts, log)
	}
	return nil, fmt.Errorf("dataset kind %d has no constructor", int(k))
}

func NewTrainer(k TrainerKind, m trainer.Classifier, cfg *config.Root, log logrus.FieldLogger) (Trainer, error) {
	switch k {
	case TrainerClassification:
		return trainer.NewClassification(m, cfg.Experiment.Epochs, log), nil
	}
	return nil, fmt.Errorf("trainer kind %d has no constructor", int(k))
}

func NewEvaluator(k EvaluatorKind, m evaluator.Classifier, log logrus.FieldLogger) (Evaluator, error) {
	switch k {
	case EvaluatorTemporal:
		return evaluator.NewTemporal(m, log), nil
	}
	return nil, fmt.Errorf("evaluator kind %d has no constructor", int(k))
}
