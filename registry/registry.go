// Package registry maps configuration keys onto the closed set of models,
// datasets, modalities, encoders, trainers and evaluators this repository
// ships. The tables are fixed at compile time; an unknown key is a
// configuration error reported before any data is touched.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/maastricht-university/edaic-vafn/config"
	"github.com/maastricht-university/edaic-vafn/modality"
)

// ErrUnknownKey matches every lookup of an unregistered key.
var ErrUnknownKey = errors.New("unknown registry key")

// UnknownKeyError names the table and the key that failed.
type UnknownKeyError struct {
	Table string
	Key   string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("%s: %q is not registered (known: %v)", e.Table, e.Key, Keys(e.Table))
}

func (e *UnknownKeyError) Is(target error) bool { return target == ErrUnknownKey }

type ModelKind int

const (
	ModelBaseline ModelKind = iota
)

type DatasetKind int

const (
	DatasetEDaicWoz DatasetKind = iota
	DatasetEDaicWozEval
)

type EncoderKind int

const (
	EncoderNoOp EncoderKind = iota
)

type TrainerKind int

const (
	TrainerClassification TrainerKind = iota
)

type EvaluatorKind int

const (
	EvaluatorTemporal EvaluatorKind = iota
)

const (
	TableModels           = "models"
	TableDatasets         = "datasets"
	TableModalityEncoders = "modality_encoders"
	TableModalities       = "modalities"
	TableTrainers         = "trainers"
	TableEvaluators       = "evaluators"
)

var models = map[string]ModelKind{
	"baseline": ModelBaseline,
}

var datasets = map[string]DatasetKind{
	"e-daic-woz":      DatasetEDaicWoz,
	"e-daic-woz-eval": DatasetEDaicWozEval,
}

var modalityEncoders = map[string]EncoderKind{
	"edaic_audio_egemaps":       EncoderNoOp,
	"edaic_audio_mfcc":          EncoderNoOp,
	"edaic_video_cnn_resnet":    EncoderNoOp,
	"edaic_video_pose_gaze_aus": EncoderNoOp,
}

var modalities = map[string]modality.Kind{
	"edaic_audio_egemaps":       modality.AudioEgemaps,
	"edaic_audio_mfcc":          modality.AudioMfcc,
	"edaic_video_cnn_resnet":    modality.VideoResnet,
	"edaic_video_pose_gaze_aus": modality.VideoPoseGazeAus,
}

var trainers = map[string]TrainerKind{
	"classification": TrainerClassification,
}

var evaluators = map[string]EvaluatorKind{
	"temporal_evaluator": EvaluatorTemporal,
}

func lookup[K any](table string, m map[string]K, key string) (K, error) {
	k, ok := m[key]
	if !ok {
		var zero K
		return zero, &UnknownKeyError{Table: table, Key: key}
	}
	return k, nil
}

func ParseModel(key string) (ModelKind, error) { return lookup(TableModels, models, key) }

func ParseDataset(key string) (DatasetKind, error) { return lookup(TableDatasets, datasets, key) }

func ParseEncoder(key string) (EncoderKind, error) {
	return lookup(TableModalityEncoders, modalityEncoders, key)
}

func ParseModality(key string) (modality.Kind, error) {
	return lookup(TableModalities, modalities, key)
}

func ParseTrainer(key string) (TrainerKind, error) { return lookup(TableTrainers, trainers, key) }

func ParseEvaluator(key string) (EvaluatorKind, error) {
	return lookup(TableEvaluators, evaluators, key)
}

func sortedKeys[K any](m map[string]K) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Keys lists the registered keys of a table, sorted.
func Keys(table string) []string {
	switch table {
	case TableModels:
		return sortedKeys(models)
	case TableDatasets:
		return sortedKeys(datasets)
	case TableModalityEncoders:
		return sortedKeys(modalityEncoders)
	case TableModalities:
		return sortedKeys(modalities)
	case TableTrainers:
		return sortedKeys(trainers)
	case TableEvaluators:
		return sortedKeys(evaluators)
	}
	return nil
}

// Tables lists every table name.
func Tables() []string {
	return []string{TableModels, TableDatasets, TableModalityEncoders, TableModalities, TableTrainers, TableEvaluators}
}

// ModalitySpec is one configured modality resolved against the tables.
type ModalitySpec struct {
	Modality modality.Kind
	Encoder  EncoderKind
	Args     config.ModalityEncoder
}

// Plan is a configuration with every key resolved. Training runs load
// Dataset, evaluation runs EvalDataset.
type Plan struct {
	Model       ModelKind
	Dataset     DatasetKind
	EvalDataset DatasetKind
	Trainer     TrainerKind
	Evaluator   EvaluatorKind
	Modalities  []ModalitySpec
}

// Resolve parses every key of cfg, failing on the first unknown one.
func Resolve(cfg *config.Root) (*Plan, error) {
	var (
		p   Plan
		err error
	)
	e := cfg.Experiment
	if p.Model, err = ParseModel(e.Model); err != nil {
		return nil, err
	}
	if p.Dataset, err = ParseDataset(e.Dataset); err != nil {
		return nil, err
	}
	if p.EvalDataset, err = ParseDataset(e.EvalDataset); err != nil {
		return nil, err
	}
	if p.Trainer, err = ParseTrainer(e.Trainer); err != nil {
		return nil, err
	}
	if p.Evaluator, err = ParseEvaluator(e.Evaluator); err != nil {
		return nil, err
	}
	for _, m := range cfg.Modalities {
		spec := ModalitySpec{Args: m}
		if spec.Modality, err = ParseModality(m.Name); err != nil {
			return nil, err
		}
		if spec.Encoder, err = ParseEncoder(m.Name); err != nil {
			return nil, err
		}
		p.Modalities = append(p.Modalities, spec)
	}
	return &p, nil
}
