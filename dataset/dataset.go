// Package dataset turns E-DAIC-WOZ sessions into windowed, batched samples.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/edaic-vafn/config"
	"github.com/maastricht-university/edaic-vafn/modality"
)

// ErrNoFrames is returned when no window of any session has frames in every
// configured modality.
var ErrNoFrames = errors.New("no usable frames")

// Stream is the slice of one modality inside a window.
type Stream struct {
	Frames         [][]float64
	Invalid        []bool
	FramerateRatio float64
}

// Sample is one window of one session.
type Sample struct {
	Window  Window
	Label   int
	Streams map[string]Stream
}

// Options controls how sessions are cut into samples.
type Options struct {
	// Split keeps only sessions of this split; empty keeps all.
	Split      string
	Overlap    int
	Shuffle    bool
	BatchSize  int
	NumClasses int
	Seed       int64
}

// Dataset holds the samples of one split, ready for batching.
type Dataset struct {
	name    string
	descs   []*modality.Descriptor
	samples []Sample
	opts    Options
}

// Label maps PHQ-8 results to a class: the binary flag for two classes,
// otherwise the severity band of the score (steps of five) clipped to the
// last class.
func Label(s modality.Session, numClasses int) int {
	if numClasses <= 2 {
		return s.PHQBinary
	}
	band := s.PHQScore / 5
	if band >= numClasses {
		band = numClasses - 1
	}
	if band < 0 {
		band = 0
	}
	return band
}

// New loads every session of the split from src and windows it. The reference
// modality is loaded for each session to derive durations and framerate
// ratios, whether or not it is among descs.
func New(ctx context.Context, name string, src Source, descs []*modality.Descriptor, cfg *config.Root, opts Options, log logrus.FieldLogger) (*Dataset, error) {
	if len(descs) == 0 {
		return nil, fmt.Errorf("dataset %s: no modalities", name)
	}
	if w := cfg.Experiment.SecondsPerWindow; w <= 0 || opts.Overlap < 0 || opts.Overlap >= w {
		return nil, fmt.Errorf("dataset %s: overlap %d with %d second windows: %w", name, opts.Overlap, w, config.ErrInvalid)
	}
	sessions, err := src.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	ref, err := modality.New(modality.VideoPoseGazeAus, sessions, descs[0].EnvPath, cfg)
	if err != nil {
		return nil, err
	}

	d := &Dataset{name: name, descs: descs, opts: opts}
	w := float64(cfg.Experiment.SecondsPerWindow)
	for _, s := range sessions {
		if opts.Split != "" && s.Split != opts.Split {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		refRec, err := src.Load(ctx, s.ID, ref)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", name, err)
		}
		recs := make(map[string]*Recording, len(descs))
		ratios := make(map[string]float64, len(descs))
		for _, desc := range descs {
			rec := refRec
			if !desc.IsReference() {
				if rec, err = src.Load(ctx, s.ID, desc); err != nil {
					return nil, fmt.Errorf("dataset %s: %w", name, err)
				}
			}
			ratio, err := modality.FramerateRatio(rec.FPS, refRec.FPS)
			if err != nil {
				return nil, fmt.Errorf("dataset %s: session %s %s: %w", name, s.ID, desc.Name, err)
			}
			recs[desc.Name], ratios[desc.Name] = rec, ratio
		}

		kept := 0
		wins := windows(s.ID, refRec.Duration(), w, float64(opts.Overlap))
		for _, win := range wins {
			sample, ok := d.cut(win, recs, ratios, cfg.Experiment.SecondsPerWindow)
			if !ok {
				continue
			}
			sample.Label = Label(s, opts.NumClasses)
			d.samples = append(d.samples, sample)
			kept++
		}
		log.WithFields(logrus.Fields{"dataset": name, "session": s.ID, "windows": len(wins), "kept": kept}).Debug("session windowed")
	}
	if len(d.samples) == 0 {
		return nil, fmt.Errorf("dataset %s split %q: %w", name, opts.Split, ErrNoFrames)
	}
	return d, nil
}

func (d *Dataset) cut(win Window, recs map[string]*Recording, ratios map[string]float64, seconds int) (Sample, bool) {
	sample := Sample{Window: win, Streams: make(map[string]Stream, len(d.descs))}
	for _, desc := range d.descs {
		rec := recs[desc.Name]
		lo, hi := frameRange(win, rec.FPS, len(rec.Frames), desc.MaxDataLength(seconds))
		if hi <= lo {
			return Sample{}, false
		}
		invalid := make([]bool, hi-lo)
		for _, idx := range rec.NoSignal {
			if idx >= lo && idx < hi {
				invalid[idx-lo] = true
			}
		}
		sample.Streams[desc.Name] = Stream{Frames: rec.Frames[lo:hi], Invalid: invalid, FramerateRatio: ratios[desc.Name]}
	}
	return sample, true
}

func (d *Dataset) Name() string { return d.name }

func (d *Dataset) Len() int { return len(d.samples) }

// Modalities returns the descriptors the samples were cut for.
func (d *Dataset) Modalities() []*modality.Descriptor { return d.descs }

// Samples returns the samples in load order.
func (d *Dataset) Samples() []Sample { return d.samples }

// Batches groups the samples for one epoch. Shuffled datasets permute with a
// seed derived from the epoch so runs are reproducible.
func (d *Dataset) Batches(epoch int) [][]Sample {
	order := make([]int, len(d.samples))
	for i := range order {
		order[i] = i
	}
	if d.opts.Shuffle {
		rng := rand.New(rand.NewSource(d.opts.Seed + int64(epoch)))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	size := d.opts.BatchSize
	if size <= 0 {
		size = len(order)
	}
	var out [][]Sample
	for i := 0; i < len(order); i += size {
		end := i + size
		if end > len(order) {
			end = len(order)
		}
		batch := make([]Sample, 0, end-i)
		for _, j := range order[i:end] {
			batch = append(batch, d.samples[j])
		}
		out = append(out, batch)
	}
	return out
}
