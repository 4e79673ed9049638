package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration that cannot start a run.
var ErrInvalid = errors.New("invalid configuration")

const (
	FrameScaleNative   = "native"
	FrameScaleOriginal = "original"
)

type Service struct {
	URL string `yaml:"url"`
}
type Services struct {
	Visualization Service `yaml:"visualization"`
}

// Experiment selects the registered components and the windowing of a run.
type Experiment struct {
	Dataset          string `yaml:"dataset"`
	EvalDataset      string `yaml:"eval_dataset"`
	Model            string `yaml:"model"`
	Trainer          string `yaml:"trainer"`
	Evaluator        string `yaml:"evaluator"`
	SecondsPerWindow int    `yaml:"seconds_per_window"`
	WindowOverlap    int    `yaml:"window_overlap"`
	FrameScale       string `yaml:"frame_scale"`
	BatchSize        int    `yaml:"batch_size"`
	Epochs           int    `yaml:"epochs"`
	NumClasses       int    `yaml:"num_classes"`
	Seed             int64  `yaml:"seed"`
}

// Constants are the corpus-wide frame rate ceilings.
type Constants struct {
	MaxAudioFPS int `yaml:"max_audio_fps"`
	MaxVideoFPS int `yaml:"max_video_fps"`
}

type ModelArgs struct {
	LatentDim int `yaml:"latent_dim"`
}

// ModalityEncoder configures the encoder of one input stream. Name is both the
// modality key and the encoder key.
type ModalityEncoder struct {
	Name      string    `yaml:"name"`
	InputDim  int       `yaml:"input_dim"`
	ModelArgs ModelArgs `yaml:"model_args"`
}

type Root struct {
	Pipeline struct {
		Name      string `yaml:"name"`
		Version   string `yaml:"version"`
		LogLvl    string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"pipeline"`
	Experiment Experiment        `yaml:"experiment"`
	Constants  Constants         `yaml:"constants"`
	Modalities []ModalityEncoder `yaml:"modalities"`
	Services   Services          `yaml:"services"`
	Paths      struct {
		Data    string `yaml:"data"`
		Outputs string `yaml:"outputs"`
	} `yaml:"paths"`
}

// Load decodes the YAML file at path. An empty path searches the usual
// locations for the CONFIG_ENV environment (dev by default).
func Load(path string) (*Root, error) {
	guess := []string{path}
	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		guess = []string{
			filepath.Join("config", env, "config.yaml"),
			filepath.Join("config", "config.yaml"),
			"config.yaml",
		}
	}
	var err error
	for _, p := range guess {
		var f *os.File
		f, err = os.Open(p)
		if err != nil {
			continue
		}
		var cfg Root
		err = yaml.NewDecoder(f).Decode(&cfg)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", p, err)
		}
		cfg.ApplyDefaults()
		return &cfg, nil
	}
	return nil, fmt.Errorf("load config: %w", err)
}

// ApplyDefaults fills the zero values a run cannot do without.
func (c *Root) ApplyDefaults() {
	if c.Pipeline.LogLvl == "" {
		c.Pipeline.LogLvl = "info"
	}
	e := &c.Experiment
	if e.Dataset == "" {
		e.Dataset = "e-daic-woz"
	}
	if e.EvalDataset == "" {
		e.EvalDataset = "e-daic-woz-eval"
	}
	if e.Model == "" {
		e.Model = "baseline"
	}
	if e.Trainer == "" {
		e.Trainer = "classification"
	}
	if e.Evaluator == "" {
		e.Evaluator = "temporal_evaluator"
	}
	if e.FrameScale == "" {
		e.FrameScale = FrameScaleNative
	}
	if e.BatchSize == 0 {
		e.BatchSize = 8
	}
	if e.Epochs == 0 {
		e.Epochs = 1
	}
	if e.NumClasses == 0 {
		e.NumClasses = 2
	}
	if c.Constants.MaxAudioFPS == 0 {
		c.Constants.MaxAudioFPS = 100
	}
	if c.Constants.MaxVideoFPS == 0 {
		c.Constants.MaxVideoFPS = 30
	}
	if c.Paths.Outputs == "" {
		c.Paths.Outputs = "outputs"
	}
}

// Override applies flag and environment values bound on v on top of the file.
func (c *Root) Override(v *viper.Viper) {
	if s := v.GetString("log_level"); s != "" {
		c.Pipeline.LogLvl = s
	}
	if s := v.GetString("data"); s != "" {
		c.Paths.Data = s
	}
	if s := v.GetString("outputs"); s != "" {
		c.Paths.Outputs = s
	}
	if s := v.GetString("dataset"); s != "" {
		c.Experiment.Dataset = s
	}
	if s := v.GetString("eval_dataset"); s != "" {
		c.Experiment.EvalDataset = s
	}
}

// Validate rejects configurations that would only fail mid-run.
func (c *Root) Validate() error {
	e := c.Experiment
	if e.SecondsPerWindow <= 0 {
		return fmt.Errorf("experiment.seconds_per_window must be positive: %w", ErrInvalid)
	}
	if e.WindowOverlap < 0 || e.WindowOverlap >= e.SecondsPerWindow {
		return fmt.Errorf("experiment.window_overlap must be in [0, seconds_per_window): %w", ErrInvalid)
	}
	if e.FrameScale != FrameScaleNative && e.FrameScale != FrameScaleOriginal {
		return fmt.Errorf("experiment.frame_scale %q must be %q or %q: %w", e.FrameScale, FrameScaleNative, FrameScaleOriginal, ErrInvalid)
	}
	if e.BatchSize <= 0 || e.Epochs <= 0 || e.NumClasses < 2 {
		return fmt.Errorf("experiment batch_size, epochs must be positive and num_classes at least 2: %w", ErrInvalid)
	}
	if c.Constants.MaxAudioFPS <= 0 || c.Constants.MaxVideoFPS <= 0 {
		return fmt.Errorf("constants max_audio_fps and max_video_fps must be positive: %w", ErrInvalid)
	}
	if len(c.Modalities) == 0 {
		return fmt.Errorf("no modalities configured: %w", ErrInvalid)
	}
	latent := c.Modalities[0].ModelArgs.LatentDim
	seen := map[string]bool{}
	for _, m := range c.Modalities {
		if seen[m.Name] {
			return fmt.Errorf("modality %q configured twice: %w", m.Name, ErrInvalid)
		}
		seen[m.Name] = true
		if m.InputDim <= 0 {
			return fmt.Errorf("modality %q: input_dim must be positive: %w", m.Name, ErrInvalid)
		}
		if m.ModelArgs.LatentDim <= 0 || m.ModelArgs.LatentDim%2 != 0 {
			return fmt.Errorf("modality %q: latent_dim %d must be positive and even: %w", m.Name, m.ModelArgs.LatentDim, ErrInvalid)
		}
		if m.ModelArgs.LatentDim != latent {
			return fmt.Errorf("modality %q: latent_dim %d differs from %d: %w", m.Name, m.ModelArgs.LatentDim, latent, ErrInvalid)
		}
	}
	return nil
}

// OriginalScale reports whether windows are expressed at one frame per second.
func (e Experiment) OriginalScale() bool { return e.FrameScale == FrameScaleOriginal }
