// Package modality describes the E-DAIC-WOZ input streams and where their
// features live on disk.
package modality

import (
	"fmt"
	"math"

	"github.com/maastricht-university/edaic-vafn/config"
)

// ClockPolicy decides how positional time advances for a stream.
type ClockPolicy int

const (
	// ClockFixed advances one position per frame regardless of frame rate.
	ClockFixed ClockPolicy = iota
	// ClockScaledByFramerate divides positions by the stream's framerate ratio.
	ClockScaledByFramerate
)

func (c ClockPolicy) String() string {
	switch c {
	case ClockFixed:
		return "fixed"
	case ClockScaledByFramerate:
		return "scaled"
	}
	return fmt.Sprintf("ClockPolicy(%d)", int(c))
}

// ReferenceDir is the modality every other stream is aligned against.
const ReferenceDir = "video_pose_gaze_aus"

// Kind enumerates the known modalities.
type Kind int

const (
	AudioEgemaps Kind = iota
	AudioMfcc
	VideoResnet
	VideoPoseGazeAus
)

// Session is one interview row of the corpus metadata.
type Session struct {
	ID        string `json:"id"`
	Split     string `json:"split"`
	PHQBinary int    `json:"phq_binary"`
	PHQScore  int    `json:"phq_score"`
}

// Descriptor binds a modality to its storage layout. It is never mutated
// after New returns.
type Descriptor struct {
	Kind        Kind
	Name        string
	Dir         string
	MaskFile    string
	RefModality string
	Clock       ClockPolicy
	// MaxFPS is the ceiling used to size positional encodings.
	MaxFPS int

	Sessions []Session
	EnvPath  string
}

type layout struct {
	name, dir, mask string
	clock           ClockPolicy
}

var layouts = map[Kind]layout{
	AudioEgemaps:     {"edaic_audio_egemaps", "audio_egemaps", "no_voice_idxs.npz", ClockFixed},
	AudioMfcc:        {"edaic_audio_mfcc", "audio_mfcc", "no_voice_idxs.npz", ClockFixed},
	VideoResnet:      {"edaic_video_cnn_resnet", "video_cnn_resnet", "no_face_idxs.npz", ClockScaledByFramerate},
	VideoPoseGazeAus: {"edaic_video_pose_gaze_aus", "video_pose_gaze_aus", "no_face_idxs.npz", ClockScaledByFramerate},
}

// New builds the descriptor of kind k for the given sessions under envPath.
// Missing directories are reported by the feature source, not here.
func New(k Kind, sessions []Session, envPath string, cfg *config.Root) (*Descriptor, error) {
	l, ok := layouts[k]
	if !ok {
		return nil, fmt.Errorf("modality kind %d has no layout", int(k))
	}
	d := &Descriptor{
		Kind:        k,
		Name:        l.name,
		Dir:         l.dir,
		MaskFile:    l.mask,
		RefModality: ReferenceDir,
		Clock:       l.clock,
		Sessions:    append([]Session(nil), sessions...),
		EnvPath:     envPath,
	}
	switch {
	case cfg.Experiment.OriginalScale():
		d.MaxFPS = 1
	case l.clock == ClockFixed:
		d.MaxFPS = cfg.Constants.MaxAudioFPS
	default:
		d.MaxFPS = cfg.Constants.MaxVideoFPS
	}
	return d, nil
}

// MaxDataLength is the number of frames a window of the configured length can hold.
func (d *Descriptor) MaxDataLength(secondsPerWindow int) int {
	return d.MaxFPS * secondsPerWindow
}

// IsReference reports whether d is the alignment reference.
func (d *Descriptor) IsReference() bool { return d.Dir == d.RefModality }

// FramerateRatio returns native ÷ reference, the per-sample downscale factor
// of scaled-clock encoders.
func FramerateRatio(native, reference float64) (float64, error) {
	if native <= 0 || reference <= 0 || math.IsNaN(native) || math.IsNaN(reference) ||
		math.IsInf(native, 0) || math.IsInf(reference, 0) {
		return 0, fmt.Errorf("framerate ratio of %v over %v: rates must be positive and finite", native, reference)
	}
	return native / reference, nil
}
