package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maastricht-university/edaic-vafn/modality"
)

// Recording is one modality of one session.
type Recording struct {
	FPS    float64     `json:"fps"`
	Frames [][]float64 `json:"frames"`
	// NoSignal lists the frame indices without voice or face.
	NoSignal []int `json:"-"`
}

// Duration in seconds.
func (r *Recording) Duration() float64 {
	if r.FPS <= 0 {
		return 0
	}
	return float64(len(r.Frames)) / r.FPS
}

// Source provides corpus metadata and per-modality recordings.
type Source interface {
	Sessions(ctx context.Context) ([]modality.Session, error)
	Load(ctx context.Context, session string, d *modality.Descriptor) (*Recording, error)
}

// FileSource reads the JSON export of the corpus:
//
//	<root>/sessions.json
//	<root>/<session>/<modality dir>/features.json
//	<root>/<session>/<modality dir>/<mask file stem>.json
type FileSource struct {
	Root string
}

func NewFileSource(root string) *FileSource { return &FileSource{Root: root} }

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (s *FileSource) Sessions(ctx context.Context) ([]modality.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []modality.Session
	if err := readJSON(filepath.Join(s.Root, "sessions.json"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MaskPath is where the invalid frame indices of d are stored for a session.
func (s *FileSource) MaskPath(session string, d *modality.Descriptor) string {
	stem := strings.TrimSuffix(d.MaskFile, filepath.Ext(d.MaskFile))
	return filepath.Join(s.Root, session, d.Dir, stem+".json")
}

func (s *FileSource) Load(ctx context.Context, session string, d *modality.Descriptor) (*Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec Recording
	if err := readJSON(filepath.Join(s.Root, session, d.Dir, "features.json"), &rec); err != nil {
		return nil, fmt.Errorf("session %s %s: %w", session, d.Name, err)
	}
	if err := readJSON(s.MaskPath(session, d), &rec.NoSignal); err != nil {
		return nil, fmt.Errorf("session %s %s mask: %w", session, d.Name, err)
	}
	return &rec, nil
}

// MemorySource keeps recordings keyed by session and modality directory.
type MemorySource struct {
	Meta       []modality.Session
	Recordings map[string]map[string]*Recording
}

func NewMemorySource(meta []modality.Session) *MemorySource {
	return &MemorySource{Meta: meta, Recordings: map[string]map[string]*Recording{}}
}

// Put stores rec for session under modality directory dir.
func (m *MemorySource) Put(session, dir string, rec *Recording) {
	if m.Recordings[session] == nil {
		m.Recordings[session] = map[string]*Recording{}
	}
	m.Recordings[session][dir] = rec
}

func (m *MemorySource) Sessions(ctx context.Context) ([]modality.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Meta, nil
}

func (m *MemorySource) Load(ctx context.Context, session string, d *modality.Descriptor) (*Recording, error) {
	rec, ok := m.Recordings[session][d.Dir]
	if !ok {
		return nil, fmt.Errorf("session %s %s: %w", session, d.Name, os.ErrNotExist)
	}
	return rec, nil
}
