package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

func mkRunDir(outputsRoot string, mode Mode) (string, string, error) {
	ts := time.Now().Format("20060102-150405")
	rid := uuid.NewString()
	dir := filepath.Join(outputsRoot, string(mode)+"_"+ts+"_"+rid[:8])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return rid, dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// persist writes run.json and, for evaluations, windows.json and sessions.json
// into a fresh directory under outputsRoot.
func persist(outputsRoot string, sum *RunSummary) error {
	rid, dir, err := mkRunDir(outputsRoot, sum.Mode)
	if err != nil {
		return err
	}
	sum.RunID, sum.Dir = rid, dir

	if sum.Result != nil {
		if err = writeJSON(filepath.Join(dir, "windows.json"), sum.Result.Windows); err != nil {
			return err
		}
		if err = writeJSON(filepath.Join(dir, "sessions.json"), sum.Result.Sessions); err != nil {
			return err
		}
	}
	return writeJSON(filepath.Join(dir, "run.json"), sum)
}
