package orchestrator

import (
	"time"

	"github.com/maastricht-university/edaic-vafn/evaluator"
	"github.com/maastricht-university/edaic-vafn/trainer"
)

type Mode string

const (
	ModeTrain    Mode = "train"
	ModeEvaluate Mode = "evaluate"
)

// RunSummary describes one finished run and where its files went.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Mode        Mode      `json:"mode"`
	Dataset     string    `json:"dataset"`
	Split       string    `json:"split,omitempty"`
	Modalities  []string  `json:"modalities"`
	Samples     int       `json:"samples"`
	GeneratedAt time.Time `json:"generated_at"`
	Dir         string    `json:"dir"`
	// Visualization holds the paths reported by the visualization service.
	Visualization []string `json:"visualization,omitempty"`

	Report *trainer.Report   `json:"report,omitempty"`
	Result *evaluator.Result `json:"-"`
}
