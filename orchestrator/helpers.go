package orchestrator

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/maastricht-university/edaic-vafn/clients"
	"github.com/maastricht-university/edaic-vafn/evaluator"
)

var severityBands = []string{"minimal", "mild", "moderate", "moderately_severe", "severe"}

// classNames labels the classifier outputs for the visualization service.
func classNames(n int) []string {
	if n == 2 {
		return []string{"not_depressed", "depressed"}
	}
	out := make([]string, n)
	for i := range out {
		if i < len(severityBands) {
			out[i] = severityBands[i]
		} else {
			out[i] = fmt.Sprintf("class_%d", i)
		}
	}
	return out
}

// timelines groups window predictions per session, in window order.
func timelines(res *evaluator.Result, outDir string) []clients.TimelineReq {
	index := map[string]int{}
	var out []clients.TimelineReq
	for _, w := range res.Windows {
		i, ok := index[w.Window.Session]
		if !ok {
			i = len(out)
			index[w.Window.Session] = i
			out = append(out, clients.TimelineReq{Session: w.Window.Session, OutputDir: outDir})
		}
		out[i].Timestamps = append(out[i].Timestamps, w.Window.T0)
		out[i].Predictions = append(out[i].Predictions, w.Predicted)
		out[i].Confidence = append(out[i].Confidence, floats.Max(w.Probs))
	}
	return out
}

func radar(s evaluator.SessionPrediction, outDir string) clients.RadarReq {
	return clients.RadarReq{
		Categories: classNames(len(s.Probs)),
		Values:     s.Probs,
		Session:    s.Session,
		OutputDir:  outDir,
	}
}
