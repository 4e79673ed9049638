package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/maastricht-university/edaic-vafn/tensor"
)

// Softmax converts one row of logits into probabilities.
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	lse := floats.LogSumExp(logits)
	for i, v := range logits {
		out[i] = math.Exp(v - lse)
	}
	return out
}

// CrossEntropy is the mean negative log-likelihood of labels under logits.
func CrossEntropy(logits *tensor.Tensor, labels []int) (float64, error) {
	if logits.Rank() != 2 || logits.Dim(0) != len(labels) {
		return 0, fmt.Errorf("cross entropy of %v against %d labels: %w", logits.Shape(), len(labels), tensor.ErrShapeMismatch)
	}
	classes := logits.Dim(1)
	var total float64
	for i, y := range labels {
		if y < 0 || y >= classes {
			return 0, fmt.Errorf("label %d outside %d classes: %w", y, classes, tensor.ErrShapeMismatch)
		}
		row := logits.Data()[i*classes : (i+1)*classes]
		total += floats.LogSumExp(row) - row[y]
	}
	return total / float64(len(labels)), nil
}

// Argmax returns the index of the largest value.
func Argmax(v []float64) int { return floats.MaxIdx(v) }
