// Package evaluation scores binary predictions: accuracy, a confusion
// matrix and a per-class precision/recall/F1 report.
package evaluation

import (
	"fmt"
	"strings"
)

// DefaultThreshold is the decision threshold for the positive class.
const DefaultThreshold = 0.5

// ClassLabels names the negative and positive class in reports.
var ClassLabels = [2]string{"loss", "win"}

// ClassMetrics are precision, recall and F1 for one class.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is the evaluation of predictions against ground truth.
type Report struct {
	Accuracy float64 `json:"accuracy"`
	// Confusion[t][p] counts rows with true class t predicted as p.
	Confusion   [2][2]int       `json:"confusion_matrix"`
	Classes     [2]ClassMetrics `json:"classes"`
	MacroAvg    ClassMetrics    `json:"macro_avg"`
	WeightedAvg ClassMetrics    `json:"weighted_avg"`
	Total       int             `json:"total"`
}

// Threshold converts probabilities into 0/1 predictions (p > threshold is 1).
func Threshold(p []float64, threshold float64) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		if v > threshold {
			out[i] = 1
		}
	}
	return out
}

// Evaluate builds a report from true and predicted 0/1 labels.
func Evaluate(yTrue, yPred []float64) (*Report, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("evaluate: %d labels, %d predictions", len(yTrue), len(yPred))
	}
	r := &Report{Total: len(yTrue)}
	for i := range yTrue {
		t, p := class(yTrue[i]), class(yPred[i])
		r.Confusion[t][p]++
	}
	if r.Total > 0 {
		r.Accuracy = float64(r.Confusion[0][0]+r.Confusion[1][1]) / float64(r.Total)
	}

	for c := 0; c < 2; c++ {
		tp := r.Confusion[c][c]
		predicted := r.Confusion[0][c] + r.Confusion[1][c]
		actual := r.Confusion[c][0] + r.Confusion[c][1]
		m := ClassMetrics{Label: ClassLabels[c], Support: actual}
		m.Precision = ratio(tp, predicted)
		m.Recall = ratio(tp, actual)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes[c] = m
	}

	r.MacroAvg = ClassMetrics{Label: "macro avg", Support: r.Total}
	r.WeightedAvg = ClassMetrics{Label: "weighted avg", Support: r.Total}
	for _, m := range r.Classes {
		r.MacroAvg.Precision += m.Precision / 2
		r.MacroAvg.Recall += m.Recall / 2
		r.MacroAvg.F1 += m.F1 / 2
		if r.Total > 0 {
			w := float64(m.Support) / float64(r.Total)
			r.WeightedAvg.Precision += m.Precision * w
			r.WeightedAvg.Recall += m.Recall * w
			r.WeightedAvg.F1 += m.F1 * w
		}
	}
	return r, nil
}

// EvaluateProba thresholds probabilities and evaluates them.
func EvaluateProba(yTrue, p []float64, threshold float64) (*Report, error) {
	return Evaluate(yTrue, Threshold(p, threshold))
}

func class(v float64) int {
	if v > 0.5 {
		return 1
	}
	return 0
}

// ratio reports an undefined ratio as 0.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// String renders the report as a fixed-width table.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%14s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	for _, m := range r.Classes {
		fmt.Fprintf(&b, "%14s %10.2f %10.2f %10.2f %10d\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	fmt.Fprintf(&b, "\n%14s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Total)
	for _, m := range []ClassMetrics{r.MacroAvg, r.WeightedAvg} {
		fmt.Fprintf(&b, "%14s %10.2f %10.2f %10.2f %10d\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	fmt.Fprintf(&b, "\nconfusion matrix (rows true, cols predicted)\n")
	fmt.Fprintf(&b, "%6s %6d %6d\n", ClassLabels[0], r.Confusion[0][0], r.Confusion[0][1])
	fmt.Fprintf(&b, "%6s %6d %6d\n", ClassLabels[1], r.Confusion[1][0], r.Confusion[1][1])
	return b.String()
}
