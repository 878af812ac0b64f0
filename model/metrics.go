package model

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Metrics scores a set of predictions against the true labels.
type Metrics struct {
	N                     int
	TP, FP, TN, FN        int
	Accuracy              float64
	Precision, Recall, F1 float64
	// AUC is NaN when the labels hold a single class.
	AUC float64
}

func (m Metrics) String() string {
	return fmt.Sprintf("n=%d acc=%.4f prec=%.4f rec=%.4f f1=%.4f auc=%.4f [tp=%d fp=%d tn=%d fn=%d]",
		m.N, m.Accuracy, m.Precision, m.Recall, m.F1, m.AUC, m.TP, m.FP, m.TN, m.FN)
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Evaluate thresholds proba and compares it with y.
func Evaluate(y, proba []float64, threshold float64) Metrics {
	m := Metrics{N: len(y)}
	for i, p := range proba {
		pred := p >= threshold
		actual := y[i] == 1
		switch {
		case pred && actual:
			m.TP++
		case pred && !actual:
			m.FP++
		case !pred && actual:
			m.FN++
		default:
			m.TN++
		}
	}
	m.Accuracy = ratio(m.TP+m.TN, m.N)
	m.Precision = ratio(m.TP, m.TP+m.FP)
	m.Recall = ratio(m.TP, m.TP+m.FN)
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	m.AUC = AUC(y, proba)
	return m
}

// AUC is the area under the ROC curve of the scores.
func AUC(y, scores []float64) float64 {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })
	sorted := make([]float64, len(idx))
	classes := make([]bool, len(idx))
	pos := 0
	for k, i := range idx {
		sorted[k] = scores[i]
		classes[k] = y[i] == 1
		if classes[k] {
			pos++
		}
	}
	if pos == 0 || pos == len(y) {
		return math.NaN()
	}
	tpr, fpr, _ := stat.ROC(nil, sorted, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}
