package pipeline

import (
	"fmt"
	"io"

	"github.com/mikey/phishing-filter/internal/core"
)

var classNames = [core.NumClasses]string{"Legitimate", "Phishing"}

// evaluate compares predictions to true labels
func evaluate(yTrue, yPred []int) *core.EvaluationMetrics {
	m := &core.EvaluationMetrics{TestSize: len(yTrue)}

	for i, truth := range yTrue {
		pred := yPred[i]
		switch {
		case truth == core.ClassPhishing && pred == core.ClassPhishing:
			m.Confusion.TruePositive++
		case truth == core.ClassPhishing:
			m.Confusion.FalseNegative++
		case pred == core.ClassPhishing:
			m.Confusion.FalsePositive++
		default:
			m.Confusion.TrueNegative++
		}
	}

	cm := m.Confusion
	if n := len(yTrue); n > 0 {
		m.Accuracy = float64(cm.TruePositive+cm.TrueNegative) / float64(n)
	}

	m.PerClass[core.ClassPhishing] = report(cm.TruePositive, cm.FalsePositive, cm.FalseNegative)
	m.PerClass[core.ClassLegitimate] = report(cm.TrueNegative, cm.FalseNegative, cm.FalsePositive)

	return m
}

func report(tp, fp, fn int) core.ClassReport {
	r := core.ClassReport{
		Precision: ratio(tp, tp+fp),
		Recall:    ratio(tp, tp+fn),
		Support:   tp + fn,
	}
	if r.Precision+r.Recall > 0 {
		r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
	}
	return r
}

func ratio(num, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

// PrintMetrics writes an evaluation report with a per-class table and the confusion matrix
func PrintMetrics(w io.Writer, m *core.EvaluationMetrics) {
	fmt.Fprintf(w, "\nAccuracy: %.4f\n", m.Accuracy)
	fmt.Fprintf(w, "\nClassification Report:\n")
	fmt.Fprintf(w, "%12s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	for c, r := range m.PerClass {
		fmt.Fprintf(w, "%12s %10.2f %10.2f %10.2f %10d\n", classNames[c], r.Precision, r.Recall, r.F1, r.Support)
	}
	fmt.Fprintf(w, "\nConfusion Matrix:\n")
	fmt.Fprintf(w, "[[%d %d]\n [%d %d]]\n",
		m.Confusion.TrueNegative, m.Confusion.FalsePositive,
		m.Confusion.FalseNegative, m.Confusion.TruePositive)
}
