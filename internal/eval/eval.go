package eval

import (
	"fmt"
	"strings"
)

// #region evaluate
// Evaluate scores predictions against truth. Labels are indices into classes.
// A class with no predicted (or no true) members scores 0 precision (or recall).
func Evaluate(yTrue, yPred []int, classes []string) Report {
	c := len(classes)
	confusion := make([][]int, c)
	for k := range confusion {
		confusion[k] = make([]int, c)
	}
	correct := 0
	for i := range yTrue {
		confusion[yTrue[i]][yPred[i]]++
		if yTrue[i] == yPred[i] {
			correct++
		}
	}

	rep := Report{
		Classes:   make([]ClassMetrics, c),
		Confusion: confusion,
		Total:     len(yTrue),
	}
	if rep.Total > 0 {
		rep.Accuracy = float64(correct) / float64(rep.Total)
	}

	var macro, weighted ClassMetrics
	for k, label := range classes {
		tp := confusion[k][k]
		support, predicted := 0, 0
		for j := 0; j < c; j++ {
			support += confusion[k][j]
			predicted += confusion[j][k]
		}
		m := ClassMetrics{Label: label, Support: support}
		if predicted > 0 {
			m.Precision = float64(tp) / float64(predicted)
		} else if support > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("precision of %s is ill-defined: no predicted samples", label))
		}
		if support > 0 {
			m.Recall = float64(tp) / float64(support)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		rep.Classes[k] = m

		macro.Precision += m.Precision
		macro.Recall += m.Recall
		macro.F1 += m.F1
		w := float64(support)
		weighted.Precision += w * m.Precision
		weighted.Recall += w * m.Recall
		weighted.F1 += w * m.F1
	}

	if c > 0 {
		macro.Precision /= float64(c)
		macro.Recall /= float64(c)
		macro.F1 /= float64(c)
	}
	if rep.Total > 0 {
		n := float64(rep.Total)
		weighted.Precision /= n
		weighted.Recall /= n
		weighted.F1 /= n
	}
	macro.Label, macro.Support = "macro avg", rep.Total
	weighted.Label, weighted.Support = "weighted avg", rep.Total
	rep.MacroAvg = macro
	rep.WeightedAvg = weighted
	return rep
}

// #endregion evaluate

// #region render
// String renders the report as a fixed-width table with 4 decimal digits,
// followed by one line per warning.
func (r Report) String() string {
	width := len("weighted avg")
	for _, m := range r.Classes {
		if len(m.Label) > width {
			width = len(m.Label)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %10s %10s %10s %10s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, m := range r.Classes {
		fmt.Fprintf(&b, "%*s %10.4f %10.4f %10.4f %10d\n", width, m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %10s %10s %10.4f %10d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	for _, m := range []ClassMetrics{r.MacroAvg, r.WeightedAvg} {
		fmt.Fprintf(&b, "%*s %10.4f %10.4f %10.4f %10d\n", width, m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "warning: %s\n", w)
		}
	}
	return b.String()
}

// #endregion render
