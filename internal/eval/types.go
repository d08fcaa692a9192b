package eval

// #region class-metrics
// ClassMetrics holds held-out scores for one class, or one average row.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// #endregion class-metrics

// #region report
// Report is the classification report over the held-out split.
// It is informational and never gates export.
type Report struct {
	Classes     []ClassMetrics `json:"classes"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Confusion   [][]int        `json:"confusion"` // [true][predicted]
	Total       int            `json:"total"`
	Warnings    []string       `json:"warnings,omitempty"`
}

// #endregion report
