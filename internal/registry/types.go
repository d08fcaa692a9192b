package registry

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/medalfit/internal/eval"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// #region run
// Run is one completed training run as recorded after export.
type Run struct {
	RunID       string
	CreatedAt   time.Time
	Dataset     string
	RecordsIn   int
	RecordsUsed int
	TrainSize   int
	TestSize    int
	Classes     []string
	Scales      map[string]float64  // numeric column -> fitted scale
	Vocabulary  map[string][]string // categorical column -> fitted categories
	Report      eval.Report
	Warnings    []string
}
// #endregion run
