package logging

import "time"

// #region stage-entry
// StageEntry is a single row in the stage_log table.
type StageEntry struct {
	RunID     string
	Stage     string // "load" | "filter" | "features" | "train" | "export" | "registry"
	Detail    string // JSON counts for the stage
	CreatedAt time.Time
}
// #endregion stage-entry

// #region stage-names
const (
	StageLoad     = "load"
	StageFilter   = "filter"
	StageFeatures = "features"
	StageTrain    = "train"
	StageExport   = "export"
	StageRegistry = "registry"
)
// #endregion stage-names
