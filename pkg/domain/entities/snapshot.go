package entities

import "time"

// Snapshot is an immutable, versioned view of a loaded dataset.
// Queries read snapshots and never modify them.
type Snapshot struct {
	Version  string
	Source   string
	LoadedAt time.Time
	Dataset  *Dataset
	Report   *NormalizationReport
}
