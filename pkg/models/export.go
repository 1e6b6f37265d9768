package models

// ExportState is the position of a job's bundled download in its
// idle -> preparing -> ready -> idle cycle.
type ExportState string

const (
	ExportIdle      ExportState = "idle"
	ExportPreparing ExportState = "preparing"
	ExportReady     ExportState = "ready"
)
