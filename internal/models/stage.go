package models

import "time"

// StageStatus is the lifecycle state of one pipeline stage.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageActive    StageStatus = "active"
	StageCompleted StageStatus = "completed"
	StageError     StageStatus = "error"
)

// Stage names, in pipeline order.
const (
	StageDataCollection   = "data_collection"
	StageLocalDocuments   = "local_documents"
	StageCaseAnalysis     = "case_analysis"
	StageReportGeneration = "report_generation"
)

// StageUpdate is one progress frame pushed to the client channel.
// Progress is 0-100 and non-decreasing within a stage by convention.
type StageUpdate struct {
	Type      string      `json:"type"` // always "stage_update"
	Stage     string      `json:"stage"`
	Status    StageStatus `json:"status"`
	Progress  int         `json:"progress"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// Completion is the terminal frame pushed to the client channel after the
// pipeline resolves, in either direction.
type Completion struct {
	Type      string    `json:"type"` // always "completion"
	Success   bool      `json:"success"`
	ReportID  int64     `json:"report_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
