package models

import (
	"time"
)

// Job represents a strategy comparison job
type Job struct {
	ID          string        `json:"id"`
	Parameters  JobParameters `json:"parameters"`
	Status      JobStatus     `json:"status"`
	Progress    JobProgress   `json:"progress"`
	Result      *JobResult    `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	StartedAt   *time.Time    `json:"startedAt,omitempty"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// GraphType selects how a job obtains its network
type GraphType string

const (
	GraphErdosRenyi GraphType = "erdos_renyi"
	GraphPowerLaw   GraphType = "power_law"
)

// GraphSpec describes one generated network of a job
type GraphSpec struct {
	Type       GraphType `json:"type"`
	Nodes      int       `json:"nodes"`
	MeanDegree *float64  `json:"meanDegree,omitempty"` // erdos_renyi, p = meanDegree/nodes
	Gamma      *float64  `json:"gamma,omitempty"`      // power_law exponent
}

// JobParameters holds the comparison settings. Unset fields take the
// service defaults.
type JobParameters struct {
	Graphs     []GraphSpec `json:"graphs"`
	Strategies []string    `json:"strategies,omitempty"`

	TMax       *int     `json:"tMax,omitempty"`
	P          *float64 `json:"p,omitempty"`
	Infected   *int     `json:"infected,omitempty"`
	Vaccinated *int     `json:"vaccinated,omitempty"`
	Trials     *int     `json:"trials,omitempty"`
	Seed       *uint64  `json:"seed,omitempty"`
}

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Finished reports whether the status is terminal
func (s JobStatus) Finished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

type JobProgress struct {
	Percentage int    `json:"percentage"`
	Message    string `json:"message"`
}

// JobResult is the summary attached to a completed job; the full averaged
// series live in the result store.
type JobResult struct {
	Cells            []CellSummary `json:"cells"`
	ProcessingTimeMS int64         `json:"processingTimeMS"`
}

type CellSummary struct {
	Graph         string  `json:"graph"`
	Strategy      string  `json:"strategy"`
	FinalInfected float64 `json:"finalInfected"`
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SubmitResponse is returned when a job is accepted
type SubmitResponse struct {
	JobID string `json:"jobId"`
	Job   Job    `json:"job"`
}

// HealthResponse reports service health
type HealthResponse struct {
	Status     string `json:"status"`
	Store      string `json:"store"`
	ActiveJobs int    `json:"activeJobs"`
	Version    string `json:"version"`
}
