package models

import "time"

// ScheduleStatus represents the lifecycle state of a schedule
type ScheduleStatus string

const (
	// ScheduleActive means the schedule is eligible for timed execution
	ScheduleActive ScheduleStatus = "active"

	// SchedulePaused means timed execution is suspended. Manual runs are
	// still permitted.
	SchedulePaused ScheduleStatus = "paused"
)

// ExecutionStatus represents the outcome of one schedule execution
type ExecutionStatus string

const (
	// ExecutionSuccess means no target group failed
	ExecutionSuccess ExecutionStatus = "success"

	// ExecutionPartial means at least one group succeeded and at least
	// one failed
	ExecutionPartial ExecutionStatus = "partial"

	// ExecutionFailed means at least one group failed and none succeeded
	ExecutionFailed ExecutionStatus = "failed"
)

// GroupResultStatus represents the outcome for a single target group
type GroupResultStatus string

const (
	// GroupResultSuccess means a summary was generated and persisted
	GroupResultSuccess GroupResultStatus = "success"

	// GroupResultSkipped means there was nothing to summarize
	GroupResultSkipped GroupResultStatus = "skipped"

	// GroupResultFailed means fetching, generation or persistence failed
	GroupResultFailed GroupResultStatus = "failed"
)

// TargetGroup identifies one group a schedule summarizes
type TargetGroup struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name,omitempty"`
}

// Schedule represents a persisted recurring daily summary job owned by a
// user. Execution bookkeeping fields are mutated only by the runner.
type Schedule struct {
	ID                  int64             `json:"id"`
	OwnerUserID         string            `json:"owner_user_id"`
	TargetGroups        []TargetGroup     `json:"target_groups"`
	RunAt               string            `json:"run_at"` // "HH:MM" local to Timezone
	Timezone            string            `json:"timezone"`
	Frequency           string            `json:"frequency"` // "daily"
	SummaryOptions      *SummaryOptions   `json:"summary_options,omitempty"`
	Status              ScheduleStatus    `json:"status"`
	NextExecutionAt     time.Time         `json:"next_execution_at"`
	LastExecutionAt     *time.Time        `json:"last_execution_at,omitempty"`
	LastExecutionStatus ExecutionStatus   `json:"last_execution_status,omitempty"`
	FailCount           int               `json:"fail_count"`
	ConsecutiveFailures int               `json:"consecutive_failures"`
	MaxRetries          int               `json:"max_retries"`
	History             []ExecutionRecord `json:"history,omitempty"` // most recent first, capped
	CreatedAt           time.Time         `json:"created_at,omitempty"`
	UpdatedAt           time.Time         `json:"updated_at,omitempty"`
}

// GroupResult represents the per-group outcome inside an execution record
type GroupResult struct {
	GroupID   string            `json:"group_id"`
	GroupName string            `json:"group_name"`
	SummaryID int64             `json:"summary_id,omitempty"`
	Status    GroupResultStatus `json:"status"`
	Error     string            `json:"error,omitempty"`
}

// ExecutionRecord represents one completed execution, immutable once
// written into the schedule's history ring
type ExecutionRecord struct {
	ExecutedAt   time.Time       `json:"executed_at"`
	DurationMs   int             `json:"duration_ms"`
	Status       ExecutionStatus `json:"status"`
	GroupResults []GroupResult   `json:"group_results"`
}

// ExecutionUpdate carries the bookkeeping fields written back to a
// schedule after one execution, applied as a single atomic update
type ExecutionUpdate struct {
	LastExecutionAt     time.Time       `json:"last_execution_at"`
	LastExecutionStatus ExecutionStatus `json:"last_execution_status"`
	NextExecutionAt     time.Time       `json:"next_execution_at"`
	FailCount           int             `json:"fail_count"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	Status              ScheduleStatus  `json:"status,omitempty"` // empty = unchanged
}

// OverallStatus derives the execution status from per-group results.
// Skipped groups are neutral: an execution with only skipped groups is a
// success, and a skipped group never demotes a success to partial.
func OverallStatus(results []GroupResult) ExecutionStatus {
	var succeeded, failed int
	for _, r := range results {
		switch r.Status {
		case GroupResultSuccess:
			succeeded++
		case GroupResultFailed:
			failed++
		}
	}

	switch {
	case failed > 0 && succeeded > 0:
		return ExecutionPartial
	case failed > 0:
		return ExecutionFailed
	default:
		return ExecutionSuccess
	}
}
