package models

import "time"

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlannedRunPayload is one device's current multi-stop run plan.
// Jobs are in stop order.
type PlannedRunPayload struct {
	Start        Coordinates `json:"start"`
	End          Coordinates `json:"end"`
	Jobs         []Job       `json:"jobs"`
	StartAddress *string     `json:"startAddress"`
	EndAddress   *string     `json:"endAddress"`
	CreatedAt    time.Time   `json:"createdAt"`
	HasStarted   bool        `json:"hasStarted"`
	NextIdx      int         `json:"nextIdx"`
}

// CurrentJob returns the job under the cursor
func (p *PlannedRunPayload) CurrentJob() *Job {
	if p == nil || p.NextIdx < 0 || p.NextIdx >= len(p.Jobs) {
		return nil
	}
	return &p.Jobs[p.NextIdx]
}

// CompletedCount returns how many jobs in the plan are completed
func (p *PlannedRunPayload) CompletedCount() int {
	if p == nil {
		return 0
	}
	count := 0
	for _, job := range p.Jobs {
		if job.Status == JobStatusCompleted {
			count++
		}
	}
	return count
}

// RunSessionRecord is the metrics snapshot of an active or most recent run.
// Timestamps stay as strings: a malformed endedAt is meaningful (the run is
// treated as not ended).
type RunSessionRecord struct {
	StartedAt     string  `json:"startedAt"`
	EndedAt       *string `json:"endedAt"`
	TotalJobs     int     `json:"totalJobs"`
	CompletedJobs int     `json:"completedJobs"`
}

// RunMenuState is the UI-facing summary of whether a run is in progress
type RunMenuState struct {
	HasPlannedRun  bool `json:"hasPlannedRun"`
	ShowEndRun     bool `json:"showEndRun"`
	LockNavigation bool `json:"lockNavigation"`
}

// RunStats is what the summary view renders for a finished (or running) run
type RunStats struct {
	StartedAt         *time.Time     `json:"started_at"`
	EndedAt           *time.Time     `json:"ended_at"`
	Duration          *time.Duration `json:"duration_ns"`
	DurationLabel     *string        `json:"duration_label"`
	TotalJobs         int            `json:"total_jobs"`
	CompletedJobs     int            `json:"completed_jobs"`
	CompletionPercent int            `json:"completion_percent"`
	AveragePerJob     *time.Duration `json:"average_per_job_ns"`
	AverageLabel      *string        `json:"average_label"`
}

// RunEndReason records why a run finished
type RunEndReason string

const (
	RunEndCompleted RunEndReason = "completed"  // Every job reached a terminal status
	RunEndManual    RunEndReason = "manual_end" // Staff pressed "End Run"
)

// RunHistory is a finished run as recorded in the run_history table
type RunHistory struct {
	ID             string       `json:"id" db:"id"`
	DeviceID       string       `json:"device_id" db:"device_id"`
	UserID         *string      `json:"user_id" db:"user_id"`
	StartedAt      *int64       `json:"started_at" db:"started_at"`
	EndedAt        int64        `json:"ended_at" db:"ended_at"`
	TotalJobs      int          `json:"total_jobs" db:"total_jobs"`
	CompletedJobs  int          `json:"completed_jobs" db:"completed_jobs"`
	CompletionRate float64      `json:"completion_rate" db:"completion_rate"`
	EndReason      RunEndReason `json:"end_reason" db:"end_reason"`
	CreatedAt      int64        `json:"created_at" db:"created_at"`
}

// FCMToken represents a Firebase Cloud Messaging token for a staff device
type FCMToken struct {
	ID         int    `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	Role       string `json:"role" db:"role"`
	Token      string `json:"token" db:"token"`
	DeviceType string `json:"device_type" db:"device_type"` // "ios", "android" or "web"
	CreatedAt  int64  `json:"created_at" db:"created_at"`
	UpdatedAt  int64  `json:"updated_at" db:"updated_at"`
}
