package models

// JobStatus represents where a stop is in its lifecycle during a run
type JobStatus string

const (
	JobStatusScheduled JobStatus = "scheduled" // Default for anything unrecognised
	JobStatusEnRoute   JobStatus = "en_route"  // Staff member is driving to the stop
	JobStatusOnSite    JobStatus = "on_site"   // Arrived, work in progress
	JobStatusCompleted JobStatus = "completed" // Terminal
	JobStatusSkipped   JobStatus = "skipped"   // Terminal, explicit
)

// IsTerminal returns true for statuses that cannot transition any further
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusSkipped
}

// JobType is what the staff member does with the bins at a stop
type JobType string

const (
	JobTypePutOut  JobType = "put_out"
	JobTypeBringIn JobType = "bring_in"
)

// RawJob is a loosely-typed job record as it arrives from the backend,
// a query string or a stored payload
type RawJob map[string]interface{}

// Job represents one scheduled stop after normalization
type Job struct {
	ID              string    `json:"id"`
	AccountID       *string   `json:"account_id"`
	PropertyID      *string   `json:"property_id"`
	Address         string    `json:"address"`
	Lat             float64   `json:"lat"`
	Lng             float64   `json:"lng"`
	Status          JobStatus `json:"status"`
	JobType         JobType   `json:"job_type"`
	Bins            *string   `json:"bins"`
	Notes           *string   `json:"notes"`
	ClientName      *string   `json:"client_name"`
	PhotoPath       *string   `json:"photo_path"`
	AssignedTo      *string   `json:"assigned_to"`
	DayOfWeek       *string   `json:"day_of_week"`
	LastCompletedOn *string   `json:"last_completed_on"`
}

// Raw converts a job back into its loosely-typed form so it can be
// stored or re-normalized
func (j Job) Raw() RawJob {
	return RawJob{
		"id":                j.ID,
		"account_id":        derefOrNil(j.AccountID),
		"property_id":       derefOrNil(j.PropertyID),
		"address":           j.Address,
		"lat":               j.Lat,
		"lng":               j.Lng,
		"status":            string(j.Status),
		"job_type":          string(j.JobType),
		"bins":              derefOrNil(j.Bins),
		"notes":             derefOrNil(j.Notes),
		"client_name":       derefOrNil(j.ClientName),
		"photo_path":        derefOrNil(j.PhotoPath),
		"assigned_to":       derefOrNil(j.AssignedTo),
		"day_of_week":       derefOrNil(j.DayOfWeek),
		"last_completed_on": derefOrNil(j.LastCompletedOn),
	}
}

func derefOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
