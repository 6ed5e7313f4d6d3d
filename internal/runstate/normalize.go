package runstate

import (
	"fmt"
	"strings"

	"binbird-backend/internal/models"
)

var separatorReplacer = strings.NewReplacer(" ", "_", "-", "_")

// NormalizeJob canonicalizes a loosely-typed job record. It never fails:
// every field falls back to a safe default.
func NormalizeJob(raw models.RawJob) models.Job {
	job, _ := NormalizeJobWithWarnings(raw)
	return job
}

// NormalizeJobWithWarnings is NormalizeJob plus the list of fields that had
// to be defaulted. Warnings are informational only.
func NormalizeJobWithWarnings(raw models.RawJob) (models.Job, []string) {
	var warnings []string
	warn := func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if raw == nil {
		raw = models.RawJob{}
	}

	job := models.Job{
		AccountID:       nullableString(raw["account_id"]),
		PropertyID:      nullableString(raw["property_id"]),
		Bins:            nullableString(raw["bins"]),
		Notes:           nullableString(raw["notes"]),
		ClientName:      nullableString(raw["client_name"]),
		PhotoPath:       nullableString(raw["photo_path"]),
		AssignedTo:      nullableString(raw["assigned_to"]),
		DayOfWeek:       nullableString(raw["day_of_week"]),
		LastCompletedOn: ExtractDate(raw["last_completed_on"]),
	}

	if id := nullableString(raw["id"]); id != nil {
		job.ID = *id
	} else {
		warn("id: missing")
	}

	if address, ok := asString(raw["address"]); ok {
		job.Address = address
	} else if raw["address"] != nil {
		warn("address: unsupported type %T", raw["address"])
	}

	job.Lat = coordinate(raw["lat"], "lat", warn)
	job.Lng = coordinate(raw["lng"], "lng", warn)

	status, known := parseJobStatus(raw["status"])
	if !known && raw["status"] != nil {
		warn("status: unrecognised %q, using %s", fmt.Sprint(raw["status"]), status)
	}
	job.Status = status

	jobType, known := parseJobType(raw["job_type"])
	if !known && raw["job_type"] != nil {
		warn("job_type: unrecognised %q, using %s", fmt.Sprint(raw["job_type"]), jobType)
	}
	job.JobType = jobType

	// Completion by date wins over a stale status, except an explicit skip
	if job.LastCompletedOn != nil && job.Status != models.JobStatusSkipped {
		job.Status = models.JobStatusCompleted
	}

	return job, warnings
}

// NormalizeJobs normalizes every entry. Nil input gives an empty slice.
func NormalizeJobs(raws []models.RawJob) []models.Job {
	jobs := make([]models.Job, 0, len(raws))
	for _, raw := range raws {
		jobs = append(jobs, NormalizeJob(raw))
	}
	return jobs
}

// NormalizeJobStatus maps a raw status token onto the status enum
func NormalizeJobStatus(v interface{}) models.JobStatus {
	status, _ := parseJobStatus(v)
	return status
}

// ParseJobStatus is NormalizeJobStatus that also reports whether the token
// was recognised
func ParseJobStatus(v interface{}) (models.JobStatus, bool) {
	return parseJobStatus(v)
}

// NormalizeJobType maps a raw job type label onto put_out / bring_in
func NormalizeJobType(v interface{}) models.JobType {
	jobType, _ := parseJobType(v)
	return jobType
}

func coordinate(v interface{}, field string, warn func(string, ...interface{})) float64 {
	if v == nil {
		return 0
	}
	f, ok := parseNumber(v)
	if !ok {
		warn("%s: not a number", field)
		return 0
	}
	return f
}

func canonicalToken(v interface{}) string {
	s, ok := asString(v)
	if !ok {
		return ""
	}
	return separatorReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

func parseJobStatus(v interface{}) (models.JobStatus, bool) {
	switch strings.ReplaceAll(canonicalToken(v), "_", "") {
	case "scheduled":
		return models.JobStatusScheduled, true
	case "enroute":
		return models.JobStatusEnRoute, true
	case "onsite":
		return models.JobStatusOnSite, true
	case "completed":
		return models.JobStatusCompleted, true
	case "skipped":
		return models.JobStatusSkipped, true
	}
	return models.JobStatusScheduled, false
}

// parseJobType is a heuristic: anything that does not look like a
// bring-in label is a put-out. The bool reports whether the label was
// recognised as either.
func parseJobType(v interface{}) (models.JobType, bool) {
	token := canonicalToken(v)
	switch token {
	case "bring_in", "bringin", "bring", "in":
		return models.JobTypeBringIn, true
	case "put_out", "putout", "put", "out":
		return models.JobTypePutOut, true
	}
	if strings.HasSuffix(token, "_in") {
		return models.JobTypeBringIn, true
	}
	if strings.HasSuffix(token, "_out") {
		return models.JobTypePutOut, true
	}
	return models.JobTypePutOut, false
}

// normalizePlanJobs turns the jobs entry of a stored or submitted plan into
// usable stops. Entries that are not objects or have no id are dropped.
func normalizePlanJobs(v interface{}) []models.Job {
	var items []interface{}
	switch t := v.(type) {
	case []interface{}:
		items = t
	case []models.RawJob:
		for _, raw := range t {
			items = append(items, raw)
		}
	case []models.Job:
		for _, job := range t {
			items = append(items, job)
		}
	default:
		return nil
	}

	jobs := make([]models.Job, 0, len(items))
	for _, item := range items {
		var raw models.RawJob
		switch t := item.(type) {
		case models.RawJob:
			raw = t
		case map[string]interface{}:
			raw = t
		case models.Job:
			raw = t.Raw()
		default:
			continue
		}
		job := NormalizeJob(raw)
		if job.ID == "" {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs
}
