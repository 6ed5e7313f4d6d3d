package runstate

import (
	"encoding/json"
	"testing"
	"time"

	"binbird-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeJob_Defaults(t *testing.T) {
	job, warnings := NormalizeJobWithWarnings(nil)

	assert.Equal(t, "", job.ID)
	assert.Equal(t, models.JobStatusScheduled, job.Status)
	assert.Equal(t, models.JobTypePutOut, job.JobType)
	assert.Zero(t, job.Lat)
	assert.Zero(t, job.Lng)
	assert.Nil(t, job.Notes)
	assert.Contains(t, warnings, "id: missing")
}

func TestNormalizeJob_CoercesLooseFields(t *testing.T) {
	job := NormalizeJob(models.RawJob{
		"id":          float64(42),
		"address":     "1 Main St",
		"lat":         "37.5",
		"lng":         json.Number("-121.9"),
		"status":      "En Route",
		"job_type":    "Bring-In",
		"notes":       "   ",
		"client_name": " Ada ",
		"bins":        "2 green, 1 red",
	})

	assert.Equal(t, "42", job.ID)
	assert.Equal(t, "1 Main St", job.Address)
	assert.InDelta(t, 37.5, job.Lat, 1e-9)
	assert.InDelta(t, -121.9, job.Lng, 1e-9)
	assert.Equal(t, models.JobStatusEnRoute, job.Status)
	assert.Equal(t, models.JobTypeBringIn, job.JobType)
	assert.Nil(t, job.Notes)
	require.NotNil(t, job.ClientName)
	assert.Equal(t, "Ada", *job.ClientName)
}

func TestNormalizeJob_LastCompletedOnMarksCompleted(t *testing.T) {
	job := NormalizeJob(models.RawJob{
		"id":                "a",
		"status":            "scheduled",
		"last_completed_on": "2024-05-06T10:00:00Z",
	})
	require.NotNil(t, job.LastCompletedOn)
	assert.Equal(t, "2024-05-06", *job.LastCompletedOn)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	skipped := NormalizeJob(models.RawJob{
		"id":                "b",
		"status":            "skipped",
		"last_completed_on": "2024-05-06",
	})
	assert.Equal(t, models.JobStatusSkipped, skipped.Status)
}

func TestNormalizeJob_BadCoordinatesDefaultToZero(t *testing.T) {
	job, warnings := NormalizeJobWithWarnings(models.RawJob{
		"id":  "a",
		"lat": "north",
		"lng": map[string]interface{}{},
	})
	assert.Zero(t, job.Lat)
	assert.Zero(t, job.Lng)
	assert.Contains(t, warnings, "lat: not a number")
	assert.Contains(t, warnings, "lng: not a number")
}

func TestNormalizeJob_UnknownTokensWarn(t *testing.T) {
	job, warnings := NormalizeJobWithWarnings(models.RawJob{
		"id":       "a",
		"status":   "lost",
		"job_type": "wash",
	})
	assert.Equal(t, models.JobStatusScheduled, job.Status)
	assert.Equal(t, models.JobTypePutOut, job.JobType)
	assert.Len(t, warnings, 2)
}

func TestNormalizeJob_Idempotent(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawJob
	}{
		{"nil", nil},
		{"empty", models.RawJob{}},
		{"string coordinates", models.RawJob{"id": "a", "lat": " 37.5 ", "lng": "-121.9"}},
		{"numeric id", models.RawJob{"id": float64(7), "address": 12}},
		{"odd status", models.RawJob{"id": "b", "status": "On-Site", "job_type": "BRING IN"}},
		{"unknown tokens", models.RawJob{"id": "c", "status": "lost", "job_type": "wash"}},
		{"datetime completion", models.RawJob{"id": "d", "status": "en_route", "last_completed_on": "2024-05-06T23:10:00Z"}},
		{"skipped with completion", models.RawJob{"id": "e", "status": "skipped", "last_completed_on": "2024-05-06"}},
		{"blank optionals", models.RawJob{"id": "f", "notes": "  ", "bins": "", "client_name": nil, "photo_path": " p.jpg "}},
		{"bad coordinates", models.RawJob{"id": "g", "lat": "north", "lng": map[string]interface{}{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := NormalizeJob(tt.raw)
			assert.Equal(t, once, NormalizeJob(once.Raw()))
		})
	}
}

func TestParseJobStatus(t *testing.T) {
	tests := []struct {
		in    interface{}
		want  models.JobStatus
		known bool
	}{
		{"scheduled", models.JobStatusScheduled, true},
		{"EN_ROUTE", models.JobStatusEnRoute, true},
		{"en-route", models.JobStatusEnRoute, true},
		{"On Site", models.JobStatusOnSite, true},
		{"onsite", models.JobStatusOnSite, true},
		{" completed ", models.JobStatusCompleted, true},
		{"Skipped", models.JobStatusSkipped, true},
		{"done", models.JobStatusScheduled, false},
		{nil, models.JobStatusScheduled, false},
		{3, models.JobStatusScheduled, false},
	}

	for _, tt := range tests {
		got, known := ParseJobStatus(tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
		assert.Equal(t, tt.known, known, "input %v", tt.in)
	}
}

func TestNormalizeJobType(t *testing.T) {
	assert.Equal(t, models.JobTypeBringIn, NormalizeJobType("bring in"))
	assert.Equal(t, models.JobTypeBringIn, NormalizeJobType("bins_in"))
	assert.Equal(t, models.JobTypePutOut, NormalizeJobType("recycling-out"))
	assert.Equal(t, models.JobTypePutOut, NormalizeJobType("PUT_OUT"))
	assert.Equal(t, models.JobTypePutOut, NormalizeJobType(nil))
}

func TestNormalizeJobs_NilGivesEmptySlice(t *testing.T) {
	jobs := NormalizeJobs(nil)
	require.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{
		"2024-05-06T10:00:00Z",
		"2024-05-06T10:00:00.123+02:00",
		"2024-05-06T10:00:00",
		"2024-05-06 10:00:00",
		"2024-05-06",
	} {
		_, ok := ParseTimestamp(s)
		assert.True(t, ok, s)
	}
	for _, s := range []string{"", "yesterday", "06/05/2024"} {
		_, ok := ParseTimestamp(s)
		assert.False(t, ok, s)
	}
}

func TestFormatTimestamp_RoundTrips(t *testing.T) {
	at := time.Date(2024, 5, 6, 10, 30, 15, 250*int(time.Millisecond), time.UTC)
	parsed, ok := ParseTimestamp(FormatTimestamp(at))
	require.True(t, ok)
	assert.True(t, at.Equal(parsed))
}

func TestExtractDate(t *testing.T) {
	assert.Equal(t, "2024-05-06", *ExtractDate("2024-05-06T23:59:59Z"))
	assert.Equal(t, "2024-05-06", *ExtractDate(time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "last week", *ExtractDate("last week"))
	assert.Nil(t, ExtractDate(""))
	assert.Nil(t, ExtractDate(nil))
	assert.Nil(t, ExtractDate(time.Time{}))
}

func TestClampIndex(t *testing.T) {
	assert.Equal(t, 0, clampIndex(-3, 4))
	assert.Equal(t, 2, clampIndex(2.7, 4))
	assert.Equal(t, 3, clampIndex(99, 4))
	assert.Equal(t, 0, clampIndex(5, 0))
}
