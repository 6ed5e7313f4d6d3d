package database

import (
	"testing"
	"time"

	"binbird-backend/internal/models"
	"binbird-backend/internal/runstate"

	"github.com/stretchr/testify/assert"
)

func TestResetStaleOutcome(t *testing.T) {
	day := runstate.NewOperationalDay(4, time.UTC)
	now := time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC)
	today, dayStart := day.Key(now), day.Start(now)
	lastWeek := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC).Unix()
	thisMorning := time.Date(2024, 5, 13, 7, 0, 0, 0, time.UTC).Unix()

	tests := []struct {
		name          string
		row           models.RawJob
		wantStatus    interface{}
		wantCompleted interface{}
		wantPhoto     interface{}
	}{
		{
			name:          "completed last week comes back pending",
			row:           models.RawJob{"status": "completed", "last_completed_on": "2024-05-06", "photo_path": "p.jpg", "updated_at": lastWeek},
			wantStatus:    "scheduled",
			wantCompleted: nil,
			wantPhoto:     nil,
		},
		{
			name:          "completed today is kept",
			row:           models.RawJob{"status": "completed", "last_completed_on": "2024-05-13T08:30:00Z", "photo_path": "p.jpg", "updated_at": thisMorning},
			wantStatus:    "completed",
			wantCompleted: "2024-05-13T08:30:00Z",
			wantPhoto:     "p.jpg",
		},
		{
			name:          "skipped last week comes back pending",
			row:           models.RawJob{"status": "skipped", "last_completed_on": nil, "photo_path": nil, "updated_at": lastWeek},
			wantStatus:    "scheduled",
			wantCompleted: nil,
			wantPhoto:     nil,
		},
		{
			name:          "en route this morning is kept",
			row:           models.RawJob{"status": "en_route", "last_completed_on": nil, "photo_path": nil, "updated_at": thisMorning},
			wantStatus:    "en_route",
			wantCompleted: nil,
			wantPhoto:     nil,
		},
		{
			name:          "stale completion rewritten today",
			row:           models.RawJob{"status": "completed", "last_completed_on": "2024-05-06", "photo_path": "p.jpg", "updated_at": thisMorning},
			wantStatus:    "scheduled",
			wantCompleted: nil,
			wantPhoto:     nil,
		},
		{
			name:          "no update time",
			row:           models.RawJob{"status": "on_site", "last_completed_on": nil, "photo_path": nil, "updated_at": nil},
			wantStatus:    "scheduled",
			wantCompleted: nil,
			wantPhoto:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resetStaleOutcome(tt.row, today, dayStart)
			assert.NotContains(t, got, "updated_at")
			assert.Equal(t, tt.wantStatus, got["status"])
			assert.Equal(t, tt.wantCompleted, got["last_completed_on"])
			assert.Equal(t, tt.wantPhoto, got["photo_path"])
		})
	}
}

func TestResetStaleOutcome_NormalizesToPending(t *testing.T) {
	day := runstate.NewOperationalDay(4, time.UTC)
	now := time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC)

	row := resetStaleOutcome(models.RawJob{
		"id":                "j1",
		"status":            "completed",
		"last_completed_on": time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC),
		"updated_at":        int64(1715000000),
	}, day.Key(now), day.Start(now))

	job := runstate.NormalizeJob(row)
	assert.Equal(t, models.JobStatusScheduled, job.Status)
	assert.Nil(t, job.LastCompletedOn)
}
