package runstate

import (
	"testing"
	"time"

	"binbird-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{-5 * time.Second, "0s"},
		{12 * time.Second, "12s"},
		{1500 * time.Millisecond, "1s"},
		{4*time.Minute + 2*time.Second, "4m 2s"},
		{4 * time.Minute, "4m"},
		{time.Hour + 5*time.Minute + 30*time.Second, "1h 5m"},
		{2 * time.Hour, "2h"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), "duration %s", tt.in)
	}
}

func TestComputeRunStats(t *testing.T) {
	ended := "2024-05-06T11:30:00Z"
	stats := ComputeRunStats(models.RunSessionRecord{
		StartedAt:     "2024-05-06T10:00:00Z",
		EndedAt:       &ended,
		TotalJobs:     4,
		CompletedJobs: 3,
	})

	assert.Equal(t, 75, stats.CompletionPercent)
	require.NotNil(t, stats.Duration)
	assert.Equal(t, 90*time.Minute, *stats.Duration)
	assert.Equal(t, "1h 30m", *stats.DurationLabel)
	require.NotNil(t, stats.AveragePerJob)
	assert.Equal(t, 30*time.Minute, *stats.AveragePerJob)
	assert.Equal(t, "30m", *stats.AverageLabel)
}

func TestComputeRunStats_ClampsCounts(t *testing.T) {
	stats := ComputeRunStats(models.RunSessionRecord{
		StartedAt:     "2024-05-06T10:00:00Z",
		TotalJobs:     2,
		CompletedJobs: 5,
	})
	assert.Equal(t, 2, stats.CompletedJobs)
	assert.Equal(t, 100, stats.CompletionPercent)
	assert.NotNil(t, stats.StartedAt)
	assert.Nil(t, stats.EndedAt)
	assert.Nil(t, stats.Duration)

	empty := ComputeRunStats(models.RunSessionRecord{})
	assert.Equal(t, 0, empty.CompletionPercent)
	assert.Nil(t, empty.StartedAt)
}

func TestComputeRunStats_UnknownDuration(t *testing.T) {
	garbage := "not a time"
	stats := ComputeRunStats(models.RunSessionRecord{StartedAt: "2024-05-06T10:00:00Z", EndedAt: &garbage, TotalJobs: 1})
	assert.Nil(t, stats.Duration)
	assert.Nil(t, stats.EndedAt)

	before := "2024-05-06T09:00:00Z"
	stats = ComputeRunStats(models.RunSessionRecord{StartedAt: "2024-05-06T10:00:00Z", EndedAt: &before, TotalJobs: 1, CompletedJobs: 1})
	assert.Nil(t, stats.Duration)
	assert.Nil(t, stats.AveragePerJob)
}

func TestComputeRunStats_NoAverageWithoutCompletions(t *testing.T) {
	ended := "2024-05-06T10:10:00Z"
	stats := ComputeRunStats(models.RunSessionRecord{StartedAt: "2024-05-06T10:00:00Z", EndedAt: &ended, TotalJobs: 3})
	require.NotNil(t, stats.DurationLabel)
	assert.Equal(t, "10m", *stats.DurationLabel)
	assert.Nil(t, stats.AveragePerJob)
}

func TestIsRunSessionActive(t *testing.T) {
	ended := "2024-05-06T11:00:00Z"
	broken := "soon"

	assert.False(t, IsRunSessionActive(nil))
	assert.False(t, IsRunSessionActive(&models.RunSessionRecord{}))
	assert.True(t, IsRunSessionActive(&models.RunSessionRecord{StartedAt: "2024-05-06T10:00:00Z"}))
	assert.False(t, IsRunSessionActive(&models.RunSessionRecord{StartedAt: "2024-05-06T10:00:00Z", EndedAt: &ended}))
	assert.True(t, IsRunSessionActive(&models.RunSessionRecord{StartedAt: "2024-05-06T10:00:00Z", EndedAt: &broken}))
}

func TestDeriveRunMenuState(t *testing.T) {
	plan := samplePlan()
	started := samplePlan()
	started.HasStarted = true
	empty := samplePlan()
	empty.Jobs = nil
	active := &models.RunSessionRecord{StartedAt: "2024-05-06T10:00:00Z"}

	tests := []struct {
		name    string
		plan    *models.PlannedRunPayload
		session *models.RunSessionRecord
		want    models.RunMenuState
	}{
		{"nothing", nil, nil, models.RunMenuState{}},
		{"planned", &plan, nil, models.RunMenuState{HasPlannedRun: true}},
		{"started", &started, nil, models.RunMenuState{HasPlannedRun: true, ShowEndRun: true, LockNavigation: true}},
		{"session only", nil, active, models.RunMenuState{ShowEndRun: true, LockNavigation: true}},
		{"plan without jobs", &empty, nil, models.RunMenuState{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveRunMenuState(tt.plan, tt.session)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.ShowEndRun, got.LockNavigation)
		})
	}
}
