package database

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"binbird-backend/internal/models"
	"binbird-backend/internal/runstate"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// HistoryRecorder writes finished runs of one device to run_history
type HistoryRecorder struct {
	DB       *sqlx.DB
	DeviceID string
	UserID   *string
}

// RecordRun inserts a run_history row for a finished session
func (h HistoryRecorder) RecordRun(ctx context.Context, run models.RunSessionRecord, reason models.RunEndReason) error {
	stats := runstate.ComputeRunStats(run)

	entry := models.RunHistory{
		ID:            uuid.New().String(),
		DeviceID:      h.DeviceID,
		UserID:        h.UserID,
		EndedAt:       time.Now().Unix(),
		TotalJobs:     stats.TotalJobs,
		CompletedJobs: stats.CompletedJobs,
		EndReason:     reason,
		CreatedAt:     time.Now().Unix(),
	}
	if stats.StartedAt != nil {
		started := stats.StartedAt.Unix()
		entry.StartedAt = &started
	}
	if stats.EndedAt != nil {
		entry.EndedAt = stats.EndedAt.Unix()
	}
	if stats.TotalJobs > 0 {
		entry.CompletionRate = math.Round(float64(stats.CompletedJobs)/float64(stats.TotalJobs)*10000) / 100
	}

	query := `
		INSERT INTO run_history (id, device_id, user_id, started_at, ended_at, total_jobs,
			completed_jobs, completion_rate, end_reason, created_at)
		VALUES (:id, :device_id, :user_id, :started_at, :ended_at, :total_jobs,
			:completed_jobs, :completion_rate, :end_reason, :created_at)
	`
	if _, err := h.DB.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to insert run history: %w", err)
	}

	log.Printf("📊 Run history saved: device %s, %d/%d jobs (%.2f%%), reason %s",
		h.DeviceID, entry.CompletedJobs, entry.TotalJobs, entry.CompletionRate, reason)
	return nil
}

// ListRunHistory returns the most recent runs of a device, newest first
func ListRunHistory(db *sqlx.DB, deviceID string, limit int) ([]models.RunHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	history := []models.RunHistory{}
	err := db.Select(&history, `
		SELECT id, device_id, user_id, started_at, ended_at, total_jobs, completed_jobs,
			completion_rate, end_reason, created_at
		FROM run_history
		WHERE device_id = $1
		ORDER BY ended_at DESC
		LIMIT $2
	`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list run history: %w", err)
	}
	return history, nil
}
