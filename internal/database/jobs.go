package database

import (
	"fmt"
	"strings"
	"time"

	"binbird-backend/internal/models"
	"binbird-backend/internal/runstate"

	"github.com/jmoiron/sqlx"
)

const jobColumns = `id, account_id, property_id, address, lat, lng, status, job_type, bins, notes,
	client_name, photo_path, assigned_to, day_of_week, last_completed_on`

// ListJobsForDay returns the raw job rows scheduled on day (e.g. "Monday"),
// optionally only those assigned to assignee. Rows stay loosely typed and
// are normalized by the caller. Outcomes recorded on an earlier operational
// day than now's are dropped, so a weekly job comes back pending.
func ListJobsForDay(db *sqlx.DB, day string, assignee *string, current runstate.OperationalDay, now time.Time) ([]models.RawJob, error) {
	query := `SELECT ` + jobColumns + `, updated_at FROM jobs WHERE LOWER(day_of_week) = LOWER($1)`
	args := []interface{}{strings.TrimSpace(day)}
	if assignee != nil && *assignee != "" {
		query += ` AND assigned_to = $2`
		args = append(args, *assignee)
	}
	query += ` ORDER BY address ASC`

	rows, err := db.Queryx(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []models.RawJob{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		for key, value := range row {
			if b, ok := value.([]byte); ok {
				row[key] = string(b)
			}
		}
		jobs = append(jobs, resetStaleOutcome(models.RawJob(row), current.Key(now), current.Start(now)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return jobs, nil
}

// resetStaleOutcome clears a completion from another day. Without a
// completion today, a completed status or one last written before dayStart
// goes back to scheduled.
func resetStaleOutcome(row models.RawJob, today string, dayStart time.Time) models.RawJob {
	updatedAt, hasUpdatedAt := unixSeconds(row["updated_at"])
	delete(row, "updated_at")

	completed := runstate.ExtractDate(row["last_completed_on"])
	if completed != nil && *completed == today {
		return row
	}
	if completed != nil {
		row["last_completed_on"] = nil
		row["photo_path"] = nil
	}
	if runstate.NormalizeJobStatus(row["status"]) == models.JobStatusCompleted ||
		!hasUpdatedAt || updatedAt < dayStart.Unix() {
		row["status"] = string(models.JobStatusScheduled)
	}
	return row
}

func unixSeconds(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case time.Time:
		return n.Unix(), true
	default:
		return 0, false
	}
}

// MarkJobDone records a terminal status for a job. Completed jobs get
// last_completed_on and, when given, the proof photo.
func MarkJobDone(db *sqlx.DB, jobID string, status models.JobStatus, completedOn string, photoPath *string) error {
	now := time.Now().Unix()

	var err error
	if status == models.JobStatusCompleted {
		_, err = db.Exec(`
			UPDATE jobs
			SET status = $1, last_completed_on = $2, photo_path = COALESCE($3, photo_path), updated_at = $4
			WHERE id = $5
		`, status, completedOn, photoPath, now, jobID)
	} else {
		_, err = db.Exec(`UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3`, status, now, jobID)
	}
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}
	return nil
}

// UpsertJob inserts or replaces a job row
func UpsertJob(db *sqlx.DB, job models.Job) error {
	query := `
		INSERT INTO jobs (` + jobColumns + `, updated_at)
		VALUES (:id, :account_id, :property_id, :address, :lat, :lng, :status, :job_type, :bins, :notes,
			:client_name, :photo_path, :assigned_to, :day_of_week, :last_completed_on, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			property_id = EXCLUDED.property_id,
			address = EXCLUDED.address,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			status = EXCLUDED.status,
			job_type = EXCLUDED.job_type,
			bins = EXCLUDED.bins,
			notes = EXCLUDED.notes,
			client_name = EXCLUDED.client_name,
			photo_path = EXCLUDED.photo_path,
			assigned_to = EXCLUDED.assigned_to,
			day_of_week = EXCLUDED.day_of_week,
			last_completed_on = EXCLUDED.last_completed_on,
			updated_at = EXCLUDED.updated_at
	`
	row := map[string]interface{}(job.Raw())
	row["updated_at"] = time.Now().Unix()

	if _, err := db.NamedExec(query, row); err != nil {
		return fmt.Errorf("failed to upsert job %s: %w", job.ID, err)
	}
	return nil
}
