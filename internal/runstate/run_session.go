package runstate

import (
	"encoding/json"
	"log"
	"time"

	"binbird-backend/internal/models"
)

// RunSessionKey is the storage key of the run session record
const RunSessionKey = "binbird-run-session"

// RunSessionStore persists the metrics of the active or most recent run.
// A record from another operational day is evicted when read.
type RunSessionStore struct {
	store replicated
	day   OperationalDay
	now   func() time.Time
}

// NewRunSessionStore creates a store over backends in priority order
func NewRunSessionStore(backends []Backend, day OperationalDay, now func() time.Time) *RunSessionStore {
	if now == nil {
		now = time.Now
	}
	return &RunSessionStore{
		store: replicated{name: "run-session", backends: backends},
		day:   day,
		now:   now,
	}
}

// Read returns the current operational day's record, or nil
func (s *RunSessionStore) Read() *models.RunSessionRecord {
	for i, b := range s.store.backends {
		value, ok := s.store.get(b, RunSessionKey)
		if !ok {
			continue
		}

		record, ok := decodeRunSession(value)
		if !ok {
			log.Printf("⚠️  [run-session] invalid record in %s backend, ignoring", b.Name)
			continue
		}

		started, ok := ParseTimestamp(record.StartedAt)
		if !ok || !s.day.Same(started, s.now()) {
			log.Printf("🗑️  [run-session] evicting stale record (started %q)", record.StartedAt)
			s.Clear()
			return nil
		}

		if i > 0 {
			if data, err := json.Marshal(record); err == nil {
				s.store.backfill(RunSessionKey, string(data), i)
			}
		}
		return record
	}
	return nil
}

// Write stores the record in every backend. Negative counters become 0.
func (s *RunSessionStore) Write(record models.RunSessionRecord) bool {
	record = sanitizeRunSession(record)
	data, err := json.Marshal(record)
	if err != nil {
		log.Printf("⚠️  [run-session] failed to encode record: %v", err)
		return false
	}
	return s.store.setAll(RunSessionKey, string(data)) > 0
}

// Clear removes the record from every backend
func (s *RunSessionStore) Clear() {
	s.store.removeAll(RunSessionKey)
}

func sanitizeRunSession(record models.RunSessionRecord) models.RunSessionRecord {
	if record.TotalJobs < 0 {
		record.TotalJobs = 0
	}
	if record.CompletedJobs < 0 {
		record.CompletedJobs = 0
	}
	if record.EndedAt != nil && *record.EndedAt == "" {
		record.EndedAt = nil
	}
	return record
}

func decodeRunSession(value string) (*models.RunSessionRecord, bool) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(value), &raw); err != nil || raw == nil {
		return nil, false
	}

	record := &models.RunSessionRecord{
		EndedAt: nullableString(raw["endedAt"]),
	}
	if started, ok := asString(raw["startedAt"]); ok {
		record.StartedAt = started
	}
	record.TotalJobs = counter(raw["totalJobs"])
	record.CompletedJobs = counter(raw["completedJobs"])
	return record, true
}

func counter(v interface{}) int {
	f, ok := parseNumber(v)
	if !ok || f < 0 {
		return 0
	}
	if f > 1e9 {
		return 1e9
	}
	return int(f)
}
