package runstate

import (
	"encoding/json"
	"log"
	"time"

	"binbird-backend/internal/models"
)

// PlannedRunKey is the storage key of the planned run payload
const PlannedRunKey = "binbird-planned-run"

// PlannedRunStore persists the current run plan across every backend.
// Reads prefer the first backend holding a valid plan and back-fill the
// ones above it; writes go to all of them.
type PlannedRunStore struct {
	store  replicated
	cookie FlagCookie
	now    func() time.Time
}

// NewPlannedRunStore creates a store over backends in priority order
func NewPlannedRunStore(backends []Backend, cookie FlagCookie, now func() time.Time) *PlannedRunStore {
	if cookie == nil {
		cookie = NopFlagCookie{}
	}
	if now == nil {
		now = time.Now
	}
	return &PlannedRunStore{
		store:  replicated{name: "planned-run", backends: backends},
		cookie: cookie,
		now:    now,
	}
}

// Read returns the first valid plan found, or nil
func (s *PlannedRunStore) Read() *models.PlannedRunPayload {
	for i, b := range s.store.backends {
		value, ok := s.store.get(b, PlannedRunKey)
		if !ok {
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(value), &raw); err != nil {
			log.Printf("⚠️  [planned-run] corrupt payload in %s backend: %v", b.Name, err)
			continue
		}

		payload, ok := NormalizePlannedRun(raw, s.now())
		if !ok {
			log.Printf("⚠️  [planned-run] invalid payload in %s backend, ignoring", b.Name)
			continue
		}

		if i > 0 {
			if data, err := json.Marshal(payload); err == nil {
				s.store.backfill(PlannedRunKey, string(data), i)
			}
		}
		return payload
	}
	return nil
}

// Write normalizes and stores the plan everywhere. A plan without usable
// jobs or coordinates is not written. Returns true if at least one backend
// accepted the write.
func (s *PlannedRunStore) Write(p models.PlannedRunPayload) bool {
	payload, ok := NormalizePlannedRun(plannedRunToRaw(p), s.now())
	if !ok {
		log.Printf("⚠️  [planned-run] refusing to write plan without valid coordinates or jobs")
		return false
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️  [planned-run] failed to encode plan: %v", err)
		return false
	}

	if s.store.setAll(PlannedRunKey, string(data)) == 0 {
		return false
	}

	s.cookie.SetActive(payload.HasStarted)
	return true
}

// Clear removes the plan from every backend and drops the flag cookie
func (s *PlannedRunStore) Clear() {
	s.store.removeAll(PlannedRunKey)
	s.cookie.SetActive(false)
}

// MarkStarted flips hasStarted on the current plan, if there is one
func (s *PlannedRunStore) MarkStarted() bool {
	current := s.Read()
	if current == nil {
		return false
	}
	current.HasStarted = true
	return s.Write(*current)
}

// NormalizePlannedRun validates and canonicalizes a loosely-typed plan.
// It reports false when start/end are not finite coordinate pairs or when
// no usable job remains.
func NormalizePlannedRun(raw map[string]interface{}, now time.Time) (*models.PlannedRunPayload, bool) {
	if raw == nil {
		return nil, false
	}

	start, ok := parseCoordinates(raw["start"])
	if !ok {
		return nil, false
	}
	end, ok := parseCoordinates(raw["end"])
	if !ok {
		return nil, false
	}

	jobs := normalizePlanJobs(raw["jobs"])
	if len(jobs) == 0 {
		return nil, false
	}

	payload := &models.PlannedRunPayload{
		Start:        start,
		End:          end,
		Jobs:         jobs,
		StartAddress: nullableString(raw["startAddress"]),
		EndAddress:   nullableString(raw["endAddress"]),
		CreatedAt:    parseCreatedAt(raw["createdAt"], now),
	}

	if started, ok := raw["hasStarted"].(bool); ok {
		payload.HasStarted = started
	}

	idx, ok := parseNumber(raw["nextIdx"])
	if !ok {
		idx = 0
	}
	payload.NextIdx = clampIndex(idx, len(jobs))

	return payload, true
}

func parseCoordinates(v interface{}) (models.Coordinates, bool) {
	var lat, lng interface{}
	switch c := v.(type) {
	case models.Coordinates:
		lat, lng = c.Lat, c.Lng
	case *models.Coordinates:
		if c == nil {
			return models.Coordinates{}, false
		}
		lat, lng = c.Lat, c.Lng
	case map[string]interface{}:
		lat, lng = c["lat"], c["lng"]
	default:
		return models.Coordinates{}, false
	}

	latF, ok := asNumber(lat)
	if !ok {
		return models.Coordinates{}, false
	}
	lngF, ok := asNumber(lng)
	if !ok {
		return models.Coordinates{}, false
	}
	return models.Coordinates{Lat: latF, Lng: lngF}, true
}

func parseCreatedAt(v interface{}, now time.Time) time.Time {
	switch t := v.(type) {
	case time.Time:
		if !t.IsZero() {
			return t.UTC()
		}
	case string:
		if parsed, ok := ParseTimestamp(t); ok {
			return parsed.UTC()
		}
	}
	return now.UTC()
}

func plannedRunToRaw(p models.PlannedRunPayload) map[string]interface{} {
	jobs := make([]interface{}, 0, len(p.Jobs))
	for _, job := range p.Jobs {
		jobs = append(jobs, job.Raw())
	}

	raw := map[string]interface{}{
		"start":      p.Start,
		"end":        p.End,
		"jobs":       jobs,
		"hasStarted": p.HasStarted,
		"nextIdx":    p.NextIdx,
	}
	if p.StartAddress != nil {
		raw["startAddress"] = *p.StartAddress
	}
	if p.EndAddress != nil {
		raw["endAddress"] = *p.EndAddress
	}
	if !p.CreatedAt.IsZero() {
		raw["createdAt"] = p.CreatedAt
	}
	return raw
}
