package runstate

import (
	"time"

	"binbird-backend/internal/models"
)

// Repository is everything the run lifecycle needs from persisted run state
type Repository interface {
	ReadPlannedRun() *models.PlannedRunPayload
	WritePlannedRun(p models.PlannedRunPayload) bool
	ClearPlannedRun()
	MarkPlannedRunStarted() bool

	ReadRunSession() *models.RunSessionRecord
	WriteRunSession(r models.RunSessionRecord) bool
	ClearRunSession()
}

// StoreRepository backs a Repository with a PlannedRunStore and a
// RunSessionStore sharing the same backends and clock
type StoreRepository struct {
	Planned *PlannedRunStore
	Session *RunSessionStore
}

// NewRepository creates both stores over the same backends
func NewRepository(backends []Backend, cookie FlagCookie, day OperationalDay, now func() time.Time) *StoreRepository {
	return &StoreRepository{
		Planned: NewPlannedRunStore(backends, cookie, now),
		Session: NewRunSessionStore(backends, day, now),
	}
}

func (r *StoreRepository) ReadPlannedRun() *models.PlannedRunPayload { return r.Planned.Read() }

func (r *StoreRepository) WritePlannedRun(p models.PlannedRunPayload) bool {
	return r.Planned.Write(p)
}

func (r *StoreRepository) ClearPlannedRun() { r.Planned.Clear() }

func (r *StoreRepository) MarkPlannedRunStarted() bool { return r.Planned.MarkStarted() }

func (r *StoreRepository) ReadRunSession() *models.RunSessionRecord { return r.Session.Read() }

func (r *StoreRepository) WriteRunSession(rec models.RunSessionRecord) bool {
	return r.Session.Write(rec)
}

func (r *StoreRepository) ClearRunSession() { r.Session.Clear() }
