package runstate

import "binbird-backend/internal/models"

// IsRunSessionActive reports whether a session looks like a run in
// progress. An endedAt that does not parse counts as not ended.
func IsRunSessionActive(session *models.RunSessionRecord) bool {
	if session == nil || session.StartedAt == "" {
		return false
	}
	if session.EndedAt == nil {
		return true
	}
	_, ok := ParseTimestamp(*session.EndedAt)
	return !ok
}

// DeriveRunMenuState combines the plan and the session into the menu flags.
// ShowEndRun and LockNavigation always move together.
func DeriveRunMenuState(plan *models.PlannedRunPayload, session *models.RunSessionRecord) models.RunMenuState {
	hasPlan := plan != nil && len(plan.Jobs) > 0
	inProgress := (hasPlan && plan.HasStarted) || IsRunSessionActive(session)

	return models.RunMenuState{
		HasPlannedRun:  hasPlan,
		ShowEndRun:     inProgress,
		LockNavigation: inProgress,
	}
}
