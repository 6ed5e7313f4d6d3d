package runstate

import "time"

// OperationalDay maps wall-clock time onto the working day it belongs to.
// Anything before RolloverHour counts as the previous day, so a run that
// starts at 1am still belongs to "yesterday".
type OperationalDay struct {
	RolloverHour int
	Location     *time.Location
}

// NewOperationalDay clamps the rollover hour into 0-23. A nil location
// means time.Local.
func NewOperationalDay(rolloverHour int, loc *time.Location) OperationalDay {
	if rolloverHour < 0 {
		rolloverHour = 0
	}
	if rolloverHour > 23 {
		rolloverHour = 23
	}
	if loc == nil {
		loc = time.Local
	}
	return OperationalDay{RolloverHour: rolloverHour, Location: loc}
}

// Key returns the operational day of t as YYYY-MM-DD
func (d OperationalDay) Key(t time.Time) string {
	return d.day(t).Format("2006-01-02")
}

// Weekday returns the weekday of t's operational day
func (d OperationalDay) Weekday(t time.Time) time.Weekday {
	return d.day(t).Weekday()
}

func (d OperationalDay) day(t time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	if local.Hour() < d.RolloverHour {
		local = local.AddDate(0, 0, -1)
	}
	return local
}

// Same reports whether a and b fall on the same operational day
func (d OperationalDay) Same(a, b time.Time) bool {
	return d.Key(a) == d.Key(b)
}

// Start returns the instant t's operational day began
func (d OperationalDay) Start(t time.Time) time.Time {
	day := d.day(t)
	return time.Date(day.Year(), day.Month(), day.Day(), d.RolloverHour, 0, 0, 0, day.Location())
}
