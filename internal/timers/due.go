package timers

import (
	"time"

	"github.com/chxlky/trello-timers/internal/config"
)

// IsDue reports whether due is set and not after now. A card without a due
// date never becomes due on its own.
func IsDue(due *time.Time, now time.Time) bool {
	return due != nil && !due.After(now)
}

// NextDue returns the instant cadenceDays local calendar days after now's
// local date, at tod in loc, in UTC. The result is always after now.
func NextDue(now time.Time, cadenceDays int, tod config.TimeOfDay, loc *time.Location) time.Time {
	return NextDueFrom(now, now, cadenceDays, tod, loc)
}

// NextDueFrom is NextDue counted from anchor's local date instead of now's.
// Whole cadences are added until the result is strictly after now.
func NextDueFrom(anchor, now time.Time, cadenceDays int, tod config.TimeOfDay, loc *time.Location) time.Time {
	if cadenceDays < 1 {
		cadenceDays = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	local := anchor.In(loc)
	y, m, d := local.Date()

	for step := 1; ; step++ {
		// time.Date normalises day overflow and resolves DST gaps in loc.
		next := time.Date(y, m, d+step*cadenceDays, tod.Hour, tod.Minute, 0, 0, loc)
		if next.After(now) {
			return next.UTC()
		}
	}
}
