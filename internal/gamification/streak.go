package gamification

import (
	"time"

	"github.com/skillforge/backend/internal/models"
)

// CalendarDaysBetween counts whole calendar days from a to b in b's location.
// Negative when a is after b.
func CalendarDaysBetween(a, b time.Time) int {
	loc := b.Location()
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// EvaluateStreak computes the streak as of now from the stored last activity.
// It only reads state; the caller persists the returned value.
func EvaluateStreak(lastActivityAt *time.Time, currentStreak int, now time.Time) models.StreakResult {
	if lastActivityAt == nil {
		return models.StreakResult{}
	}

	days := CalendarDaysBetween(*lastActivityAt, now)

	switch {
	case days <= 0:
		// Same day, or a last activity stamped in the future.
		d := 0
		return models.StreakResult{CurrentStreak: currentStreak, IsActive: true, DaysSinceLast: &d}
	case days == 1:
		return models.StreakResult{CurrentStreak: currentStreak + 1, IsActive: true, DaysSinceLast: &days}
	default:
		return models.StreakResult{CurrentStreak: 0, StreakBroken: true, DaysSinceLast: &days}
	}
}
