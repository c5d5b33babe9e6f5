package stats

import (
	"time"

	"github.com/pkg/errors"
)

// Bonus tiers (currency units), professors only. Exactly 100% on-time is
// its own tier.
const (
	bonusFullRate     = 100000
	bonusHighRate     = 30000
	highRateThreshold = 90.0
)

// Periods
const (
	PeriodTrimester = "trimester"
	PeriodYear      = "year"
)

var errInvalidPeriod = errors.New("invalid period; use 'trimester' or 'year'")

// TaskStatistics is a derived, recomputable snapshot of a user's task
// completion over a period. Unique per (user, period_start, period_end);
// always regenerated from task rows, never edited directly.
type TaskStatistics struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	TotalTasks      int       `json:"total_tasks"`
	CompletedTasks  int       `json:"completed_tasks"`
	CompletedOnTime int       `json:"completed_on_time"`
	CompletionRate  float64   `json:"completion_rate"`
	OnTimeRate      float64   `json:"on_time_rate"`
	BonusAmount     int       `json:"bonus_amount"`
}

// PeriodFromPreset resolves the named period preset to [start, now].
func PeriodFromPreset(preset string, now time.Time) (start, end time.Time, err error) {
	end = now
	switch preset {
	case PeriodTrimester:
		month := time.Month((int(now.Month())-1)/3*3 + 1)
		start = time.Date(now.Year(), month, 1, 0, 0, 0, 0, now.Location())
	case PeriodYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		err = errInvalidPeriod
	}
	return start, end, err
}

// PreviousMonth returns the first and last day of the month preceding now.
func PreviousMonth(now time.Time) (start, end time.Time) {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end = firstOfMonth.AddDate(0, 0, -1)
	start = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
	return start, end
}
