package quota

import (
	"fmt"
	"time"
)

// Key formats are shared with counters already persisted in the store and must not change.

// DailyKey returns the per-client request counter key for the calendar day of t.
func DailyKey(client string, t time.Time) string {
	return fmt.Sprintf("daily:%s:%s", client, t.Format("2006-01-02"))
}

// MonthlyKey returns the global token counter key for the month of t.
// The month is not zero-padded.
func MonthlyKey(t time.Time) string {
	return fmt.Sprintf("monthly_tokens:%d:%d", t.Year(), int(t.Month()))
}
