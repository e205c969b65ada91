package usage

import "github.com/kailas-cloud/boost/internal/domain/quota"

// Window is the state of one quota counter.
type Window struct {
	current   int64
	limit     int64
	remaining int64
}

// NewWindow creates a Window. Remaining is derived and never negative.
func NewWindow(current, limit int64) Window {
	return Window{
		current:   current,
		limit:     limit,
		remaining: quota.Remaining(current, limit),
	}
}

// Current returns the counter value.
func (w Window) Current() int64 { return w.current }

// Limit returns the cap.
func (w Window) Limit() int64 { return w.limit }

// Remaining returns what is left before the cap.
func (w Window) Remaining() int64 { return w.remaining }

// IsExhausted reports whether the cap is reached.
func (w Window) IsExhausted() bool { return w.remaining == 0 }

// Report is a read-only usage snapshot for one client.
type Report struct {
	client        string
	dailyRequests Window
	monthlyTokens Window
}

// NewReport creates a usage report.
func NewReport(client string, daily, monthly Window) Report {
	return Report{
		client:        client,
		dailyRequests: daily,
		monthlyTokens: monthly,
	}
}

// Client returns the identity the report was built for.
func (r *Report) Client() string { return r.client }

// DailyRequests returns the client's request window for today.
func (r *Report) DailyRequests() Window { return r.dailyRequests }

// MonthlyTokens returns the global token window for this month.
func (r *Report) MonthlyTokens() Window { return r.monthlyTokens }
