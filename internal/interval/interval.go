package interval

import "time"

// TimeInterval is one clocked span of work for a project. Stop is zero while
// the interval is still open.
type TimeInterval struct {
	ID         int64
	ProjectID  int64
	Start      int64 // epoch milliseconds
	Stop       int64 // epoch milliseconds, 0 = open
	Registered bool
}

// IsActive reports whether the interval has not been clocked out yet.
func (t TimeInterval) IsActive() bool {
	return t.Stop == 0
}

// Millis returns the closed interval's length in milliseconds. Open intervals
// count as zero; live elapsed time is computed by the caller, not here.
func (t TimeInterval) Millis() int64 {
	if t.IsActive() {
		return 0
	}
	return t.Stop - t.Start
}

// StartTime returns the start as a local time.Time.
func (t TimeInterval) StartTime() time.Time {
	return time.UnixMilli(t.Start).Local()
}

// StopTime returns the stop as a local time.Time. Only meaningful for closed
// intervals.
func (t TimeInterval) StopTime() time.Time {
	return time.UnixMilli(t.Stop).Local()
}

// Day returns the interval's calendar day (local midnight), the key used when
// grouping intervals into day reports.
func (t TimeInterval) Day() time.Time {
	s := t.StartTime()
	return time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
}
