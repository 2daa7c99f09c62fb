package store

import "time"

type Project struct {
	ID        int64
	Name      string
	Color     string
	CreatedAt time.Time
}

type Setting struct {
	Key   string
	Value string
}

// Setting keys.
const (
	SettingTimeSummaryFormat = "time_summary_format"
	SettingHideRegistered    = "hide_registered_time"
)
