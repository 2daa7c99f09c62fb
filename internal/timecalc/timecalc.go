package timecalc

import (
	"errors"
	"fmt"
)

const (
	minutesInHour   = 60
	secondsInMinute = 60
	millisInSecond  = 1000
	millisInMinute  = millisInSecond * secondsInMinute
	millisInHour    = millisInMinute * minutesInHour
)

// ErrNegativeDuration is returned when asked to break down a negative
// duration. A correctly functioning clock never produces one.
var ErrNegativeDuration = errors.New("duration is negative")

// HoursMinutes is a duration broken down into whole hours and minutes, with
// the seconds remainder already rounded into the minutes.
type HoursMinutes struct {
	Hours   int64
	Minutes int64
}

// Calculate decomposes a duration in milliseconds into hours and minutes.
// A seconds remainder of thirty or more rounds the minute up, carrying into
// the hour at sixty.
func Calculate(ms int64) (HoursMinutes, error) {
	if ms < 0 {
		return HoursMinutes{}, ErrNegativeDuration
	}

	seconds := ms / millisInSecond
	hours := seconds / (secondsInMinute * minutesInHour)
	minutes := seconds / secondsInMinute % minutesInHour
	if seconds%secondsInMinute >= 30 {
		minutes++
	}

	if minutes >= minutesInHour {
		return HoursMinutes{Hours: hours + 1, Minutes: 0}, nil
	}
	return HoursMinutes{Hours: hours, Minutes: minutes}, nil
}

// Millis reconstructs the rounded duration in milliseconds.
func (hm HoursMinutes) Millis() int64 {
	return hm.Hours*millisInHour + hm.Minutes*millisInMinute
}

// Add sums two breakdowns, carrying overflowing minutes into the hours.
func (hm HoursMinutes) Add(other HoursMinutes) HoursMinutes {
	hours := hm.Hours + other.Hours
	minutes := hm.Minutes + other.Minutes
	if minutes >= minutesInHour {
		hours += minutes / minutesInHour
		minutes %= minutesInHour
	}
	return HoursMinutes{Hours: hours, Minutes: minutes}
}

// Accumulated folds a collection of breakdowns into one.
func Accumulated(values []HoursMinutes) HoursMinutes {
	var acc HoursMinutes
	for _, v := range values {
		acc = acc.Add(v)
	}
	return acc
}

// Mode selects how a duration is rendered.
type Mode int

const (
	// ModeClock renders "H:MM", two-digit minutes, no leading zero on hours.
	ModeClock Mode = iota
	// ModeFractionHours renders hours plus minutes as a decimal fraction of
	// an hour to two places, e.g. 1h30m -> "1.50".
	ModeFractionHours
)

// Format renders a breakdown in the given mode.
func Format(hm HoursMinutes, mode Mode) string {
	if mode == ModeFractionHours {
		return fmt.Sprintf("%.2f", float64(hm.Hours)+float64(hm.Minutes)/minutesInHour)
	}
	return fmt.Sprintf("%d:%02d", hm.Hours, hm.Minutes)
}
