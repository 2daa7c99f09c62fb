package report

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/mkarlsen/stint/internal/interval"
	"github.com/mkarlsen/stint/internal/timecalc"
)

// PageSize is the number of day groups returned per report page.
const PageSize = 10

// baselineHours is the working-day length a group summary is compared
// against.
const baselineHours = 8

// Item wraps one interval for display inside a day group.
type Item struct {
	Interval interval.TimeInterval
}

// HoursMinutes returns the item's rounded duration. Open intervals count as
// zero; live elapsed time is rendered elsewhere.
func (i Item) HoursMinutes() timecalc.HoursMinutes {
	hm, err := timecalc.Calculate(i.Interval.Millis())
	if err != nil {
		return timecalc.HoursMinutes{}
	}
	return hm
}

// Duration renders the item's duration in the given mode.
func (i Item) Duration(mode timecalc.Mode) string {
	return timecalc.Format(i.HoursMinutes(), mode)
}

// Group is one calendar day of a project's time report.
type Group struct {
	// Date is the day truncated to local midnight.
	Date  time.Time
	Items []Item
}

// Registered reports whether every member of the group is registered.
func (g Group) Registered() bool {
	for _, item := range g.Items {
		if !item.Interval.Registered {
			return false
		}
	}
	return true
}

// HoursMinutes sums the rounded durations of all members.
func (g Group) HoursMinutes() timecalc.HoursMinutes {
	values := make([]timecalc.HoursMinutes, 0, len(g.Items))
	for _, item := range g.Items {
		values = append(values, item.HoursMinutes())
	}
	return timecalc.Accumulated(values)
}

// Summary renders the group total in the given mode.
func (g Group) Summary(mode timecalc.Mode) string {
	return timecalc.Format(g.HoursMinutes(), mode)
}

// SummaryWithDifference renders the group total as fraction-of-hours with a
// signed delta against an eight hour day appended, e.g. "9.50 (+1.50)".
// The delta is computed on the rounded displayed value, so the suffix always
// agrees with the number shown next to it.
func (g Group) SummaryWithDifference() string {
	summary := g.Summary(timecalc.ModeFractionHours)

	value, err := strconv.ParseFloat(summary, 64)
	if err != nil {
		return summary
	}

	difference := value - baselineHours
	switch {
	case difference == 0:
		return summary
	case difference > 0:
		return summary + fmt.Sprintf(" (+%.2f)", difference)
	default:
		return summary + fmt.Sprintf(" (%.2f)", difference)
	}
}

// Paginate buckets intervals into day groups and returns the page starting at
// offset, measured in groups. Intervals are expected in descending start
// order, which keeps the day groups reverse-chronological without re-sorting.
// The second return reports whether more groups may remain after this page.
func Paginate(intervals []interval.TimeInterval, offset int) ([]Group, bool) {
	groups := groupByDay(intervals)

	if offset < 0 {
		offset = 0
	}
	if offset >= len(groups) {
		return nil, false
	}

	end := offset + PageSize
	if end > len(groups) {
		end = len(groups)
	}
	return groups[offset:end], end < len(groups)
}

func groupByDay(intervals []interval.TimeInterval) []Group {
	var groups []Group
	index := make(map[time.Time]int)
	seen := make(map[memberKey]bool)

	for _, in := range intervals {
		key := memberKey{id: in.ID, start: in.Start}
		if seen[key] {
			continue
		}
		seen[key] = true

		day := in.Day()
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, Group{Date: day})
		}
		groups[i].Items = append(groups[i].Items, Item{Interval: in})
	}

	for i := range groups {
		sortItems(groups[i].Items)
	}
	return groups
}

// memberKey identifies a group member: interval identity plus start time,
// so an interval appearing twice in the input is only counted once.
type memberKey struct {
	id    int64
	start int64
}

// sortItems orders members with the later start first, ties broken by
// ascending id.
func sortItems(items []Item) {
	sort.SliceStable(items, func(a, b int) bool {
		ia, ib := items[a].Interval, items[b].Interval
		if ia.Start != ib.Start {
			return ia.Start > ib.Start
		}
		return ia.ID < ib.ID
	})
}
