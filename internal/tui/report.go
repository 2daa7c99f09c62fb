package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mkarlsen/stint/internal/report"
	"github.com/mkarlsen/stint/internal/store"
	"github.com/mkarlsen/stint/internal/timecalc"
)

type reportModel struct {
	store  *store.Store
	width  int
	height int

	project    *store.Project
	groups     []report.Group
	hasMore    bool
	cursor     int
	itemCursor int
	mode       timecalc.Mode
	hideReg    bool

	confirmingRemove bool

	// seq identifies the in-flight fetch; pages from older fetches are
	// discarded instead of applied.
	seq int

	chart barchart.Model
}

func newReportModel(s *store.Store) reportModel {
	return reportModel{
		store: s,
		chart: barchart.New(60, 10),
	}
}

func (r *reportModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

// open switches the report to a project and fetches the first page.
func (r reportModel) open(project store.Project) (reportModel, tea.Cmd) {
	r.project = &project
	r.groups = nil
	r.hasMore = false
	r.cursor = 0
	r.itemCursor = 0
	r.confirmingRemove = false
	r.seq++
	return r, r.fetch(0, false)
}

func (r reportModel) refresh() tea.Cmd {
	if r.project == nil {
		return nil
	}
	return r.fetch(0, false)
}

// fetch loads one page of day groups starting at the given group offset.
func (r reportModel) fetch(offset int, append_ bool) tea.Cmd {
	if r.project == nil {
		return nil
	}
	projectID := r.project.ID
	seq := r.seq
	s := r.store
	return func() tea.Msg {
		hideReg, _ := s.HideRegistered()
		modeValue, _ := s.TimeSummaryFormat()

		intervals, err := s.ListIntervals(projectID, hideReg)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Unable to load time report: %v", err), isError: true}
		}

		groups, hasMore := report.Paginate(intervals, offset)
		return reportDataMsg{
			seq:     seq,
			append_: append_,
			groups:  groups,
			hasMore: hasMore,
			mode:    summaryMode(modeValue),
		}
	}
}

func (r reportModel) update(msg tea.Msg) (reportModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportDataMsg:
		if msg.seq != r.seq {
			// A stale page from before the project switched; drop it.
			return r, nil
		}
		if msg.append_ {
			r.groups = append(r.groups, msg.groups...)
		} else {
			r.groups = msg.groups
		}
		r.hasMore = msg.hasMore
		r.mode = msg.mode
		if r.cursor >= len(r.groups) {
			r.cursor = max(0, len(r.groups)-1)
		}
		if len(r.groups) > 0 && r.itemCursor >= len(r.groups[r.cursor].Items) {
			r.itemCursor = max(0, len(r.groups[r.cursor].Items)-1)
		}
		r.buildChart()
		return r, nil

	case registerDoneMsg, removeDoneMsg:
		return r, r.reload()

	case tea.KeyMsg:
		if r.confirmingRemove {
			return r.updateConfirmRemove(msg)
		}

		switch {
		case key.Matches(msg, keys.Up):
			if r.cursor > 0 {
				r.cursor--
				r.itemCursor = 0
			}
		case key.Matches(msg, keys.Down):
			if r.cursor < len(r.groups)-1 {
				r.cursor++
				r.itemCursor = 0
			}
		case key.Matches(msg, keys.Left):
			if r.itemCursor > 0 {
				r.itemCursor--
			}
		case key.Matches(msg, keys.Right):
			if len(r.groups) > 0 && r.itemCursor < len(r.groups[r.cursor].Items)-1 {
				r.itemCursor++
			}
		case key.Matches(msg, keys.More):
			if r.hasMore {
				return r, r.fetch(len(r.groups), true)
			}
		case key.Matches(msg, keys.Register):
			if len(r.groups) > 0 {
				return r, r.toggleRegistered(r.groups[r.cursor])
			}
		case key.Matches(msg, keys.Delete):
			if len(r.groups) > 0 && len(r.groups[r.cursor].Items) > 0 {
				r.confirmingRemove = true
			}
		}
	}
	return r, nil
}

func (r reportModel) updateConfirmRemove(msg tea.KeyMsg) (reportModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Enter):
		r.confirmingRemove = false
		item := r.groups[r.cursor].Items[r.itemCursor]
		return r, r.removeItem(item)
	case key.Matches(msg, keys.Back):
		r.confirmingRemove = false
	}
	return r, nil
}

// removeItem deletes one interval from the day group.
func (r reportModel) removeItem(item report.Item) tea.Cmd {
	s := r.store
	return func() tea.Msg {
		if err := s.RemoveInterval(item.Interval.ID); err != nil {
			return statusMsg{text: fmt.Sprintf("Remove failed: %v", err), isError: true}
		}
		return removeDoneMsg{}
	}
}

// reload refetches every page currently shown, keeping the scroll position.
func (r reportModel) reload() tea.Cmd {
	if r.project == nil {
		return nil
	}
	shown := len(r.groups)
	if shown == 0 {
		return r.fetch(0, false)
	}
	projectID := r.project.ID
	seq := r.seq
	s := r.store
	return func() tea.Msg {
		hideReg, _ := s.HideRegistered()
		modeValue, _ := s.TimeSummaryFormat()

		intervals, err := s.ListIntervals(projectID, hideReg)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Unable to load time report: %v", err), isError: true}
		}

		var all []report.Group
		offset := 0
		hasMore := true
		for hasMore && offset < shown {
			var page []report.Group
			page, hasMore = report.Paginate(intervals, offset)
			if len(page) == 0 {
				break
			}
			all = append(all, page...)
			offset += len(page)
		}
		return reportDataMsg{seq: seq, groups: all, hasMore: hasMore, mode: summaryMode(modeValue)}
	}
}

// toggleRegistered flips the registered flag on every closed interval in the
// day group.
func (r reportModel) toggleRegistered(g report.Group) tea.Cmd {
	target := !g.Registered()
	s := r.store
	return func() tea.Msg {
		for _, item := range g.Items {
			in := item.Interval
			if in.IsActive() || in.Registered == target {
				continue
			}
			if _, err := s.MarkRegistered(in.ID, target); err != nil {
				return statusMsg{text: fmt.Sprintf("Register failed: %v", err), isError: true}
			}
		}
		return registerDoneMsg{}
	}
}

func (r *reportModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	r.chart = barchart.New(chartWidth, 10)

	// Chart the loaded page, oldest day first.
	var bars []barchart.BarData
	for i := len(r.groups) - 1; i >= 0; i-- {
		g := r.groups[i]
		hm := g.HoursMinutes()
		hours := float64(hm.Hours) + float64(hm.Minutes)/60

		style := lipgloss.NewStyle().Foreground(colorPrimary)
		if g.Registered() {
			style = lipgloss.NewStyle().Foreground(colorSuccess)
		}

		bars = append(bars, barchart.BarData{
			Label: g.Date.Format("02"),
			Values: []barchart.BarValue{
				{Name: g.Date.Format("Jan 02"), Value: hours, Style: style},
			},
		})
	}
	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportModel) view() string {
	w := r.width - 4

	if r.project == nil {
		content := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Time Report"),
			"",
			mutedStyle.Render("Select a project on the Dashboard and press enter."),
		)
		return panelStyle.Width(w).Render(content)
	}

	colorDot := lipgloss.NewStyle().Foreground(lipgloss.Color(r.project.Color)).Render("●")
	title := titleStyle.Render(fmt.Sprintf("%s %s - Time Report", colorDot, r.project.Name))

	if len(r.groups) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No time registered for this project."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, r.chart.View())
	rows = append(rows, "")

	for i, g := range r.groups {
		cursor := "  "
		style := normalItemStyle
		if i == r.cursor {
			cursor = "> "
			style = selectedItemStyle
		}

		registered := " "
		if g.Registered() {
			registered = successStyle.Render("✓")
		}

		day := g.Date.Format("Mon Jan 02, 2006")
		summary := highlightStyle.Render(g.SummaryWithDifference())
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %-20s", cursor, registered, day))+summary)

		if i == r.cursor {
			for j, item := range g.Items {
				row := r.renderItem(item, j == r.itemCursor)
				if r.confirmingRemove && j == r.itemCursor {
					row += errorStyle.Render("  remove? enter: yes  esc: no")
				}
				rows = append(rows, row)
			}
		}
	}

	rows = append(rows, "")
	hint := "  r: register day  h/l: item  d: remove item  enter: back"
	if r.hasMore {
		hint = "  m: load more" + hint
	}
	rows = append(rows, mutedStyle.Render(hint))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (r reportModel) renderItem(item report.Item, selected bool) string {
	in := item.Interval

	span := fmt.Sprintf("%s - ...", in.StartTime().Format("15:04"))
	duration := warningStyle.Render("active")
	if !in.IsActive() {
		span = fmt.Sprintf("%s - %s", in.StartTime().Format("15:04"), in.StopTime().Format("15:04"))
		duration = mutedStyle.Render(item.Duration(r.mode))
	}

	registered := " "
	if in.Registered {
		registered = successStyle.Render("✓")
	}

	marker := "    "
	if selected {
		marker = "  > "
	}

	return mutedStyle.Render(fmt.Sprintf("  %s%s %-16s", marker, registered, span)) + duration
}
