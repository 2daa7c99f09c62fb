package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mkarlsen/stint/internal/interval"
	"github.com/mkarlsen/stint/internal/store"
	"github.com/mkarlsen/stint/internal/timeclock"
)

type dashboardModel struct {
	store  *store.Store
	clock  *timeclock.Clock
	width  int
	height int

	projects []store.Project
	active   map[int64]*interval.TimeInterval
	cursor   int
	now      time.Time
}

func newDashboardModel(s *store.Store, c *timeclock.Clock) dashboardModel {
	return dashboardModel{
		store:  s,
		clock:  c,
		active: make(map[int64]*interval.TimeInterval),
		now:    time.Now(),
	}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		projects, _ := d.store.ListProjects()

		active := make(map[int64]*interval.TimeInterval)
		for _, p := range projects {
			if in, err := d.store.ActiveInterval(p.ID); err == nil && in != nil {
				active[p.ID] = in
			}
		}

		return projectsDataMsg{projects: projects, active: active}
	}
}

// anyActive reports whether some project is clocked in, for the footer
// indicator.
func (d dashboardModel) anyActive() (*interval.TimeInterval, bool) {
	for _, in := range d.active {
		return in, true
	}
	return nil, false
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case projectsDataMsg:
		d.projects = msg.projects
		d.active = msg.active
		if d.cursor >= len(d.projects) {
			d.cursor = max(0, len(d.projects)-1)
		}
		return d, nil

	case tickMsg:
		d.now = time.Time(msg)
		return d, nil

	case clockedInMsg, clockedOutMsg:
		return d, d.loadData()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if d.cursor > 0 {
				d.cursor--
			}
		case key.Matches(msg, keys.Down):
			if d.cursor < len(d.projects)-1 {
				d.cursor++
			}
		case key.Matches(msg, keys.ClockIn):
			if len(d.projects) > 0 {
				return d, d.clockIn(d.projects[d.cursor].ID)
			}
		case key.Matches(msg, keys.ClockOut):
			if len(d.projects) > 0 {
				return d, d.clockOut(d.projects[d.cursor].ID)
			}
		case key.Matches(msg, keys.Enter):
			if len(d.projects) > 0 {
				project := d.projects[d.cursor]
				return d, func() tea.Msg { return openReportMsg{project: project} }
			}
		}
	}
	return d, nil
}

func (d dashboardModel) clockIn(projectID int64) tea.Cmd {
	return func() tea.Msg {
		in, err := d.clock.ClockIn(projectID, time.Now().UnixMilli())
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Clock in failed: %v", err), isError: true}
		}
		return clockedInMsg{in: in}
	}
}

func (d dashboardModel) clockOut(projectID int64) tea.Cmd {
	return func() tea.Msg {
		in, err := d.clock.ClockOut(projectID, time.Now().UnixMilli())
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Clock out failed: %v", err), isError: true}
		}
		return clockedOutMsg{in: in}
	}
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	w := d.width - 4

	title := titleStyle.Render("Projects")
	if len(d.projects) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No projects yet. Press 2 to go to Projects and create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for i, p := range d.projects {
		colorDot := lipgloss.NewStyle().Foreground(lipgloss.Color(p.Color)).Render("●")
		cursor := "  "
		style := normalItemStyle
		if i == d.cursor {
			cursor = "> "
			style = selectedItemStyle
		}

		state := mutedStyle.Render("inactive")
		if in, ok := d.active[p.ID]; ok {
			elapsed := d.now.Sub(in.StartTime())
			state = successStyle.Render(fmt.Sprintf("● since %s  %s",
				in.StartTime().Format("15:04"), formatElapsed(elapsed)))
		}

		rows = append(rows, style.Render(fmt.Sprintf("%s%s %-24s", cursor, colorDot, p.Name))+state)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  i: clock in  o: clock out  enter: report"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
