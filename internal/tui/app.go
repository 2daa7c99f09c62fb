package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mkarlsen/stint/internal/backup"
	"github.com/mkarlsen/stint/internal/export"
	"github.com/mkarlsen/stint/internal/store"
	"github.com/mkarlsen/stint/internal/timeclock"
)

// App is the root Bubble Tea model.
type App struct {
	store   *store.Store
	clock   *timeclock.Clock
	manager *backup.Manager
	dbPath  string
	width   int
	height  int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	projects  projectsModel
	report    reportModel
	backups   backupModel
	settings  settingsModel

	help   help.Model
	status string
}

func NewApp(s *store.Store, dbPath string, manager *backup.Manager) App {
	h := help.New()
	h.ShowAll = false

	clock := timeclock.New(s)
	manager.SetCheckpoint(s.Checkpoint)

	return App{
		store:      s,
		clock:      clock,
		manager:    manager,
		dbPath:     dbPath,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(s, clock),
		projects:   newProjectsModel(s),
		report:     newReportModel(s),
		backups:    newBackupModel(manager),
		settings:   newSettingsModel(s),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.Init(),
		a.backups.refresh(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.projects.setSize(a.width, contentHeight)
		a.report.setSize(a.width, contentHeight)
		a.backups.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isCapturing() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewDashboard
			return a, a.dashboard.loadData()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewProjects
			return a, a.projects.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewReport
			return a, a.report.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewBackup
			return a, a.backups.refresh()
		case key.Matches(msg, keys.Tab5):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % 5
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		return a, tea.Batch(tickCmd(), cmd)

	case statusMsg:
		a.status = msg.text
		return a, nil

	case clockedInMsg:
		a.status = "Clocked in"
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		return a, cmd

	case clockedOutMsg:
		a.status = "Clocked out"
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		return a, cmd

	case projectRemovedMsg:
		a.status = "Removed " + msg.name
		var cmd tea.Cmd
		a.projects, cmd = a.projects.update(msg)
		return a, tea.Batch(cmd, a.dashboard.loadData())

	case openReportMsg:
		a.activeView = viewReport
		var cmd tea.Cmd
		a.report, cmd = a.report.open(msg.project)
		return a, cmd

	case backupOutcomeMsg:
		a.status = outcomeStatus(msg).text
		var cmd tea.Cmd
		a.backups, cmd = a.backups.update(msg)
		if msg.err == nil && msg.op == backup.RestoreOperation {
			// The live database was replaced underneath the store;
			// reopen it before anything reads through the old handle.
			return a, tea.Batch(cmd, a.reopenStore())
		}
		return a, cmd

	case storeReopenedMsg:
		if msg.err != nil {
			a.status = fmt.Sprintf("Unable to reopen database: %v", msg.err)
			return a, nil
		}
		a.attachStore(msg.store)
		return a, tea.Batch(a.dashboard.loadData(), a.refreshCurrentView())

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

// reopenStore closes the store and opens a fresh one against the restored
// database file.
func (a App) reopenStore() tea.Cmd {
	old := a.store
	dbPath := a.dbPath
	return func() tea.Msg {
		old.Close()
		s, err := store.New(dbPath)
		return storeReopenedMsg{store: s, err: err}
	}
}

// attachStore rebuilds the store-bound models around a fresh store handle,
// keeping view sizes and the active tab.
func (a *App) attachStore(s *store.Store) {
	a.store = s
	a.clock = timeclock.New(s)
	a.manager.SetCheckpoint(s.Checkpoint)

	contentHeight := a.height - 4
	a.dashboard = newDashboardModel(s, a.clock)
	a.projects = newProjectsModel(s)
	a.report = newReportModel(s)
	a.settings = newSettingsModel(s)
	a.dashboard.setSize(a.width, contentHeight)
	a.projects.setSize(a.width, contentHeight)
	a.report.setSize(a.width, contentHeight)
	a.settings.setSize(a.width, contentHeight)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewProjects:
		a.projects, cmd = a.projects.update(msg)
	case viewReport:
		a.report, cmd = a.report.update(msg)
	case viewBackup:
		a.backups, cmd = a.backups.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

// isCapturing reports whether the active view wants raw key input.
func (a App) isCapturing() bool {
	switch a.activeView {
	case viewProjects:
		return a.projects.formActive || a.projects.confirmingRemove
	case viewReport:
		return a.report.confirmingRemove
	case viewSettings:
		return a.settings.formActive
	case viewBackup:
		return a.backups.confirming
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.loadData()
	case viewProjects:
		return a.projects.refresh()
	case viewReport:
		return a.report.refresh()
	case viewBackup:
		return a.backups.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewProjects:
		content = a.projects.view()
	case viewReport:
		content = a.report.view()
	case viewBackup:
		content = a.backups.view()
	case viewSettings:
		content = a.settings.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	// Show export picker overlay
	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("stint")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		status = mutedStyle.Render(" " + a.status)
	}

	// Active session indicator in footer
	clockInfo := ""
	if in, ok := a.dashboard.anyActive(); ok {
		elapsed := a.dashboard.now.Sub(in.StartTime())
		clockInfo = successStyle.Render(" ● " + formatElapsed(elapsed))
	}

	left := footerStyle.Render(helpView)
	right := clockInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	formats := []string{"CSV", "JSON"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	return func() tea.Msg {
		intervals, err := a.store.ListAllIntervals()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		// Build project lookup
		projects := make(map[int64]*store.Project)
		plist, _ := a.store.ListProjects()
		for i := range plist {
			projects[plist[i].ID] = &plist[i]
		}

		home, _ := os.UserHomeDir()
		dateStr := time.Now().Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(home, fmt.Sprintf("stint-export-%s.csv", dateStr))
			if err := export.ToCSV(intervals, projects, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(home, fmt.Sprintf("stint-export-%s.json", dateStr))
			if err := export.ToJSON(intervals, projects, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}
