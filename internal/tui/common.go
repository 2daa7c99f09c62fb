package tui

import (
	"fmt"
	"time"

	"github.com/mkarlsen/stint/internal/backup"
	"github.com/mkarlsen/stint/internal/interval"
	"github.com/mkarlsen/stint/internal/report"
	"github.com/mkarlsen/stint/internal/store"
	"github.com/mkarlsen/stint/internal/timecalc"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewProjects
	viewReport
	viewBackup
	viewSettings
)

var viewNames = []string{"Dashboard", "Projects", "Report", "Backup", "Settings"}

// --- Messages ---

type clockedInMsg struct {
	in *interval.TimeInterval
}

type clockedOutMsg struct {
	in *interval.TimeInterval
}

type projectsDataMsg struct {
	projects []store.Project
	active   map[int64]*interval.TimeInterval
}

type openReportMsg struct {
	project store.Project
}

// projectRemovedMsg reports a successful project removal; the projects list
// and the dashboard both refetch on it.
type projectRemovedMsg struct {
	name string
}

// reportDataMsg carries one fetched report page. seq identifies the fetch;
// stale pages are dropped instead of applied.
type reportDataMsg struct {
	seq     int
	append_ bool
	groups  []report.Group
	hasMore bool
	mode    timecalc.Mode
}

type registerDoneMsg struct{}

type removeDoneMsg struct{}

type backupOutcomeMsg struct {
	op     backup.Operation
	backup *backup.Backup
	err    error
}

type latestBackupMsg struct {
	backup *backup.Backup
}

type storeReopenedMsg struct {
	store *store.Store
	err   error
}

type settingsDataMsg struct {
	settings []store.Setting
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

// formatElapsed renders a live duration as H:MM:SS, the dashboard ticker
// format. Report summaries use timecalc instead.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// summaryMode maps the persisted preference value onto a formatter mode.
func summaryMode(value string) timecalc.Mode {
	if value == "clock" {
		return timecalc.ModeClock
	}
	return timecalc.ModeFractionHours
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
