package tui

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mkarlsen/stint/internal/backup"
	"github.com/mkarlsen/stint/internal/interval"
	"github.com/mkarlsen/stint/internal/store"
	"github.com/mkarlsen/stint/internal/timecalc"
	"github.com/mkarlsen/stint/internal/timeclock"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestApp(t *testing.T) App {
	t.Helper()
	s := newTestStore(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "stint.db")
	manager := backup.NewManager(dbPath, filepath.Join(dir, "backups"), nil)
	return NewApp(s, dbPath, manager)
}

// ============================================================
// Dashboard model
// ============================================================

func TestDashboardClockInOut(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("Dev", "#000")
	clock := timeclock.New(s)

	d := newDashboardModel(s, clock)
	d.projects = []store.Project{*p}

	msg := d.clockIn(p.ID)()
	in, ok := msg.(clockedInMsg)
	if !ok {
		t.Fatalf("expected clockedInMsg, got %T", msg)
	}
	if !in.in.IsActive() {
		t.Fatal("clocked-in interval should be active")
	}

	msg = d.clockOut(p.ID)()
	out, ok := msg.(clockedOutMsg)
	if !ok {
		t.Fatalf("expected clockedOutMsg, got %T", msg)
	}
	if out.in.IsActive() {
		t.Fatal("clocked-out interval should be closed")
	}
}

func TestDashboardClockInTwiceReportsError(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("Dev", "#000")
	clock := timeclock.New(s)

	d := newDashboardModel(s, clock)
	d.clockIn(p.ID)()

	msg := d.clockIn(p.ID)()
	status, ok := msg.(statusMsg)
	if !ok {
		t.Fatalf("expected statusMsg, got %T", msg)
	}
	if !status.isError {
		t.Fatal("double clock in should be an error status")
	}
}

func TestDashboardClockOutWithoutInReportsError(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("Dev", "#000")
	clock := timeclock.New(s)

	d := newDashboardModel(s, clock)
	msg := d.clockOut(p.ID)()
	status, ok := msg.(statusMsg)
	if !ok {
		t.Fatalf("expected statusMsg, got %T", msg)
	}
	if !status.isError {
		t.Fatal("clock out without clock in should be an error status")
	}
}

func TestDashboardLoadData(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("Dev", "#000")
	clock := timeclock.New(s)
	clock.ClockIn(p.ID, time.Now().UnixMilli())

	d := newDashboardModel(s, clock)
	msg := d.loadData()()
	data, ok := msg.(projectsDataMsg)
	if !ok {
		t.Fatalf("expected projectsDataMsg, got %T", msg)
	}
	if len(data.projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(data.projects))
	}
	if data.active[p.ID] == nil {
		t.Fatal("active map should contain the clocked-in project")
	}

	d, _ = d.update(data)
	if _, ok := d.anyActive(); !ok {
		t.Fatal("anyActive should report the running session")
	}
}

func TestDashboardAnyActiveEmpty(t *testing.T) {
	s := newTestStore(t)
	d := newDashboardModel(s, timeclock.New(s))
	if _, ok := d.anyActive(); ok {
		t.Fatal("no session should be active initially")
	}
}

// seedInterval persists a closed interval starting at the given time.
func seedInterval(t *testing.T, s *store.Store, projectID int64, start time.Time, d time.Duration) *interval.TimeInterval {
	t.Helper()
	in, err := s.SaveInterval(interval.TimeInterval{
		ProjectID: projectID,
		Start:     start.UnixMilli(),
		Stop:      start.Add(d).UnixMilli(),
	})
	if err != nil {
		t.Fatalf("seed interval: %v", err)
	}
	return in
}

// ============================================================
// Report model
// ============================================================

func TestReportOpenLoadsFirstPage(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("Dev", "#000")
	seedInterval(t, s, p.ID, time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local), time.Hour)

	r := newReportModel(s)
	r, cmd := r.open(*p)

	msg, ok := cmd().(reportDataMsg)
	if !ok {
		t.Fatalf("expected reportDataMsg, got %T", cmd())
	}
	r, _ = r.update(msg)
	if len(r.groups) != 1 {
		t.Fatalf("expected 1 day group, got %d", len(r.groups))
	}
}

func TestReportStaleFetchDiscarded(t *testing.T) {
	s := newTestStore(t)
	p1, _ := s.CreateProject("Dev", "#000")
	p2, _ := s.CreateProject("Ops", "#111")
	seedInterval(t, s, p1.ID, time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local), time.Hour)

	r := newReportModel(s)
	r, staleCmd := r.open(*p1)

	// The user switches projects before the first page lands.
	r, _ = r.open(*p2)

	r, _ = r.update(staleCmd().(reportDataMsg))
	if len(r.groups) != 0 {
		t.Fatal("page from the previous project was applied")
	}
}

func TestReportLoadMoreAppendsContiguously(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("Dev", "#000")
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	for i := 0; i < 25; i++ {
		seedInterval(t, s, p.ID, base.AddDate(0, 0, -i), time.Hour)
	}

	r := newReportModel(s)
	r, cmd := r.open(*p)
	r, _ = r.update(cmd().(reportDataMsg))
	if len(r.groups) != 10 {
		t.Fatalf("first page: got %d groups, want 10", len(r.groups))
	}
	if !r.hasMore {
		t.Fatal("25 days should leave more pages")
	}

	cmd = r.fetch(len(r.groups), true)
	r, _ = r.update(cmd().(reportDataMsg))
	if len(r.groups) != 20 {
		t.Fatalf("after load more: got %d groups, want 20", len(r.groups))
	}
	if !r.hasMore {
		t.Fatal("25 days should leave a third page")
	}

	// Days stay strictly descending across the page boundary, no repeats.
	for i := 1; i < len(r.groups); i++ {
		if !r.groups[i].Date.Before(r.groups[i-1].Date) {
			t.Fatalf("groups %d and %d out of order: %v, %v",
				i-1, i, r.groups[i-1].Date, r.groups[i].Date)
		}
	}
}

func TestReportRemoveItem(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("Dev", "#000")
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	first := seedInterval(t, s, p.ID, day.Add(9*time.Hour), time.Hour)
	seedInterval(t, s, p.ID, day.Add(13*time.Hour), time.Hour)

	r := newReportModel(s)
	r, cmd := r.open(*p)
	r, _ = r.update(cmd().(reportDataMsg))
	if len(r.groups) != 1 || len(r.groups[0].Items) != 2 {
		t.Fatalf("expected 1 group with 2 items, got %+v", r.groups)
	}

	// Select the earlier item (items run later start first) and remove it
	// through the confirm flow.
	r, _ = r.update(tea.KeyMsg{Type: tea.KeyRight})
	r, _ = r.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if !r.confirmingRemove {
		t.Fatal("d should ask for confirmation")
	}
	r, cmd = r.update(tea.KeyMsg{Type: tea.KeyEnter})
	if r.confirmingRemove {
		t.Fatal("confirmation should clear after enter")
	}

	msg := cmd()
	if _, ok := msg.(removeDoneMsg); !ok {
		t.Fatalf("expected removeDoneMsg, got %T", msg)
	}

	// The removal triggers a refetch of the shown pages.
	r, cmd = r.update(msg)
	r, _ = r.update(cmd().(reportDataMsg))
	if len(r.groups) != 1 || len(r.groups[0].Items) != 1 {
		t.Fatalf("expected 1 remaining item, got %+v", r.groups)
	}
	if r.groups[0].Items[0].Interval.ID == first.ID {
		t.Fatal("the selected interval should be the one removed")
	}

	intervals, _ := s.ListIntervals(p.ID, false)
	if len(intervals) != 1 {
		t.Fatalf("store still has %d intervals, want 1", len(intervals))
	}
}

func TestReportRemoveCancel(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("Dev", "#000")
	seedInterval(t, s, p.ID, time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local), time.Hour)

	r := newReportModel(s)
	r, cmd := r.open(*p)
	r, _ = r.update(cmd().(reportDataMsg))

	r, _ = r.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	r, _ = r.update(tea.KeyMsg{Type: tea.KeyEsc})
	if r.confirmingRemove {
		t.Fatal("esc should cancel the confirmation")
	}

	intervals, _ := s.ListIntervals(p.ID, false)
	if len(intervals) != 1 {
		t.Fatal("cancelled remove must not touch the store")
	}
}

// ============================================================
// Projects model
// ============================================================

func TestProjectsRemoveRefreshesList(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("Dev", "#000")

	pm := newProjectsModel(s)
	pm, _ = pm.update(projectsDataMsg{projects: []store.Project{*p}})

	pm, _ = pm.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if !pm.confirmingRemove {
		t.Fatal("d should ask for confirmation")
	}
	pm, cmd := pm.update(tea.KeyMsg{Type: tea.KeyEnter})

	msg := cmd()
	removed, ok := msg.(projectRemovedMsg)
	if !ok {
		t.Fatalf("expected projectRemovedMsg, got %T", msg)
	}
	if removed.name != "Dev" {
		t.Fatalf("removed name: got %q", removed.name)
	}

	// The removal message triggers a refetch; the list must not keep
	// showing the deleted project.
	pm, cmd = pm.update(removed)
	if cmd == nil {
		t.Fatal("remove should schedule a list refetch")
	}
	pm, _ = pm.update(cmd().(projectsDataMsg))
	if len(pm.projects) != 0 {
		t.Fatalf("store has 0 projects but the list still shows %d", len(pm.projects))
	}
}

// ============================================================
// Backup view
// ============================================================

func TestOutcomeStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		msg     backupOutcomeMsg
		want    string
		isError bool
	}{
		{
			name: "backup success",
			msg: backupOutcomeMsg{
				op:     backup.BackupOperation,
				backup: &backup.Backup{Sequence: 3},
			},
			want: "Backup complete: backup-3",
		},
		{
			name: "restore success",
			msg: backupOutcomeMsg{
				op:     backup.RestoreOperation,
				backup: &backup.Backup{Sequence: 7},
			},
			want: "Restored backup-7",
		},
		{
			name:    "operation in flight",
			msg:     backupOutcomeMsg{op: backup.BackupOperation, err: backup.ErrOperationInFlight},
			want:    "A data operation is already running",
			isError: true,
		},
		{
			name:    "no backup found",
			msg:     backupOutcomeMsg{op: backup.RestoreOperation, err: backup.ErrNoBackupFound},
			want:    "No backup found to restore from",
			isError: true,
		},
		{
			name:    "storage unavailable",
			msg:     backupOutcomeMsg{op: backup.BackupOperation, err: backup.ErrStorageUnavailable},
			want:    "Backup storage is not available",
			isError: true,
		},
		{
			name:    "other restore error",
			msg:     backupOutcomeMsg{op: backup.RestoreOperation, err: errors.New("boom")},
			want:    "Restore failed",
			isError: true,
		},
	}
	for _, tt := range tests {
		got := outcomeStatus(tt.msg)
		if got.text != tt.want {
			t.Errorf("%s: text = %q, want %q", tt.name, got.text, tt.want)
		}
		if got.isError != tt.isError {
			t.Errorf("%s: isError = %v, want %v", tt.name, got.isError, tt.isError)
		}
	}
}

// ============================================================
// Helper functions
// ============================================================

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00:00"},
		{time.Second, "0:00:01"},
		{time.Minute, "0:01:00"},
		{time.Hour, "1:00:00"},
		{time.Hour + time.Minute + time.Second, "1:01:01"},
		{25 * time.Hour, "25:00:00"},
		{-time.Second, "0:00:00"}, // negative clamps to 0
	}
	for _, tt := range tests {
		got := formatElapsed(tt.d)
		if got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSummaryMode(t *testing.T) {
	if summaryMode("clock") != timecalc.ModeClock {
		t.Fatal("clock should map to the clock mode")
	}
	if summaryMode("fraction") != timecalc.ModeFractionHours {
		t.Fatal("fraction should map to the fraction mode")
	}
	// Unknown values fall back to the default format
	if summaryMode("") != timecalc.ModeFractionHours {
		t.Fatal("empty value should fall back to fraction")
	}
}

func TestMax(t *testing.T) {
	if max(3, 5) != 5 {
		t.Fatal("max(3,5) should be 5")
	}
	if max(5, 3) != 5 {
		t.Fatal("max(5,3) should be 5")
	}
	if max(3, 3) != 3 {
		t.Fatal("max(3,3) should be 3")
	}
}

func TestFormatSettingValue(t *testing.T) {
	tests := []struct {
		key, val, want string
	}{
		{store.SettingTimeSummaryFormat, "fraction", "fraction of hours (8.25)"},
		{store.SettingTimeSummaryFormat, "clock", "clock (8:15)"},
		{store.SettingHideRegistered, "true", "yes"},
		{store.SettingHideRegistered, "false", "no"},
		{"unknown_key", "raw", "raw"},
	}
	for _, tt := range tests {
		got := formatSettingValue(tt.key, tt.val)
		if got != tt.want {
			t.Errorf("formatSettingValue(%q, %q) = %q, want %q", tt.key, tt.val, got, tt.want)
		}
	}
}

// ============================================================
// View state
// ============================================================

func TestViewNames(t *testing.T) {
	if len(viewNames) != 5 {
		t.Fatalf("expected 5 view names, got %d", len(viewNames))
	}
	expected := []string{"Dashboard", "Projects", "Report", "Backup", "Settings"}
	for i, name := range expected {
		if viewNames[i] != name {
			t.Fatalf("viewNames[%d] = %q, want %q", i, viewNames[i], name)
		}
	}
}

func TestViewStateConstants(t *testing.T) {
	if viewDashboard != 0 || viewProjects != 1 || viewReport != 2 || viewBackup != 3 || viewSettings != 4 {
		t.Fatal("view state constants out of order")
	}
}

// ============================================================
// App model
// ============================================================

func TestNewApp(t *testing.T) {
	app := newTestApp(t)

	if app.activeView != viewDashboard {
		t.Fatal("default view should be dashboard")
	}
	if app.showHelp {
		t.Fatal("help should be hidden by default")
	}
	if app.exportPicking {
		t.Fatal("export picker should be hidden by default")
	}
	if app.clock == nil {
		t.Fatal("app should build its own clock")
	}
}

func TestAppIsCapturingDefault(t *testing.T) {
	app := newTestApp(t)
	if app.isCapturing() {
		t.Fatal("no view should capture input initially")
	}
}

func TestAppViewStates(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40

	views := []viewState{viewDashboard, viewProjects, viewReport, viewBackup, viewSettings}
	for _, v := range views {
		app.activeView = v
		output := app.View()
		if output == "" {
			t.Fatalf("view %d rendered empty", v)
		}
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40

	header := app.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppLoadingState(t *testing.T) {
	app := newTestApp(t)
	// Width 0 means not yet sized
	output := app.View()
	if output != "Loading..." {
		t.Fatalf("expected 'Loading...', got %q", output)
	}
}

func TestAppStatusMessage(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40
	app.status = "test status"

	footer := app.renderFooter()
	if !strings.Contains(footer, "test status") {
		t.Fatal("footer should contain status message")
	}
}

func TestAppBackupOutcomeSetsStatus(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40

	model, _ := app.Update(backupOutcomeMsg{
		op:     backup.BackupOperation,
		backup: &backup.Backup{Sequence: 1},
	})
	updated := model.(App)
	if updated.status != "Backup complete: backup-1" {
		t.Fatalf("unexpected status: %q", updated.status)
	}
}

func TestAppProjectRemovedReloadsViews(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40

	model, cmd := app.Update(projectRemovedMsg{name: "Dev"})
	updated := model.(App)
	if updated.status != "Removed Dev" {
		t.Fatalf("unexpected status: %q", updated.status)
	}
	if cmd == nil {
		t.Fatal("removal should refetch the projects list and dashboard")
	}
}

func TestAppExportPickerRender(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40
	app.exportPicking = true

	picker := app.renderExportPicker()
	if !strings.Contains(picker, "CSV") || !strings.Contains(picker, "JSON") {
		t.Fatal("export picker should list both formats")
	}
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	bindings := keys.ShortHelp()
	if len(bindings) == 0 {
		t.Fatal("short help should have bindings")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should have groups")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

// ============================================================
// Styles (smoke test)
// ============================================================

func TestStylesRender(t *testing.T) {
	styles := []struct {
		name string
		fn   func() string
	}{
		{"activeTab", func() string { return activeTabStyle.Render("test") }},
		{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
		{"panel", func() string { return panelStyle.Render("test") }},
		{"activePanel", func() string { return activePanelStyle.Render("test") }},
		{"title", func() string { return titleStyle.Render("test") }},
		{"success", func() string { return successStyle.Render("test") }},
		{"warning", func() string { return warningStyle.Render("test") }},
		{"error", func() string { return errorStyle.Render("test") }},
		{"muted", func() string { return mutedStyle.Render("test") }},
		{"highlight", func() string { return highlightStyle.Render("test") }},
		{"header", func() string { return headerStyle.Render("test") }},
		{"footer", func() string { return footerStyle.Render("test") }},
		{"selectedItem", func() string { return selectedItemStyle.Render("test") }},
		{"normalItem", func() string { return normalItemStyle.Render("test") }},
	}

	for _, s := range styles {
		result := s.fn()
		if result == "" {
			t.Fatalf("style %q rendered empty", s.name)
		}
	}
}
