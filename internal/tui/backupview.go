package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mkarlsen/stint/internal/backup"
)

type backupModel struct {
	manager *backup.Manager
	width   int
	height  int

	latest     *backup.Backup
	latestAt   time.Time
	inFlight   backup.Operation
	confirming bool // restore overwrites the live database, so ask first
}

func newBackupModel(m *backup.Manager) backupModel {
	return backupModel{manager: m}
}

func (b *backupModel) setSize(w, h int) {
	b.width = w
	b.height = h
}

func (b backupModel) refresh() tea.Cmd {
	m := b.manager
	return func() tea.Msg {
		latest, err := m.LatestBackup()
		if err != nil {
			return latestBackupMsg{}
		}
		return latestBackupMsg{backup: latest}
	}
}

func (b backupModel) update(msg tea.Msg) (backupModel, tea.Cmd) {
	switch msg := msg.(type) {
	case latestBackupMsg:
		b.latest = msg.backup
		b.latestAt = time.Time{}
		if b.latest != nil {
			if info, err := os.Stat(b.latest.Dir); err == nil {
				b.latestAt = info.ModTime()
			}
		}
		return b, nil

	case backupOutcomeMsg:
		b.inFlight = backup.None
		return b, b.refresh()

	case tea.KeyMsg:
		if b.confirming {
			switch {
			case key.Matches(msg, keys.Enter):
				b.confirming = false
				b.inFlight = backup.RestoreOperation
				return b, b.runRestore()
			case key.Matches(msg, keys.Back):
				b.confirming = false
			}
			return b, nil
		}

		switch {
		case key.Matches(msg, keys.Backup):
			b.inFlight = backup.BackupOperation
			return b, b.runBackup()
		case key.Matches(msg, keys.Restore):
			if b.latest != nil {
				b.confirming = true
			}
		}
	}
	return b, nil
}

func (b backupModel) runBackup() tea.Cmd {
	m := b.manager
	return func() tea.Msg {
		created, err := m.RunBackup()
		return backupOutcomeMsg{op: backup.BackupOperation, backup: created, err: err}
	}
}

func (b backupModel) runRestore() tea.Cmd {
	m := b.manager
	return func() tea.Msg {
		restored, err := m.RunRestore()
		return backupOutcomeMsg{op: backup.RestoreOperation, backup: restored, err: err}
	}
}

func (b backupModel) view() string {
	w := b.width - 4
	title := titleStyle.Render("Backup")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	if b.latest == nil {
		rows = append(rows, mutedStyle.Render("No backup yet."))
	} else {
		when := ""
		if !b.latestAt.IsZero() {
			when = "  " + mutedStyle.Render(b.latestAt.Local().Format("2006-01-02 15:04"))
		}
		rows = append(rows, fmt.Sprintf("Latest backup: %s%s",
			highlightStyle.Render(fmt.Sprintf("backup-%d", b.latest.Sequence)), when))
		rows = append(rows, mutedStyle.Render("  "+b.latest.Dir))
	}

	rows = append(rows, "")

	switch {
	case b.inFlight == backup.BackupOperation:
		rows = append(rows, warningStyle.Render("Backup in progress..."))
	case b.inFlight == backup.RestoreOperation:
		rows = append(rows, warningStyle.Render("Restore in progress..."))
	case b.confirming:
		rows = append(rows, errorStyle.Render("Restore replaces your current data. enter: restore  esc: cancel"))
	default:
		rows = append(rows, mutedStyle.Render("b: run backup  R: restore latest"))
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, strings.Join(rows, "\n")))
}

// outcomeStatus renders a backup or restore result as a one-line status, the
// single notification per operation.
func outcomeStatus(msg backupOutcomeMsg) statusMsg {
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, backup.ErrOperationInFlight):
			return statusMsg{text: "A data operation is already running", isError: true}
		case errors.Is(msg.err, backup.ErrNoBackupFound):
			return statusMsg{text: "No backup found to restore from", isError: true}
		case errors.Is(msg.err, backup.ErrStorageUnavailable):
			return statusMsg{text: "Backup storage is not available", isError: true}
		}
		if msg.op == backup.RestoreOperation {
			return statusMsg{text: "Restore failed", isError: true}
		}
		return statusMsg{text: "Backup failed", isError: true}
	}

	if msg.op == backup.RestoreOperation {
		return statusMsg{text: fmt.Sprintf("Restored backup-%d", msg.backup.Sequence)}
	}
	return statusMsg{text: fmt.Sprintf("Backup complete: backup-%d", msg.backup.Sequence)}
}
