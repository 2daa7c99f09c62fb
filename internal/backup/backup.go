package backup

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
)

// Prefix is the literal every backup directory name starts with, immediately
// followed by its decimal sequence number: backup-1, backup-2, ...
const Prefix = "backup-"

var (
	// ErrOperationInFlight is returned when a backup or restore is already
	// running. The request is rejected outright, never queued.
	ErrOperationInFlight = errors.New("data operation is already running")
	// ErrStorageUnavailable is returned when the backup root cannot be
	// written to or read from.
	ErrStorageUnavailable = errors.New("backup storage is not available")
	// ErrNoBackupFound is returned when restore finds no backup directory
	// to restore from.
	ErrNoBackupFound = errors.New("no backup found")
)

// Operation is the kind of data operation currently running.
type Operation int32

const (
	None Operation = iota
	BackupOperation
	RestoreOperation
)

func (op Operation) String() string {
	switch op {
	case BackupOperation:
		return "backup"
	case RestoreOperation:
		return "restore"
	default:
		return "none"
	}
}

// Gate serializes data operations: at most one backup or restore at a time.
// It is owned state passed into the manager, so separate instances do not
// share it.
type Gate struct {
	state atomic.Int32
}

// Running returns the operation currently holding the gate.
func (g *Gate) Running() Operation {
	return Operation(g.state.Load())
}

func (g *Gate) acquire(op Operation) bool {
	return g.state.CompareAndSwap(int32(None), int32(op))
}

func (g *Gate) release() {
	g.state.Store(int32(None))
}

// Backup is one versioned copy of the database on disk.
type Backup struct {
	Dir      string
	Sequence int
}

// DatabasePath returns the location of the database copy inside the backup
// directory.
func (b Backup) DatabasePath(name string) string {
	return filepath.Join(b.Dir, name)
}

// Manager copies the live database into versioned backup directories and
// restores it from the latest one.
type Manager struct {
	dbPath     string
	root       string
	gate       *Gate
	log        *slog.Logger
	checkpoint func() error
}

// NewManager returns a manager for the database at dbPath, keeping backups
// under root. A nil gate gets its own; passing one in lets callers share or
// isolate the mutual exclusion as needed.
func NewManager(dbPath, root string, gate *Gate) *Manager {
	if gate == nil {
		gate = &Gate{}
	}
	return &Manager{
		dbPath: dbPath,
		root:   root,
		gate:   gate,
		log:    slog.Default(),
	}
}

// SetCheckpoint registers a function that flushes pending writes into the
// database file. It runs before every backup so the copy includes rows that
// are still sitting in the WAL.
func (m *Manager) SetCheckpoint(fn func() error) {
	m.checkpoint = fn
}

// Running returns the operation currently in flight, if any.
func (m *Manager) Running() Operation {
	return m.gate.Running()
}

// RunBackup copies the live database into the next backup-<n> directory and
// returns the new backup. Exactly one outcome is produced: the backup, or an
// error describing why it failed.
func (m *Manager) RunBackup() (*Backup, error) {
	if !m.gate.acquire(BackupOperation) {
		m.log.Warn("data operation is already running, rejecting backup",
			"running", m.gate.Running().String())
		return nil, ErrOperationInFlight
	}
	defer m.gate.release()

	if m.checkpoint != nil {
		if err := m.checkpoint(); err != nil {
			m.log.Warn("unable to checkpoint before backup", "error", err)
			return nil, fmt.Errorf("checkpoint before backup: %w", err)
		}
	}

	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	seq, err := m.nextSequence()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(m.root, fmt.Sprintf("%s%d", Prefix, seq))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	dst := filepath.Join(dir, filepath.Base(m.dbPath))
	if err := copyFile(m.dbPath, dst); err != nil {
		// Drop the directory so a half-written copy never becomes the
		// latest backup.
		os.RemoveAll(dir)
		m.log.Warn("unable to backup", "error", err)
		return nil, fmt.Errorf("backup database: %w", err)
	}

	m.log.Info("backup complete", "dir", dir)
	return &Backup{Dir: dir, Sequence: seq}, nil
}

// RunRestore copies the latest backup's database over the live database.
// On success the caller must reopen its store; on failure the live database
// is left untouched.
func (m *Manager) RunRestore() (*Backup, error) {
	if !m.gate.acquire(RestoreOperation) {
		m.log.Warn("data operation is already running, rejecting restore",
			"running", m.gate.Running().String())
		return nil, ErrOperationInFlight
	}
	defer m.gate.release()

	latest, err := m.latest()
	if err != nil {
		return nil, err
	}

	src := latest.DatabasePath(filepath.Base(m.dbPath))
	if err := copyFile(src, m.dbPath); err != nil {
		m.log.Warn("unable to restore backup", "error", err)
		return nil, fmt.Errorf("restore database: %w", err)
	}

	// Journal sidecars belong to the replaced database. Drop them so the
	// reopened store does not replay stale frames over the restored file.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(m.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			m.log.Warn("unable to remove stale journal file",
				"file", m.dbPath+suffix, "error", err)
		}
	}

	m.log.Info("restore complete", "dir", latest.Dir)
	return latest, nil
}

// LatestBackup returns the backup with the highest sequence number, or
// ErrNoBackupFound when none exist.
func (m *Manager) LatestBackup() (*Backup, error) {
	return m.latest()
}

func (m *Manager) latest() (*Backup, error) {
	backups, err := m.scan()
	if err != nil {
		return nil, err
	}
	if len(backups) == 0 {
		return nil, ErrNoBackupFound
	}

	best := backups[0]
	for _, b := range backups[1:] {
		if b.Sequence > best.Sequence {
			best = b
		}
	}
	return &best, nil
}

func (m *Manager) nextSequence() (int, error) {
	backups, err := m.scan()
	if err != nil && !errors.Is(err, ErrNoBackupFound) {
		return 0, err
	}

	max := 0
	for _, b := range backups {
		if b.Sequence > max {
			max = b.Sequence
		}
	}
	return max + 1, nil
}

// scan lists the backup directories under the root. Directories whose name
// does not match the prefix-plus-digits pattern are ignored.
func (m *Manager) scan() ([]Backup, error) {
	entries, err := os.ReadDir(m.root)
	if os.IsNotExist(err) {
		return nil, ErrNoBackupFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	var backups []Backup
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		seq, ok := parseSequence(entry.Name())
		if !ok {
			continue
		}
		backups = append(backups, Backup{
			Dir:      filepath.Join(m.root, entry.Name()),
			Sequence: seq,
		})
	}
	return backups, nil
}

func parseSequence(name string) (int, bool) {
	suffix, ok := strings.CutPrefix(name, Prefix)
	if !ok || suffix == "" {
		return 0, false
	}
	seq, err := strconv.Atoi(suffix)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// copyFile copies src to dst byte for byte. The copy goes through a temp
// file in the destination directory and is renamed into place only once the
// full read has succeeded, so a failure never truncates an existing dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// DefaultRoot returns ~/stint-backups.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "stint-backups"), nil
}
