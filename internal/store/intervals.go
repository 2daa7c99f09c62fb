package store

import (
	"database/sql"
	"fmt"

	"github.com/mkarlsen/stint/internal/interval"
)

// SaveInterval persists a new interval and returns it with its assigned id.
func (s *Store) SaveInterval(in interval.TimeInterval) (*interval.TimeInterval, error) {
	res, err := s.db.Exec(
		`INSERT INTO time_intervals (project_id, start_ms, stop_ms, registered) VALUES (?, ?, ?, ?)`,
		in.ProjectID, in.Start, in.Stop, boolToInt(in.Registered),
	)
	if err != nil {
		return nil, fmt.Errorf("save interval: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetInterval(id)
}

func (s *Store) GetInterval(id int64) (*interval.TimeInterval, error) {
	in := &interval.TimeInterval{}
	var registered int
	err := s.db.QueryRow(
		`SELECT id, project_id, start_ms, stop_ms, registered FROM time_intervals WHERE id = ?`, id,
	).Scan(&in.ID, &in.ProjectID, &in.Start, &in.Stop, &registered)
	if err != nil {
		return nil, fmt.Errorf("get interval %d: %w", id, err)
	}
	in.Registered = registered == 1
	return in, nil
}

// ActiveInterval returns the project's open interval, or (nil, nil) when the
// project is inactive.
func (s *Store) ActiveInterval(projectID int64) (*interval.TimeInterval, error) {
	in := &interval.TimeInterval{}
	var registered int
	err := s.db.QueryRow(
		`SELECT id, project_id, start_ms, stop_ms, registered
		 FROM time_intervals WHERE project_id = ? AND stop_ms = 0`, projectID,
	).Scan(&in.ID, &in.ProjectID, &in.Start, &in.Stop, &registered)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active interval: %w", err)
	}
	in.Registered = registered == 1
	return in, nil
}

// StopInterval sets the stop time on an interval.
func (s *Store) StopInterval(id int64, stopMillis int64) (*interval.TimeInterval, error) {
	_, err := s.db.Exec(
		`UPDATE time_intervals SET stop_ms = ? WHERE id = ?`, stopMillis, id,
	)
	if err != nil {
		return nil, fmt.Errorf("stop interval %d: %w", id, err)
	}
	return s.GetInterval(id)
}

// MarkRegistered flags a closed interval as registered (or clears the flag).
// Open intervals cannot be registered.
func (s *Store) MarkRegistered(id int64, registered bool) (*interval.TimeInterval, error) {
	res, err := s.db.Exec(
		`UPDATE time_intervals SET registered = ? WHERE id = ? AND stop_ms != 0`,
		boolToInt(registered), id,
	)
	if err != nil {
		return nil, fmt.Errorf("register interval %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("register interval %d: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("register interval %d: interval is open or missing", id)
	}
	return s.GetInterval(id)
}

// ListIntervals returns a project's intervals in descending start order,
// the order the report aggregator expects. With hideRegistered set,
// registered intervals are filtered out.
func (s *Store) ListIntervals(projectID int64, hideRegistered bool) ([]interval.TimeInterval, error) {
	query := `SELECT id, project_id, start_ms, stop_ms, registered
	          FROM time_intervals WHERE project_id = ?`
	if hideRegistered {
		query += ` AND registered = 0`
	}
	query += ` ORDER BY start_ms DESC, id DESC`

	rows, err := s.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list intervals: %w", err)
	}
	defer rows.Close()

	var intervals []interval.TimeInterval
	for rows.Next() {
		var in interval.TimeInterval
		var registered int
		if err := rows.Scan(&in.ID, &in.ProjectID, &in.Start, &in.Stop, &registered); err != nil {
			return nil, err
		}
		in.Registered = registered == 1
		intervals = append(intervals, in)
	}
	return intervals, rows.Err()
}

// ListAllIntervals returns every interval in descending start order, used by
// the exporters.
func (s *Store) ListAllIntervals() ([]interval.TimeInterval, error) {
	rows, err := s.db.Query(
		`SELECT id, project_id, start_ms, stop_ms, registered
		 FROM time_intervals ORDER BY start_ms DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list all intervals: %w", err)
	}
	defer rows.Close()

	var intervals []interval.TimeInterval
	for rows.Next() {
		var in interval.TimeInterval
		var registered int
		if err := rows.Scan(&in.ID, &in.ProjectID, &in.Start, &in.Stop, &registered); err != nil {
			return nil, err
		}
		in.Registered = registered == 1
		intervals = append(intervals, in)
	}
	return intervals, rows.Err()
}

// RemoveInterval deletes a single interval.
func (s *Store) RemoveInterval(id int64) error {
	_, err := s.db.Exec(`DELETE FROM time_intervals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove interval %d: %w", id, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
