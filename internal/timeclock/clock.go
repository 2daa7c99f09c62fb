package timeclock

import (
	"errors"
	"sync"

	"github.com/mkarlsen/stint/internal/interval"
)

var (
	// ErrAlreadyActive is returned when clocking in a project that already
	// has an open interval.
	ErrAlreadyActive = errors.New("project is already active")
	// ErrNoActiveInterval is returned when clocking out a project with no
	// open interval.
	ErrNoActiveInterval = errors.New("project has no active interval")
	// ErrInvalidTimeRange is returned when a clock-out timestamp precedes
	// the open interval's start.
	ErrInvalidTimeRange = errors.New("stop time precedes start time")
)

// IntervalStore is the persistence surface the clock needs.
type IntervalStore interface {
	// ActiveInterval returns the project's open interval, or (nil, nil)
	// when the project is inactive.
	ActiveInterval(projectID int64) (*interval.TimeInterval, error)
	// SaveInterval persists a new interval and returns it with identity.
	SaveInterval(in interval.TimeInterval) (*interval.TimeInterval, error)
	// StopInterval sets the stop time on an interval.
	StopInterval(id int64, stopMillis int64) (*interval.TimeInterval, error)
}

// Clock validates and applies clock-in/clock-out transitions. Transitions for
// the same project are serialized; a failed transition leaves the project's
// state untouched.
type Clock struct {
	store IntervalStore

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(store IntervalStore) *Clock {
	return &Clock{
		store: store,
		locks: make(map[int64]*sync.Mutex),
	}
}

func (c *Clock) projectLock(projectID int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[projectID] = l
	}
	return l
}

// ClockIn opens a new interval for the project at the given time.
func (c *Clock) ClockIn(projectID int64, at int64) (*interval.TimeInterval, error) {
	l := c.projectLock(projectID)
	l.Lock()
	defer l.Unlock()

	active, err := c.store.ActiveInterval(projectID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrAlreadyActive
	}

	return c.store.SaveInterval(interval.TimeInterval{
		ProjectID: projectID,
		Start:     at,
	})
}

// ClockOut closes the project's open interval at the given time.
func (c *Clock) ClockOut(projectID int64, at int64) (*interval.TimeInterval, error) {
	l := c.projectLock(projectID)
	l.Lock()
	defer l.Unlock()

	active, err := c.store.ActiveInterval(projectID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActiveInterval
	}
	if at < active.Start {
		return nil, ErrInvalidTimeRange
	}

	return c.store.StopInterval(active.ID, at)
}

// IsActive reports whether the project has an open interval.
func (c *Clock) IsActive(projectID int64) (bool, error) {
	active, err := c.store.ActiveInterval(projectID)
	if err != nil {
		return false, err
	}
	return active != nil, nil
}
