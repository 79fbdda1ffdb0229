// Package lifecycle holds the status state machine shared by every mutable entity.
package lifecycle

import (
	"errors"
	"time"
)

type Status int

const (
	StatusDefault Status = iota
	StatusCreated
	StatusUpdated
	StatusClosed
	StatusRemoved
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusUpdated:
		return "Updated"
	case StatusClosed:
		return "Closed"
	case StatusRemoved:
		return "Removed"
	default:
		return "Default"
	}
}

type Operation int

const (
	OpCreate Operation = iota + 1
	OpUpdate
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

var (
	ErrRemoved           = errors.New("entity is removed")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Transition returns the status an entity moves to when op is applied in state from.
// Removed is a tombstone: nothing moves out of it.
func Transition(from Status, op Operation) (Status, error) {
	if from == StatusRemoved {
		return from, ErrRemoved
	}
	switch op {
	case OpCreate:
		if from != StatusDefault {
			return from, ErrInvalidTransition
		}
		return StatusCreated, nil
	case OpUpdate:
		if from == StatusDefault {
			return from, ErrInvalidTransition
		}
		return StatusUpdated, nil
	case OpDelete:
		if from == StatusDefault {
			return from, ErrInvalidTransition
		}
		return StatusRemoved, nil
	default:
		return from, ErrInvalidTransition
	}
}

// Active reports whether reads may return an entity in this status.
func Active(s Status) bool {
	return s != StatusDefault && s != StatusRemoved
}

// Effective projects the stored status for display. An entity whose close time has
// passed reads as Closed whatever was stored; Removed always wins.
func Effective(s Status, closedAt *time.Time, now time.Time) Status {
	if s == StatusRemoved || closedAt == nil || closedAt.IsZero() {
		return s
	}
	if !now.Before(*closedAt) {
		return StatusClosed
	}
	return s
}
