// Package storage defines where recurring calendar objects live while their
// rules are being edited.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	ErrConflict      ErrorType = "conflict"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsType reports whether err is a storage *Error of type t
func IsType(err error, t ErrorType) bool {
	var serr *Error
	return errors.As(err, &serr) && serr.Type == t
}

// Object is a stored calendar object. Its event is the master component whose
// RRULE and DTSTART feed the editor.
type Object struct {
	ID         string
	CalendarID string
	ETag       string
	Created    time.Time
	Modified   time.Time
	*ical.Event
}

// ListOptions filters ListObjects
type ListOptions struct {
	// Only objects with an RRULE
	RecurringOnly bool

	// Time range filter; recurring objects match when any occurrence falls inside
	Start *time.Time
	End   *time.Time
}

// Storage is the interface that must be implemented by storage backends
type Storage interface {
	// Returned objects belong to the caller; edits reach the backend only
	// through UpdateObject.
	GetObject(ctx context.Context, calendarID, objectID string) (*Object, error)
	ListObjects(ctx context.Context, calendarID string, opts *ListOptions) ([]*Object, error)
	// CreateObject assigns an ID when obj.ID is empty and sets the ETag
	CreateObject(ctx context.Context, obj *Object) error
	// UpdateObject fails with ErrConflict when obj.ETag is set and stale
	UpdateObject(ctx context.Context, obj *Object) error
	DeleteObject(ctx context.Context, calendarID, objectID string) error
}
