package domain

import (
	"errors"
	"fmt"
)

var ErrMissingLink = errors.New("missing link")

// MissingLinkError is returned for a source item that has no usable link.
// The item is dropped, never retried.
type MissingLinkError struct {
	Title string
}

func (e *MissingLinkError) Error() string {
	if e.Title == "" {
		return ErrMissingLink.Error()
	}
	return fmt.Sprintf("%s: %q", ErrMissingLink, e.Title)
}

func (e *MissingLinkError) Unwrap() error { return ErrMissingLink }

// FetchError is a transport or parse failure for a whole category.
type FetchError struct {
	SourceID string
	Category string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s/%s: %v", e.SourceID, e.Category, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistenceError is a failed batch commit.
type PersistenceError struct {
	Label string
	Batch int
	Size  int
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s batch %d (%d records): %v", e.Label, e.Batch, e.Size, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}
