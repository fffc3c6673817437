package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for a retrieval run. Callers match with errors.Is; the typed
// errors below carry the failing field, filename, variable category or URL.
var (
	// ErrConfiguration is returned when retrieval settings are invalid.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrSourceUnreachable is returned when a remote dataset cannot be opened.
	ErrSourceUnreachable = errors.New("source unreachable")

	// ErrKeyNotFound is returned when a required variable is missing from a dataset.
	ErrKeyNotFound = errors.New("variable key not found")

	// ErrMalformedFilename is returned when a granule filename lacks two dates.
	ErrMalformedFilename = errors.New("malformed filename")

	// ErrNoReachableGranules is returned when every granule of a run failed.
	ErrNoReachableGranules = errors.New("no reachable granules")

	// ErrNoGranules is returned when the file listing produced no granules at all.
	ErrNoGranules = errors.New("no granules listed")

	// ErrEmptyWindow is returned when the bounding box selects no grid cells.
	ErrEmptyWindow = errors.New("empty index window")

	// ErrInvalidInput is returned for structurally invalid arguments (e.g. empty axis).
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError reports the first invalid settings field.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrConfiguration.
func (e *ValidationError) Unwrap() error { return ErrConfiguration }

// FilenameError reports a listing entry that does not carry a start and end date.
type FilenameError struct {
	Filename string
	Found    int
}

func (e *FilenameError) Error() string {
	return fmt.Sprintf("filename %q: expected 2 dates (YYYYMMDD), found %d", e.Filename, e.Found)
}

func (e *FilenameError) Unwrap() error { return ErrMalformedFilename }

// KeyError reports a variable category that matched nothing in a dataset.
type KeyError struct {
	Category string
	Names    []string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("no variable matching %q (available: %v)", e.Category, e.Names)
}

func (e *KeyError) Unwrap() error { return ErrKeyNotFound }

// GranuleError wraps a failure to open or read one granule URL.
type GranuleError struct {
	URL string
	Err error
}

func (e *GranuleError) Error() string {
	return fmt.Sprintf("granule %s: %v", e.URL, e.Err)
}

// Unwrap returns both the cause and ErrSourceUnreachable so either can be matched.
func (e *GranuleError) Unwrap() []error { return []error{ErrSourceUnreachable, e.Err} }
