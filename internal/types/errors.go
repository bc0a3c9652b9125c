package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrUnsupportedPage   = errors.New("unsupported page: open a Taobao or Tmall product page")
	ErrPageUnreachable   = errors.New("cannot reach the page; refresh the page and try again")
	ErrUnknownAction     = errors.New("unknown action")
	ErrEmptyBatch        = errors.New("batch is empty")
	ErrNoRecord          = errors.New("no record to export")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrInvalidURL        = errors.New("invalid URL")
)

// LocatorError wraps a locator that could not be compiled or evaluated.
type LocatorError struct {
	Locator string
	Err     error
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("locator %q: %v", e.Locator, e.Err)
}

func (e *LocatorError) Unwrap() error { return e.Err }

// FetchError wraps errors that occur while acquiring a page.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StorageError wraps errors from a batch persistence backend.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ExportError wraps errors that occur while encoding an export.
type ExportError struct {
	Format string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error (%s): %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
