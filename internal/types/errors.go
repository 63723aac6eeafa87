package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNoProductFound    = errors.New("no product found in search results")
	ErrNoReviewsFound    = errors.New("no review blocks found on page")
	ErrNavigationTimeout = errors.New("page navigation timed out")
	ErrDriverFatal       = errors.New("browser session failure")
	ErrNoDataset         = errors.New("no dataset artifact found")
	ErrStopped           = errors.New("run stopped")
)

// NavigationError wraps errors that occur while driving the browser
// through the search -> product -> reviews sequence.
type NavigationError struct {
	Target string
	Step   string // "search", "product", "reviews", "blocks"
	Err    error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation error for %q at step %s: %v", e.Target, e.Step, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// Fatal reports whether the failure should abort the whole batch rather
// than just the current target.
func (e *NavigationError) Fatal() bool { return errors.Is(e.Err, ErrDriverFatal) }

// MergeError wraps errors that occur while loading or combining a
// single source file. Merge continues past non-fatal source errors.
type MergeError struct {
	Source string
	Err    error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge error for source %q: %v", e.Source, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// StorageError wraps errors from storage/export backends.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
