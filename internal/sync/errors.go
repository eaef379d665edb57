package sync

import (
	"fmt"

	"stargazer/internal/remote"
)

// Error reports a failed walk. Pages merged before Page stay committed.
type Error struct {
	Category remote.Category
	// Page is the 1-based page being fetched or merged when the walk failed.
	Page int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("sync failed at page %d (%s): %v", e.Page, e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCategory lets remote.Classify see through to the walk's category
func (e *Error) ErrorCategory() remote.Category {
	return e.Category
}
