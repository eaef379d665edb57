package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-github/v63/github"

	"stargazer/internal/auth"
)

// Category is a user-facing classification of a sync failure
type Category string

// Failure categories
const (
	CategoryNoConnection Category = "no_connection"
	CategoryRateLimited  Category = "rate_limited"
	CategoryServerError  Category = "server_error"
	CategoryNotFound     Category = "not_found"
	CategoryUnauthorized Category = "unauthorized"
	CategoryUnknown      Category = "unknown"
	CategoryPersistence  Category = "persistence"
)

// Message returns a human-readable description of the category
func (c Category) Message() string {
	switch c {
	case CategoryNoConnection:
		return "No connection to GitHub"
	case CategoryRateLimited:
		return "GitHub rate limit reached, try again later"
	case CategoryServerError:
		return "GitHub is having problems, try again later"
	case CategoryNotFound:
		return "Starred repositories not found"
	case CategoryUnauthorized:
		return "GitHub rejected the token. Run 'stg config github' to update it"
	case CategoryPersistence:
		return "Failed to write to the local cache"
	default:
		return "Unexpected error"
	}
}

// Retryable reports whether a request failing with this category may succeed
// on a later attempt.
func (c Category) Retryable() bool {
	switch c {
	case CategoryNoConnection, CategoryServerError, CategoryRateLimited:
		return true
	default:
		return false
	}
}

// Error is a classified remote failure
type Error struct {
	Category   Category
	StatusCode int
	// RetryAfter is how long the server asked us to wait, if it said.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d): %v", e.Category, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify maps a go-github or transport error to an *Error. A nil err yields nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var categorized interface{ ErrorCategory() Category }
	if errors.As(err, &categorized) {
		return &Error{Category: categorized.ErrorCategory(), Err: err}
	}

	var tokenErr *auth.TokenError
	if errors.As(err, &tokenErr) {
		return &Error{Category: CategoryUnauthorized, Err: err}
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		e := &Error{Category: CategoryRateLimited, Err: err}
		if rateErr.Response != nil {
			e.StatusCode = rateErr.Response.StatusCode
		}
		if !rateErr.Rate.Reset.Time.IsZero() {
			e.RetryAfter = time.Until(rateErr.Rate.Reset.Time)
		}
		return e
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		e := &Error{Category: CategoryRateLimited, Err: err}
		if abuseErr.Response != nil {
			e.StatusCode = abuseErr.Response.StatusCode
		}
		if abuseErr.RetryAfter != nil {
			e.RetryAfter = *abuseErr.RetryAfter
		}
		return e
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		code := respErr.Response.StatusCode
		return &Error{Category: categoryForStatus(code), StatusCode: code, Err: err}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return &Error{Category: CategoryNoConnection, Err: err}
		}
		return &Error{Category: CategoryUnknown, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Category: CategoryNoConnection, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Error{Category: CategoryNoConnection, Err: err}
	}

	return &Error{Category: CategoryUnknown, Err: err}
}

func categoryForStatus(code int) Category {
	switch {
	case code == http.StatusUnauthorized:
		return CategoryUnauthorized
	case code == http.StatusForbidden, code == http.StatusTooManyRequests:
		return CategoryRateLimited
	case code == http.StatusNotFound:
		return CategoryNotFound
	case code >= 500:
		return CategoryServerError
	default:
		return CategoryUnknown
	}
}

// CategoryOf returns the category of err, or CategoryUnknown
func CategoryOf(err error) Category {
	if c := Classify(err); c != nil {
		return c.Category
	}
	return CategoryUnknown
}
