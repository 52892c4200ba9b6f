package ghclient

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/go-github/v80/github"
)

// ErrRateLimited matches every *RateLimitedError.
var ErrRateLimited = errors.New("github rate limit exceeded")

// GraphQLError is one entry of the "errors" array of a GraphQL response.
type GraphQLError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Path    []any  `json:"path,omitempty"`
}

// QueryError is returned when a GraphQL response contains errors that are
// neither rate limiting nor recovered by a fallback query.
type QueryError struct {
	// Message is the message of the first error.
	Message string
	// Additional is the number of errors after the first one.
	Additional int
	Errors     []GraphQLError
}

func newQueryError(errs []GraphQLError) *QueryError {
	return &QueryError{
		Message:    errs[0].Message,
		Additional: len(errs) - 1,
		Errors:     errs,
	}
}

func (e *QueryError) Error() string {
	switch e.Additional {
	case 0:
		return e.Message
	case 1:
		return e.Message + " and 1 other error"
	default:
		return fmt.Sprintf("%s and %d other errors", e.Message, e.Additional)
	}
}

// RateLimitedError is returned when GitHub refused a request because of rate limiting.
// Response is the original response; its body has already been consumed,
// but headers (X-RateLimit-*, Retry-After) are intact.
type RateLimitedError struct {
	Message  string
	Response *http.Response
}

func (e *RateLimitedError) Error() string {
	if e.Message == "" {
		return ErrRateLimited.Error()
	}
	return ErrRateLimited.Error() + ": " + e.Message
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// ResetAt returns when the rate limit window resets, from X-RateLimit-Reset.
func (e *RateLimitedError) ResetAt() (time.Time, bool) {
	if e.Response == nil {
		return time.Time{}, false
	}
	epoch, err := strconv.ParseInt(e.Response.Header.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(epoch, 0), true
}

// RetryAfter returns the delay GitHub asked for in the Retry-After header.
func (e *RateLimitedError) RetryAfter() (time.Duration, bool) {
	if e.Response == nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(e.Response.Header.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// IsRateLimited reports whether err is a rate limit error, either ours or one of go-github's.
func IsRateLimited(err error) bool {
	var (
		rateErr  *github.RateLimitError
		abuseErr *github.AbuseRateLimitError
	)
	return errors.Is(err, ErrRateLimited) || errors.As(err, &rateErr) || errors.As(err, &abuseErr)
}

// HTTPError is returned for non-2xx responses that carry no GraphQL errors.
type HTTPError struct {
	StatusCode int
	Wrapped    error
}

func (e *HTTPError) Error() string {
	return e.Wrapped.Error()
}

func (e *HTTPError) Unwrap() error {
	return e.Wrapped
}

func httpError(statusCode int, err error) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Wrapped:    err,
	}
}

// fieldTooExpensiveError marks a query GitHub could not complete because one field was
// too large to compute. It is recovered by retrying with the fallback query and never
// leaves this package.
type fieldTooExpensiveError struct {
	field string
	query *QueryError
}

func (e *fieldTooExpensiveError) Error() string {
	return fmt.Sprintf("field %q too expensive to compute: %v", e.field, e.query)
}

func (e *fieldTooExpensiveError) Unwrap() error {
	return e.query
}
