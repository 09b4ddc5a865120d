package repository

import (
	"errors"
	"fmt"
)

// VenueError wraps a failure talking to the trading venue. Temporary errors
// (timeouts, disconnects, rate limits) may be retried with backoff; the rest
// abort the attempt.
type VenueError struct {
	Op        string
	Err       error
	Temporary bool
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("venue %s: %v", e.Op, e.Err)
}

func (e *VenueError) Unwrap() error { return e.Err }

// NewVenueError builds a retryable or terminal venue error.
func NewVenueError(op string, err error, temporary bool) *VenueError {
	return &VenueError{Op: op, Err: err, Temporary: temporary}
}

// IsRetryableVenue reports whether err is a venue error worth retrying.
func IsRetryableVenue(err error) bool {
	var ve *VenueError
	return errors.As(err, &ve) && ve.Temporary
}
