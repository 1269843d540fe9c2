// Package errorspkg provides common app errors.
package errorspkg

import "errors"

var (
	// ErrInternal indicates internal server error.
	ErrInternal = errors.New("internal")
	// ErrTimeout indicates that the storage did not answer in time. The request may be retried.
	ErrTimeout = errors.New("storage timeout")
	// ErrUnavailable indicates that the storage is temporarily rejecting requests. The request may be retried.
	ErrUnavailable = errors.New("storage unavailable")
)

// IsRetryable reports whether err is an infrastructure failure the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)
}

// IsInfrastructure reports whether err belongs to the infrastructure class
// rather than to the domain.
func IsInfrastructure(err error) bool {
	return errors.Is(err, ErrInternal) || IsRetryable(err)
}
