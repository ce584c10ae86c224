package reasoning

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureKind classifies why a reasoning call returned no usable answer.
type FailureKind string

const (
	FailureTimeout       FailureKind = "timeout"
	FailureUpstreamError FailureKind = "upstream_error"
	FailureEmptyResponse FailureKind = "empty_response"
)

type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("reasoning failure: %s", e.Kind)
	}
	return fmt.Sprintf("reasoning failure (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may safely retry the request. The
// client itself never retries; that decision belongs to the HTTP boundary.
func Retryable(err error) bool {
	var rerr *Error
	if !errors.As(err, &rerr) {
		return false
	}
	switch rerr.Kind {
	case FailureTimeout, FailureEmptyResponse:
		return true
	case FailureUpstreamError:
		var netErr net.Error
		if errors.As(rerr.Err, &netErr) {
			return netErr.Timeout()
		}
		return errors.Is(rerr.Err, context.DeadlineExceeded)
	default:
		return false
	}
}

func classify(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: FailureTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: FailureTimeout, Err: err}
	}
	return &Error{Kind: FailureUpstreamError, Err: err}
}
