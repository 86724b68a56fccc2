package coverage

import (
	"errors"
	"fmt"

	"github.com/eapache/go-resiliency/retrier"
)

// FetchError reports a failed WCS call. Status is zero when no HTTP response
// was received; Code carries the OWS exceptionCode when the service sent one.
type FetchError struct {
	Status    int
	Code      string
	Message   string
	Temporary bool
	Err       error
}

func (e *FetchError) Error() string {
	var b []byte
	b = append(b, "coverage fetch"...)
	if e.Status != 0 {
		b = fmt.Appendf(b, ": status %d", e.Status)
	}
	if e.Code != "" {
		b = fmt.Appendf(b, ": %s", e.Code)
	}
	if e.Message != "" {
		b = fmt.Appendf(b, ": %s", e.Message)
	}
	if e.Err != nil {
		b = fmt.Appendf(b, ": %v", e.Err)
	}
	return string(b)
}

func (e *FetchError) Unwrap() error { return e.Err }

func isTemporary(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Temporary
}

// classifier retries temporary fetch errors only.
type classifier struct{}

func (classifier) Classify(err error) retrier.Action {
	switch {
	case err == nil:
		return retrier.Succeed
	case isTemporary(err):
		return retrier.Retry
	default:
		return retrier.Fail
	}
}
