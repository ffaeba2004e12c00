package learning

import "github.com/rotisserie/eris"

var (
	// ErrValidation rejects a malformed payload. Nothing from the payload
	// was written; resending it unchanged will fail again.
	ErrValidation = eris.New("validation error")

	ErrEventNotFound   = eris.New("event not found")
	ErrProfileNotFound = eris.New("profile not found")

	// ErrUpstreamUnavailable means the backing store could not be reached.
	ErrUpstreamUnavailable = eris.New("upstream unavailable")
)

// upstreamErr matches ErrUpstreamUnavailable and unwraps to the store's
// error, so callers can still tell a timeout from a refused connection.
type upstreamErr struct {
	op    string
	cause error
}

func (e *upstreamErr) Error() string {
	return e.op + ": " + ErrUpstreamUnavailable.Error() + ": " + e.cause.Error()
}

func (e *upstreamErr) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

func (e *upstreamErr) Unwrap() error {
	return e.cause
}

func validationError(detail string) error {
	return eris.Wrap(ErrValidation, detail)
}

func upstreamError(op string, err error) error {
	return &upstreamErr{op: op, cause: err}
}
