package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedNotification = errors.New("malformed notification")
	ErrResourceNotFound      = errors.New("resource not found")
)

// UpstreamError is a non-success response from the payment processor. The
// body is kept verbatim so admin actions can pass provider detail through to
// the caller.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream returned %d: %s", e.Op, e.StatusCode, e.Body)
}
