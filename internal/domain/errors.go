package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrWalletLimit    = errors.New("wallet limit reached")
	ErrStreamClosed   = errors.New("stream closed")
	ErrConnectTimeout = errors.New("connect timeout")
	ErrEndpointGone   = errors.New("endpoint gone")
)

// UpstreamError reports a non-2xx response from a required upstream query.
// It is surfaced to the caller of the failing operation and is never retried
// automatically within a single operation.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream: HTTP %d", e.Status)
}
