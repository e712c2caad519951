// Package transport abstracts how compressed image bytes are fetched.
//
// The pipeline never builds requests itself: callers supply a fully
// authorized *http.Request and a Transport that executes it. Credentials
// therefore pass through this layer opaquely and never reach the caches.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when the remote resource does not exist.
var ErrNotFound = errors.New("transport: resource not found")

// Transport fetches the full payload for a request.
//
// Implementations must honor ctx cancellation and must return an error
// that wraps ErrNotFound or *StatusError where applicable so callers can
// distinguish outcomes with errors.Is/As.
type Transport interface {
	Fetch(ctx context.Context, req *http.Request) ([]byte, error)
}

// StatusError reports a non-success response status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: unexpected status %d", e.StatusCode)
}
