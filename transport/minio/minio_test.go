package minio

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumapix/pixcache/transport"
)

func newRequest(t *testing.T, locator string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, locator, nil)
	require.NoError(t, err)
	return req
}

func TestFetchRejectsUnsupportedScheme(t *testing.T) {
	// Scheme and locator validation happen before any client call, so a
	// nil client proves the client is never reached.
	tr := New(nil)

	_, err := tr.Fetch(context.Background(), newRequest(t, "https://images/covers/42.jpg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestFetchRejectsMalformedLocator(t *testing.T) {
	tr := New(nil)

	tests := []struct {
		name    string
		locator string
	}{
		{"missing key", "s3://images"},
		{"empty key", "s3://images/"},
		{"missing bucket", "s3:///covers/42.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Fetch(context.Background(), newRequest(t, tt.locator))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "malformed locator")
		})
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{"NoSuchKey", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}, true},
		{"NotFound", minio.ErrorResponse{Code: "NotFound", StatusCode: http.StatusNotFound}, true},
		{"AccessDenied", minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}, false},
		{"plain error", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, "images", "covers/42.jpg")
			require.Error(t, err)
			if tt.notFound {
				assert.ErrorIs(t, err, transport.ErrNotFound)
				assert.Contains(t, err.Error(), "s3://images/covers/42.jpg")
			} else {
				assert.NotErrorIs(t, err, transport.ErrNotFound)
				assert.Equal(t, tt.err, err)
			}
		})
	}
}
