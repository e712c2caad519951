package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// HTTP is the default Transport, backed by an *http.Client.
//
// It advertises zstd and gzip response encodings and decompresses them
// transparently, so origin servers can save bandwidth on PNG payloads
// that still compress well.
type HTTP struct {
	client *http.Client
}

// NewHTTP creates an HTTP transport. If client is nil, http.DefaultClient
// is used.
func NewHTTP(client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{client: client}
}

// Fetch executes the request and returns the full decoded body.
// Non-2xx responses fail with *StatusError (404 additionally wraps
// ErrNotFound).
func (t *HTTP) Fetch(ctx context.Context, req *http.Request) ([]byte, error) {
	req = req.Clone(ctx)
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "zstd, gzip")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, &StatusError{StatusCode: resp.StatusCode})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	return decodeBody(resp)
}

func decodeBody(resp *http.Response) ([]byte, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "zstd":
		dec, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(dec.IOReadCloser())
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer func() { _ = gz.Close() }()
		return io.ReadAll(gz)
	default:
		return io.ReadAll(resp.Body)
	}
}
