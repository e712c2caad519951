// Package minio implements transport.Transport for MinIO and other
// S3-compatible object stores, addressed with s3://<bucket>/<key>
// locators.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/lumapix/pixcache/transport"
)

// Transport fetches image payloads from a MinIO-compatible store.
type Transport struct {
	client *minio.Client
}

// New creates a MinIO transport using the given client.
func New(client *minio.Client) *Transport {
	return &Transport{client: client}
}

// Fetch downloads the object addressed by the request URL.
func (t *Transport) Fetch(ctx context.Context, req *http.Request) ([]byte, error) {
	if req.URL.Scheme != "s3" {
		return nil, fmt.Errorf("minio transport: unsupported scheme %q", req.URL.Scheme)
	}
	bucket := req.URL.Host
	key := strings.TrimPrefix(req.URL.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("minio transport: malformed locator %q", req.URL.String())
	}

	obj, err := t.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, bucket, key)
	}
	defer func() { _ = obj.Close() }()

	// GetObject is lazy; a missing object surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(err, bucket, key)
	}
	return data, nil
}

// mapError translates the server's missing-object responses into
// transport.ErrNotFound and passes everything else through.
func mapError(err error, bucket, key string) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
		return fmt.Errorf("%w: s3://%s/%s", transport.ErrNotFound, bucket, key)
	}
	return err
}
