// Package s3 implements transport.Transport for images stored in Amazon
// S3 or any S3 API-compatible service.
//
// Request builders address objects with s3://<bucket>/<key> locators; the
// http.Request carries that URL and nothing else is inspected.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/lumapix/pixcache/transport"
)

// Client is the subset of the S3 API the transport uses.
// *s3.Client satisfies it.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Transport fetches image payloads from S3.
type Transport struct {
	client Client
}

// New creates an S3 transport using the given client.
func New(client Client) *Transport {
	return &Transport{client: client}
}

// Fetch downloads the object addressed by the request URL.
func (t *Transport) Fetch(ctx context.Context, req *http.Request) ([]byte, error) {
	if req.URL.Scheme != "s3" {
		return nil, fmt.Errorf("s3 transport: unsupported scheme %q", req.URL.Scheme)
	}
	bucket := req.URL.Host
	key := strings.TrimPrefix(req.URL.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 transport: malformed locator %q", req.URL.String())
	}

	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return nil, fmt.Errorf("%w: s3://%s/%s", transport.ErrNotFound, bucket, key)
		}
		return nil, err
	}
	defer func() { _ = out.Body.Close() }()

	return io.ReadAll(out.Body)
}
