package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumapix/pixcache/transport"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.GetObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func newRequest(t *testing.T, locator string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, locator, nil)
	require.NoError(t, err)
	return req
}

func TestFetch(t *testing.T) {
	mc := new(mockClient)
	tr := New(mc)

	mc.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return *input.Bucket == "images" && *input.Key == "covers/42.jpg"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("jpeg bytes")),
	}, nil).Once()

	got, err := tr.Fetch(context.Background(), newRequest(t, "s3://images/covers/42.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), got)
	mc.AssertExpectations(t)
}

func TestFetchRejectsUnsupportedScheme(t *testing.T) {
	mc := new(mockClient)
	tr := New(mc)

	_, err := tr.Fetch(context.Background(), newRequest(t, "https://images/covers/42.jpg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
	// The client is never consulted.
	mc.AssertExpectations(t)
}

func TestFetchRejectsMalformedLocator(t *testing.T) {
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
			mc := new(mockClient)
			tr := New(mc)

			_, err := tr.Fetch(context.Background(), newRequest(t, tt.locator))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "malformed locator")
			mc.AssertExpectations(t)
		})
	}
}

func TestFetchMapsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"NoSuchKey", &types.NoSuchKey{}},
		{"NotFound", &types.NotFound{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := new(mockClient)
			tr := New(mc)

			mc.On("GetObject", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			_, err := tr.Fetch(context.Background(), newRequest(t, "s3://images/missing.jpg"))
			require.Error(t, err)
			assert.ErrorIs(t, err, transport.ErrNotFound)
		})
	}
}

func TestFetchPassesThroughOtherErrors(t *testing.T) {
	mc := new(mockClient)
	tr := New(mc)

	boom := errors.New("throttled")
	mc.On("GetObject", mock.Anything, mock.Anything).Return(nil, boom).Once()

	_, err := tr.Fetch(context.Background(), newRequest(t, "s3://images/covers/42.jpg"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, transport.ErrNotFound)
}
