package fingerprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStripsFragment(t *testing.T) {
	withFragment, err := Compute("https://h/p?x=1#frag", VariantPager)
	require.NoError(t, err)

	withoutFragment, err := Compute("https://h/p?x=1", VariantPager)
	require.NoError(t, err)

	assert.Equal(t, withoutFragment.Identity, withFragment.Identity)
	assert.Equal(t, withoutFragment.Digest, withFragment.Digest)
}

func TestComputeRetainsQueryAndPath(t *testing.T) {
	a, err := Compute("https://h/p?x=1", VariantPager)
	require.NoError(t, err)

	b, err := Compute("https://h/p?x=2", VariantPager)
	require.NoError(t, err)

	c, err := Compute("https://h/q?x=1", VariantPager)
	require.NoError(t, err)

	assert.NotEqual(t, a.Digest, b.Digest)
	assert.NotEqual(t, a.Digest, c.Digest)
}

func TestComputeVariantsNeverShareDigest(t *testing.T) {
	pager, err := Compute("https://h/p", VariantPager)
	require.NoError(t, err)

	overlay, err := Compute("https://h/p", VariantOverlay)
	require.NoError(t, err)

	assert.NotEqual(t, pager.Digest, overlay.Digest)
	assert.NotEqual(t, pager.Identity, overlay.Identity)
}

func TestComputeDigestIsFixedLengthHex(t *testing.T) {
	long := "https://h/" + strings.Repeat("a", 4096)
	fp, err := Compute(long, VariantOverlay)
	require.NoError(t, err)

	// SHA-256, hex-encoded.
	assert.Len(t, fp.Digest, 64)
	assert.Regexp(t, "^[0-9a-f]+$", fp.Digest)
}

func TestComputeDeterministic(t *testing.T) {
	a, err := Compute("https://h/p?x=1", VariantOverlay)
	require.NoError(t, err)

	b, err := Compute("https://h/p?x=1", VariantOverlay)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestComputeRejectsUnknownVariant(t *testing.T) {
	_, err := Compute("https://h/p", VariantUnknown)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownVariant)

	_, err = Compute("https://h/p", Variant(99))
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestVariantString(t *testing.T) {
	tests := []struct {
		v        Variant
		expected string
	}{
		{VariantPager, "pager"},
		{VariantOverlay, "overlay"},
		{VariantUnknown, "unknown"},
		{Variant(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.v.String())
	}
}
