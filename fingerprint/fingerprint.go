// Package fingerprint derives stable, credential-free cache identities
// for (locator, variant) pairs.
//
// Two locators that differ only by their URL fragment map to the same
// fingerprint; the same locator requested for different variants never
// shares a digest. Credentials live in request headers and never reach
// this package, so they can never leak into a cache key or a file name.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
)

// ErrUnknownVariant is returned for a variant outside the closed enum,
// most commonly a LoadRequest whose Variant field was never set. Accepting
// it would open a third cache partition under the "unknown" tag.
var ErrUnknownVariant = errors.New("fingerprint: unknown variant")

// Variant is the rendering purpose of a cached image. Variants partition
// the cache space: a pager thumbnail and a full-screen overlay of the same
// resource occupy separate slots in every tier.
type Variant uint8

const (
	VariantUnknown Variant = iota
	VariantPager           // low resolution, shown inline in the pager
	VariantOverlay         // high resolution, shown in the full-screen overlay
)

// String returns the stable tag used in cache identities and metrics labels.
func (v Variant) String() string {
	switch v {
	case VariantPager:
		return "pager"
	case VariantOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// Fingerprint is the immutable identity of one cacheable image rendition.
//
// Identity is human-readable and used for equality and logging. Digest is
// a fixed-length hex SHA-256 of Identity, safe to use as a map key and as
// an on-disk file name regardless of how long the source locator is.
type Fingerprint struct {
	Identity string
	Digest   string
	Variant  Variant
}

// Compute parses the locator, drops any fragment (query and path are
// retained), appends the variant tag and hashes the result.
//
// It is a pure function; the failure modes are an unparseable locator and
// a variant outside the closed enum.
func Compute(locator string, v Variant) (Fingerprint, error) {
	switch v {
	case VariantPager, VariantOverlay:
	default:
		return Fingerprint{}, fmt.Errorf("%w: %d", ErrUnknownVariant, uint8(v))
	}

	u, err := url.Parse(locator)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("fingerprint: parse locator: %w", err)
	}
	u.Fragment = ""
	u.RawFragment = ""

	identity := u.String() + "|variant:" + v.String()
	sum := sha256.Sum256([]byte(identity))

	return Fingerprint{
		Identity: identity,
		Digest:   hex.EncodeToString(sum[:]),
		Variant:  v,
	}, nil
}
