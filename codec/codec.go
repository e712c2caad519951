// Package codec decodes compressed image bytes into bounded-size bitmaps
// and re-encodes bitmaps back into compressed bytes.
//
// All functions are pure and safe for concurrent use. Decode and encode
// are CPU-bound; callers are expected to invoke them from worker
// goroutines, never while holding orchestration locks.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"

	// WebP is decode-only; the stdlib formats register their decoders
	// through the jpeg/png/gif imports above.
	_ "golang.org/x/image/webp"
)

// Format identifies an image container, as detected from its magic bytes.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWebP Format = "webp"
)

// jpegQuality is the fixed quality factor for lossy re-encoding.
// Callers never control this per request.
const jpegQuality = 90

// ErrInvalidData indicates bytes that are not a recognized image container
// or contain no frames.
var ErrInvalidData = errors.New("codec: invalid image data")

// DecodeError wraps a decode failure.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("codec: decode: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError wraps an encode failure.
type EncodeError struct {
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("codec: encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Bitmap is a decoded image payload. It is produced only by Downsample and
// its Width/Height always match the pixel buffer bounds.
type Bitmap struct {
	Pixels *image.RGBA
	Width  int // pixel width of Pixels
	Height int // pixel height of Pixels
	Scale  float64
}

// CostBytes estimates the resident cost of the bitmap for cache budget
// accounting (RGBA, 4 bytes per pixel, floor 1). It is not the encoded size.
func (b *Bitmap) CostBytes() int64 {
	cost := int64(b.Width) * int64(b.Height) * 4
	if cost < 1 {
		cost = 1
	}
	return cost
}

// Downsample decodes data into a bitmap no larger than the requested
// bounds. The per-axis pixel bound is max(target*max(displayScale,1), 1);
// the source is fitted into the bounds aspect-preserving and is never
// upscaled beyond its native resolution.
//
// The container header is parsed first (image.DecodeConfig) so the output
// geometry is fixed before any pixel data is touched; the source is then
// decoded in a single pass and scaled directly into the target buffer.
func Downsample(data []byte, targetWidth, targetHeight int, displayScale float64) (*Bitmap, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: ErrInvalidData}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrInvalidData, err)}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &DecodeError{Err: ErrInvalidData}
	}

	scale := displayScale
	if scale < 1 {
		scale = 1
	}
	boundW := float64(targetWidth) * scale
	if boundW < 1 {
		boundW = 1
	}
	boundH := float64(targetHeight) * scale
	if boundH < 1 {
		boundH = 1
	}

	// Aspect-preserving fit, capped at native resolution.
	ratio := math.Min(boundW/float64(cfg.Width), boundH/float64(cfg.Height))
	if ratio > 1 {
		ratio = 1
	}
	outW := int(math.Round(float64(cfg.Width) * ratio))
	outH := int(math.Round(float64(cfg.Height) * ratio))
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrInvalidData, err)}
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	if outW == cfg.Width && outH == cfg.Height {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	}

	return &Bitmap{
		Pixels: dst,
		Width:  outW,
		Height: outH,
		Scale:  displayScale,
	}, nil
}

// Encode re-encodes a bitmap into compressed bytes. The format defaults to
// the lossless PNG container when format is empty or has no encoder (WebP
// has no Go encoder). JPEG uses a fixed quality factor.
func Encode(b *Bitmap, format Format) ([]byte, error) {
	if b == nil || b.Pixels == nil {
		return nil, &EncodeError{Format: format, Err: errors.New("nil bitmap")}
	}

	var buf bytes.Buffer
	switch format {
	case FormatJPEG:
		if err := jpeg.Encode(&buf, b.Pixels, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, &EncodeError{Format: format, Err: err}
		}
	case FormatGIF:
		if err := gif.Encode(&buf, b.Pixels, nil); err != nil {
			return nil, &EncodeError{Format: format, Err: err}
		}
	default:
		if err := png.Encode(&buf, b.Pixels); err != nil {
			return nil, &EncodeError{Format: FormatPNG, Err: err}
		}
	}
	return buf.Bytes(), nil
}

// DetectFormat inspects container magic bytes only. It returns the empty
// Format for unrecognized or empty input.
func DetectFormat(data []byte) Format {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return FormatPNG
	case len(data) >= 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return FormatGIF
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP
	default:
		return ""
	}
}
