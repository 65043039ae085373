// Package frame adapts caller-owned pixel buffers into engine-agnostic raw
// frames.
//
// A RawFrame is a view, not a copy. The caller keeps ownership of Data and
// must not modify it until the capture call that received the frame returns.
// Nothing in this module writes through RawFrame.Data.
package frame

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBuffer is returned when caller-supplied geometry is inconsistent
// with the buffer or the pixel format.
var ErrInvalidBuffer = errors.New("frame: invalid buffer")

// RawFrame describes one image held in caller memory.
type RawFrame struct {
	// Data is the caller's buffer. Read-only for the lifetime of the call.
	Data   []byte
	Width  int
	Height int
	// Stride is the row size in bytes, including any row padding.
	Stride int
	Format PixelFormat
}

// Adapt validates the buffer geometry and returns a zero-copy frame over data.
func Adapt(data []byte, width, height, stride int, format PixelFormat) (*RawFrame, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: unrecognised pixel format %d", ErrInvalidBuffer, int(format))
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d must be positive", ErrInvalidBuffer, width, height)
	}
	if width > (math.MaxInt-7)/format.BitsPerPixel() || height > math.MaxInt/2 {
		return nil, fmt.Errorf("%w: dimensions %dx%d overflow the address space", ErrInvalidBuffer, width, height)
	}
	if min := MinStride(format, width); stride < min {
		return nil, fmt.Errorf("%w: stride %d below minimum %d for %d px of %s", ErrInvalidBuffer, stride, min, width, format)
	}
	if n := rows(format, height); n > 1 && stride > (math.MaxInt-MinStride(format, width))/(n-1) {
		return nil, fmt.Errorf("%w: stride %d over %d rows overflows the address space", ErrInvalidBuffer, stride, n)
	}
	if need := MinLength(format, width, height, stride); len(data) < need {
		return nil, fmt.Errorf("%w: buffer holds %d bytes, %dx%d %s at stride %d needs %d",
			ErrInvalidBuffer, len(data), width, height, format, stride, need)
	}
	return &RawFrame{
		Data:   data,
		Width:  width,
		Height: height,
		Stride: stride,
		Format: format,
	}, nil
}

// Row returns the bytes of row y of the primary plane, trimmed to MinStride.
func (f *RawFrame) Row(y int) []byte {
	start := y * f.Stride
	return f.Data[start : start+MinStride(f.Format, f.Width)]
}

// FlipVertical returns a copy of f with its rows in reverse order. Chroma
// planes of NV12/NV21 frames are flipped independently of the luma plane.
func FlipVertical(f *RawFrame) *RawFrame {
	out := &RawFrame{
		Data:   make([]byte, len(f.Data)),
		Width:  f.Width,
		Height: f.Height,
		Stride: f.Stride,
		Format: f.Format,
	}
	copy(out.Data, f.Data)

	flipPlane(out.Data, f.Data, 0, f.Height, f.Stride)
	if f.Format.Planar() {
		flipPlane(out.Data, f.Data, f.Height, (f.Height+1)/2, f.Stride)
	}
	return out
}

// flipPlane writes the n rows starting at row offset of src into dst, reversed.
func flipPlane(dst, src []byte, offset, n, stride int) {
	for i := 0; i < n; i++ {
		s := (offset + i) * stride
		d := (offset + n - 1 - i) * stride
		end := s + stride
		if end > len(src) {
			end = len(src)
		}
		copy(dst[d:], src[s:end])
	}
}
