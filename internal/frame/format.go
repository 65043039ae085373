package frame

import (
	"fmt"
	"strings"
)

// PixelFormat identifies the memory layout of a caller-supplied pixel buffer.
// The numeric values are part of the external call boundary and must not be
// reordered.
type PixelFormat int

const (
	Binary           PixelFormat = 0 // 1 bit per pixel, MSB first, 1 = white
	BinaryInverted   PixelFormat = 1 // 1 bit per pixel, MSB first, 1 = black
	Grayscale        PixelFormat = 2
	NV21             PixelFormat = 3 // Y plane + interleaved VU plane
	RGB565           PixelFormat = 4
	RGB555           PixelFormat = 5
	RGB888           PixelFormat = 6
	ARGB8888         PixelFormat = 7
	RGB161616        PixelFormat = 8
	ARGB16161616     PixelFormat = 9
	ABGR8888         PixelFormat = 10
	ABGR16161616     PixelFormat = 11
	BGR888           PixelFormat = 12
	Binary8          PixelFormat = 13 // 1 byte per pixel, non-zero = white
	NV12             PixelFormat = 14 // Y plane + interleaved UV plane
	Binary8Inverted  PixelFormat = 15 // 1 byte per pixel, non-zero = black
	formatUpperBound PixelFormat = 16
)

type layout struct {
	name   string
	bits   int  // bits per pixel of the primary plane
	planar bool // true when a half-height chroma plane follows the luma plane
}

var layouts = [formatUpperBound]layout{
	Binary:          {name: "binary", bits: 1},
	BinaryInverted:  {name: "binary_inverted", bits: 1},
	Grayscale:       {name: "grayscale", bits: 8},
	NV21:            {name: "nv21", bits: 8, planar: true},
	RGB565:          {name: "rgb565", bits: 16},
	RGB555:          {name: "rgb555", bits: 16},
	RGB888:          {name: "rgb888", bits: 24},
	ARGB8888:        {name: "argb8888", bits: 32},
	RGB161616:       {name: "rgb161616", bits: 48},
	ARGB16161616:    {name: "argb16161616", bits: 64},
	ABGR8888:        {name: "abgr8888", bits: 32},
	ABGR16161616:    {name: "abgr16161616", bits: 64},
	BGR888:          {name: "bgr888", bits: 24},
	Binary8:         {name: "binary8", bits: 8},
	NV12:            {name: "nv12", bits: 8, planar: true},
	Binary8Inverted: {name: "binary8_inverted", bits: 8},
}

// Formats returns every recognised pixel format in enumeration order.
func Formats() []PixelFormat {
	out := make([]PixelFormat, 0, formatUpperBound)
	for p := PixelFormat(0); p < formatUpperBound; p++ {
		out = append(out, p)
	}
	return out
}

// Valid reports whether p is a member of the closed enumeration.
func (p PixelFormat) Valid() bool { return p >= 0 && p < formatUpperBound }

func (p PixelFormat) String() string {
	if !p.Valid() {
		return fmt.Sprintf("PixelFormat(%d)", int(p))
	}
	return layouts[p].name
}

// BitsPerPixel returns the primary plane's bits per pixel, or 0 for an
// unrecognised format.
func (p PixelFormat) BitsPerPixel() int {
	if !p.Valid() {
		return 0
	}
	return layouts[p].bits
}

// Planar reports whether the format carries a half-height chroma plane after
// the luma plane (NV12, NV21).
func (p PixelFormat) Planar() bool { return p.Valid() && layouts[p].planar }

// ParseFormat accepts the lower-case names returned by String, case-insensitively.
func ParseFormat(s string) (PixelFormat, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for p := PixelFormat(0); p < formatUpperBound; p++ {
		if layouts[p].name == want {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown pixel format %q", ErrInvalidBuffer, s)
}

// MinStride is the smallest legal row size in bytes for width pixels of p.
func MinStride(p PixelFormat, width int) int {
	return (width*p.BitsPerPixel() + 7) / 8
}

// rows is the number of stride-sized rows the buffer spans.
func rows(p PixelFormat, height int) int {
	if p.Planar() {
		return height + (height+1)/2
	}
	return height
}

// MinLength is the smallest buffer that holds a frame of the given geometry.
// The final row only needs MinStride bytes, not a full stride.
func MinLength(p PixelFormat, width, height, stride int) int {
	n := rows(p, height)
	if n == 0 {
		return 0
	}
	return stride*(n-1) + MinStride(p, width)
}
