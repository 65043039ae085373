package frame

import (
	"encoding/binary"
	"image"
)

// Luma converts the frame into an 8-bit grayscale image. Binary formats expand
// to 0 and 255; NV12/NV21 frames use their Y plane unchanged. The returned
// image owns its pixels, so engines may keep it beyond the capture call.
func (f *RawFrame) Luma() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		src := f.Row(y)
		dst := img.Pix[y*img.Stride : y*img.Stride+f.Width]
		lumaRow(f.Format, src, dst)
	}
	return img
}

func lumaRow(p PixelFormat, src, dst []byte) {
	switch p {
	case Binary, BinaryInverted:
		on, off := byte(255), byte(0)
		if p == BinaryInverted {
			on, off = off, on
		}
		for x := range dst {
			if src[x/8]&(0x80>>(x%8)) != 0 {
				dst[x] = on
			} else {
				dst[x] = off
			}
		}
	case Binary8, Binary8Inverted:
		on, off := byte(255), byte(0)
		if p == Binary8Inverted {
			on, off = off, on
		}
		for x := range dst {
			if src[x] != 0 {
				dst[x] = on
			} else {
				dst[x] = off
			}
		}
	case Grayscale, NV12, NV21:
		copy(dst, src)
	case RGB565:
		for x := range dst {
			v := binary.LittleEndian.Uint16(src[2*x:])
			r := byte((v>>11)&0x1f) << 3
			g := byte((v>>5)&0x3f) << 2
			b := byte(v&0x1f) << 3
			dst[x] = luma(r, g, b)
		}
	case RGB555:
		for x := range dst {
			v := binary.LittleEndian.Uint16(src[2*x:])
			r := byte((v>>10)&0x1f) << 3
			g := byte((v>>5)&0x1f) << 3
			b := byte(v&0x1f) << 3
			dst[x] = luma(r, g, b)
		}
	case RGB888:
		for x := range dst {
			dst[x] = luma(src[3*x], src[3*x+1], src[3*x+2])
		}
	case BGR888:
		for x := range dst {
			dst[x] = luma(src[3*x+2], src[3*x+1], src[3*x])
		}
	case ARGB8888:
		for x := range dst {
			dst[x] = luma(src[4*x+1], src[4*x+2], src[4*x+3])
		}
	case ABGR8888:
		for x := range dst {
			dst[x] = luma(src[4*x+3], src[4*x+2], src[4*x+1])
		}
	case RGB161616:
		for x := range dst {
			dst[x] = luma(hi(src, 6*x), hi(src, 6*x+2), hi(src, 6*x+4))
		}
	case ARGB16161616:
		for x := range dst {
			dst[x] = luma(hi(src, 8*x+2), hi(src, 8*x+4), hi(src, 8*x+6))
		}
	case ABGR16161616:
		for x := range dst {
			dst[x] = luma(hi(src, 8*x+6), hi(src, 8*x+4), hi(src, 8*x+2))
		}
	}
}

// hi returns the high byte of the little-endian 16-bit component at off.
func hi(b []byte, off int) byte { return b[off+1] }

// luma uses the same ITU-R 601 weights as image/color.GrayModel.
func luma(r, g, b byte) byte {
	y := (19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16
	return byte(y)
}
