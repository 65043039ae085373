// Package imageio decodes image files into pixel buffers the capture router
// accepts, and writes grayscale results back out as PNG.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"capturevision/internal/frame"
)

// Buffer is a decoded image laid out as a caller-owned pixel buffer.
type Buffer struct {
	Data   []byte
	Width  int
	Height int
	Stride int
	Format frame.PixelFormat
	// Source is the name of the decoder that read the file ("png", "webp", ...).
	Source string
}

// Decode reads an image. Grayscale sources become frame.Grayscale buffers;
// everything else becomes frame.RGB888.
func Decode(r io.Reader) (*Buffer, error) {
	img, name, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf *Buffer
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		buf = grayBuffer(img)
	default:
		buf = rgbBuffer(img)
	}
	buf.Source = name
	return buf, nil
}

// ReadFile decodes the image at path.
func ReadFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func grayBuffer(img image.Image) *Buffer {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return &Buffer{Data: g.Pix, Width: b.Dx(), Height: b.Dy(), Stride: g.Stride, Format: frame.Grayscale}
}

func rgbBuffer(img image.Image) *Buffer {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	data := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		dst := data[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			copy(dst[x*3:x*3+3], src[x*4:x*4+3])
		}
	}
	return &Buffer{Data: data, Width: w, Height: h, Stride: w * 3, Format: frame.RGB888}
}

// WritePNG encodes img to path, creating parent directories.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
