package engine

import (
	"context"
	"image"

	"capturevision/internal/frame"
	"capturevision/internal/template"
)

// DocumentRunner is a reference runner for document tasks. Detection reports
// the bounding box of the pixels brighter than the frame's mean luminance,
// which finds a light page on a darker background. Normalization crops that
// box, or the whole frame when detection is outside the task's range.
type DocumentRunner struct{}

func (DocumentRunner) RunTask(ctx context.Context, f *frame.RawFrame, task *template.Task) ([]Result, error) {
	luma := f.Luma()
	region := luma.Bounds()

	var out []Result
	for _, sp := range task.ActiveStages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch sp.Stage {
		case template.StageDocumentDetection:
			var score float64
			region, score = brightRegion(luma, sp.Profile.PrimaryBinarization().Mode)
			q := RectQuad(region)
			out = append(out, Result{
				Kind:       KindBoundary,
				Stage:      sp.Stage,
				Quad:       &q,
				Confidence: confidence(score),
			})
		case template.StageDocumentNormalization:
			q := RectQuad(region)
			out = append(out, Result{
				Kind:  KindNormalizedImage,
				Stage: sp.Stage,
				Quad:  &q,
				Image: crop(luma, region),
			})
		}
	}
	return out, nil
}

// brightRegion returns the bounding box of above-mean pixels and the share of
// that box they fill. BM_SKIP, a uniform frame, or an empty box yield the
// full frame.
func brightRegion(img *image.Gray, mode string) (image.Rectangle, float64) {
	b := img.Bounds()
	if mode == "BM_SKIP" {
		return b, 1
	}
	threshold := meanLuma(img)
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.GrayAt(x, y).Y <= threshold {
				continue
			}
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
	}
	if maxX < minX {
		return b, 0
	}
	r := image.Rect(minX, minY, maxX+1, maxY+1)
	var lit int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.GrayAt(x, y).Y > threshold {
				lit++
			}
		}
	}
	return r, float64(lit) / float64(r.Dx()*r.Dy())
}

func meanLuma(img *image.Gray) uint8 {
	b := img.Bounds()
	var sum, n int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y) : img.PixOffset(b.Min.X, y)+b.Dx()]
		for _, v := range row {
			sum += int(v)
		}
		n += len(row)
	}
	if n == 0 {
		return 0
	}
	return uint8(sum / n)
}

func crop(img *image.Gray, r image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		src := img.PixOffset(r.Min.X, r.Min.Y+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+r.Dx()], img.Pix[src:src+r.Dx()])
	}
	return out
}
