package zxing

import (
	"errors"
	"math"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/multi"
)

const (
	// maxDepth bounds how many times a region is split around a hit.
	maxDepth = 4
	// minRegion is the smallest region side worth searching again.
	minRegion = 100
)

// repeatedReader finds several symbols with a single-symbol reader by
// decoding the whole image, then searching the regions left of, above,
// right of and below each hit.
type repeatedReader struct {
	delegate gozxing.Reader
}

// repeated adapts a single-symbol reader constructor into a multi reader.
func repeated(newReader func() gozxing.Reader) func() multi.MultipleBarcodeReader {
	return func() multi.MultipleBarcodeReader {
		return &repeatedReader{delegate: newReader()}
	}
}

func (r *repeatedReader) DecodeMultipleWithoutHint(bmp *gozxing.BinaryBitmap) ([]*gozxing.Result, error) {
	return r.DecodeMultiple(bmp, nil)
}

func (r *repeatedReader) DecodeMultiple(bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) ([]*gozxing.Result, error) {
	var out []*gozxing.Result
	if err := r.search(bmp, hints, 0, 0, 0, &out); err != nil {
		return out, err
	}
	if len(out) == 0 {
		return nil, gozxing.NewNotFoundException()
	}
	return out, nil
}

func (r *repeatedReader) search(bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}, dx, dy, depth int, out *[]*gozxing.Result) error {
	if depth > maxDepth {
		return nil
	}
	res, err := r.delegate.Decode(bmp, hints)
	r.delegate.Reset()
	if err != nil {
		var notFound gozxing.ReaderException
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	points := res.GetResultPoints()
	dup := false
	for _, prev := range *out {
		if prev.GetText() == res.GetText() {
			dup = true
			break
		}
	}
	if !dup {
		*out = append(*out, translate(res, dx, dy))
	}
	if len(points) == 0 || !bmp.IsCropSupported() {
		return nil
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		if p == nil {
			continue
		}
		minX, maxX = math.Min(minX, p.GetX()), math.Max(maxX, p.GetX())
		minY, maxY = math.Min(minY, p.GetY()), math.Max(maxY, p.GetY())
	}
	w, h := float64(bmp.GetWidth()), float64(bmp.GetHeight())

	type region struct{ left, top, width, height int }
	var regions []region
	if minX > minRegion {
		regions = append(regions, region{0, 0, int(minX), int(h)})
	}
	if minY > minRegion {
		regions = append(regions, region{0, 0, int(w), int(minY)})
	}
	if maxX < w-minRegion {
		regions = append(regions, region{int(maxX), 0, int(w - maxX), int(h)})
	}
	if maxY < h-minRegion {
		regions = append(regions, region{0, int(maxY), int(w), int(h - maxY)})
	}
	for _, reg := range regions {
		sub, err := bmp.Crop(reg.left, reg.top, reg.width, reg.height)
		if err != nil {
			return err
		}
		if err := r.search(sub, hints, dx+reg.left, dy+reg.top, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}

// translate shifts a result found in a cropped region back into the
// coordinates of the full image.
func translate(res *gozxing.Result, dx, dy int) *gozxing.Result {
	if dx == 0 && dy == 0 {
		return res
	}
	var points []gozxing.ResultPoint
	for _, p := range res.GetResultPoints() {
		if p == nil {
			continue
		}
		points = append(points, gozxing.NewResultPoint(p.GetX()+float64(dx), p.GetY()+float64(dy)))
	}
	out := gozxing.NewResult(res.GetText(), res.GetRawBytes(), points, res.GetBarcodeFormat())
	out.PutAllMetadata(res.GetResultMetadata())
	return out
}
