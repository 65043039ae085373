// Package zxing runs barcode tasks with the gozxing decoders.
package zxing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/multi"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/oned"

	"capturevision/internal/engine"
	"capturevision/internal/frame"
	"capturevision/internal/logging"
	"capturevision/internal/template"
)

type symbology struct {
	id     string
	reader func() multi.MultipleBarcodeReader
}

// symbologies lists the decoders in the order they are tried.
var symbologies = []symbology{
	{"BF_QR_CODE", multiqr.NewQRCodeMultiReader},
	{"BF_DATAMATRIX", repeated(func() gozxing.Reader { return datamatrix.NewDataMatrixReader() })},
	{"BF_CODE_128", repeated(oned.NewCode128Reader)},
	{"BF_CODE_39", repeated(oned.NewCode39Reader)},
	{"BF_EAN_13", repeated(oned.NewEAN13Reader)},
	{"BF_EAN_8", repeated(oned.NewEAN8Reader)},
	{"BF_UPC_A", repeated(oned.NewUPCAReader)},
}

var groups = map[string][]string{
	"BF_ALL":     {"BF_QR_CODE", "BF_DATAMATRIX", "BF_CODE_128", "BF_CODE_39", "BF_EAN_13", "BF_EAN_8", "BF_UPC_A"},
	"BF_DEFAULT": {"BF_QR_CODE", "BF_DATAMATRIX", "BF_CODE_128", "BF_CODE_39", "BF_EAN_13", "BF_EAN_8", "BF_UPC_A"},
	"BF_ONED":    {"BF_CODE_128", "BF_CODE_39", "BF_EAN_13", "BF_EAN_8", "BF_UPC_A"},
}

// Runner decodes every symbol of each enabled symbology in the frame,
// stopping once the task's expected count is reached. When the task's range ends before ST_BARCODE_DECODING, symbols are
// reported as locations without text.
type Runner struct{}

// New returns a barcode runner.
func New() *Runner { return &Runner{} }

func (r *Runner) RunTask(ctx context.Context, f *frame.RawFrame, task *template.Task) ([]engine.Result, error) {
	logger := logging.New("engine")
	if !task.Runs(template.StageBarcodeLocalization) && !task.Runs(template.StageBarcodeDecoding) {
		return nil, nil
	}
	profile := task.ProfileFor(template.StageBarcodeLocalization)
	if profile == nil {
		profile = task.ProfileFor(template.StageBarcodeDecoding)
	}
	mode := profile.PrimaryBinarization().Mode

	src := gozxing.NewLuminanceSourceFromImage(f.Luma())
	bmp, err := gozxing.NewBinaryBitmap(binarizerFor(mode, src))
	if err != nil {
		return nil, fmt.Errorf("binary bitmap: %w", err)
	}

	decode := task.Runs(template.StageBarcodeDecoding)
	hints := map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true}

	var out []engine.Result
	seen := map[string]bool{}
symbols:
	for _, sym := range enabled(task.BarcodeFormats) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := sym.reader().DecodeMultiple(bmp, hints)
		if err != nil {
			var notFound gozxing.ReaderException
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("decode %s: %w", sym.id, err)
			}
		}
		for _, res := range found {
			key := res.GetBarcodeFormat().String() + "\x00" + res.GetText()
			if seen[key] {
				continue
			}
			seen[key] = true
			q := quadOf(res.GetResultPoints())
			rec := engine.Result{
				Kind:   engine.KindSymbolLocation,
				Stage:  template.StageBarcodeLocalization,
				Quad:   &q,
				Format: res.GetBarcodeFormat().String(),
			}
			if decode {
				rec.Kind = engine.KindSymbol
				rec.Stage = template.StageBarcodeDecoding
				rec.Text = res.GetText()
			}
			out = append(out, rec)
			if task.ExpectedCount > 0 && len(out) >= task.ExpectedCount {
				break symbols
			}
		}
	}
	logger.Debug("barcode task done", "task", task.Name, "binarization", mode, "symbols", len(out))
	return out, nil
}

// enabled expands format ids into symbologies, preserving decoder order.
// Ids without a decoder here are skipped.
func enabled(ids []string) []symbology {
	if len(ids) == 0 {
		ids = []string{"BF_DEFAULT"}
	}
	want := map[string]bool{}
	for _, id := range ids {
		if g, ok := groups[id]; ok {
			for _, m := range g {
				want[m] = true
			}
			continue
		}
		want[id] = true
	}
	var out []symbology
	for _, s := range symbologies {
		if want[s.id] {
			out = append(out, s)
		}
	}
	return out
}

// quadOf returns the bounding quad of the decoder's result points.
func quadOf(points []gozxing.ResultPoint) engine.Quad {
	if len(points) == 0 {
		return engine.Quad{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.GetX()), math.Max(maxX, p.GetX())
		minY, maxY = math.Min(minY, p.GetY()), math.Max(maxY, p.GetY())
	}
	return engine.Quad{{X: minX, Y: minY}, {X: maxX, Y: minY}, {X: maxX, Y: maxY}, {X: minX, Y: maxY}}
}

// binarizerFor picks the binarizer for a binarization mode. BM_THRESHOLD
// uses one global threshold; every other mode adapts per block.
func binarizerFor(mode string, src gozxing.LuminanceSource) gozxing.Binarizer {
	if mode == "BM_THRESHOLD" {
		return gozxing.NewGlobalHistgramBinarizer(src)
	}
	return gozxing.NewHybridBinarizer(src)
}
