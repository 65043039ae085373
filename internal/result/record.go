// Package result converts engine output into plain records owned by the
// caller.
package result

import (
	"image"
	"maps"

	"capturevision/internal/engine"
)

// Kind is the record discriminator exposed to callers.
type Kind string

const (
	KindBoundary        Kind = "boundary"
	KindNormalizedImage Kind = "normalized_image"
	KindSymbol          Kind = "decoded_symbol"
	KindSymbolLocation  Kind = "symbol_location"
	KindTextLine        Kind = "text_line"
	// KindParsed is a machine readable zone parsed from consecutive text
	// lines of one task.
	KindParsed Kind = "parsed_result"
	// KindGeneric carries engine kinds this package does not know. The
	// engine's own name is kept in Record.EngineKind.
	KindGeneric Kind = "generic"
)

var known = map[engine.Kind]Kind{
	engine.KindBoundary:        KindBoundary,
	engine.KindNormalizedImage: KindNormalizedImage,
	engine.KindSymbol:          KindSymbol,
	engine.KindSymbolLocation:  KindSymbolLocation,
	engine.KindTextLine:        KindTextLine,
}

// Record is one capture result. It shares no memory with the engine or the
// input frame.
type Record struct {
	Kind       Kind     `json:"kind"`
	EngineKind string   `json:"engine_kind,omitempty"`
	ROI        string   `json:"roi"`
	Task       string   `json:"task"`
	Stage      string   `json:"stage,omitempty"`
	Payload    Payload  `json:"payload"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Payload holds the kind-specific data of a record.
type Payload struct {
	Quad   *engine.Quad      `json:"quad,omitempty"`
	Image  *Image            `json:"image,omitempty"`
	Format string            `json:"format,omitempty"`
	Text   string            `json:"text,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// Image is an 8-bit grayscale raster. Pixels are omitted from JSON.
type Image struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pix    []byte `json:"-"`
}

// Gray returns the image as an *image.Gray sharing Pix.
func (im *Image) Gray() *image.Gray {
	return &image.Gray{Pix: im.Pix, Stride: im.Width, Rect: image.Rect(0, 0, im.Width, im.Height)}
}

// Marshal maps engine results one-to-one and in order onto records.
func Marshal(results []engine.Result) []Record {
	out := make([]Record, len(results))
	for i, r := range results {
		out[i] = marshalOne(r)
	}
	return out
}

func marshalOne(r engine.Result) Record {
	rec := Record{
		ROI:   r.ROI,
		Task:  r.Task,
		Stage: string(r.Stage),
		Payload: Payload{
			Format: r.Format,
			Text:   r.Text,
			Attrs:  maps.Clone(r.Attrs),
		},
	}
	if k, ok := known[r.Kind]; ok {
		rec.Kind = k
	} else {
		rec.Kind = KindGeneric
		rec.EngineKind = string(r.Kind)
	}
	if r.Quad != nil {
		q := *r.Quad
		rec.Payload.Quad = &q
	}
	if r.Image != nil {
		rec.Payload.Image = copyImage(r.Image)
	}
	if r.Confidence != nil {
		c := *r.Confidence
		rec.Confidence = &c
	}
	return rec
}

func copyImage(src *image.Gray) *Image {
	b := src.Bounds()
	im := &Image{Width: b.Dx(), Height: b.Dy(), Pix: make([]byte, b.Dx()*b.Dy())}
	for y := 0; y < b.Dy(); y++ {
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		copy(im.Pix[y*b.Dx():(y+1)*b.Dx()], src.Pix[off:off+b.Dx()])
	}
	return im
}
