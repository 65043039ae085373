// Package engine defines the vision engine boundary and the dispatcher that
// executes a resolved pipeline graph over a frame.
//
// The capture path depends only on Engine. Concrete capabilities plug in as
// TaskRunners keyed by task kind; the dispatcher walks the graph's ROIs and
// tasks in declared order and hands each task to its runner.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"

	"capturevision/internal/frame"
	"capturevision/internal/template"
)

// ErrEngine is wrapped by every backend failure reported from Run.
var ErrEngine = errors.New("engine: run failed")

// Error is a failure reported while running one task.
type Error struct {
	ROI  string
	Task string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("engine: roi %q task %q: %v", e.ROI, e.Task, e.Err)
}

func (e *Error) Unwrap() []error { return []error{ErrEngine, e.Err} }

// Kind discriminates result payloads.
type Kind string

const (
	KindBoundary        Kind = "boundary"
	KindNormalizedImage Kind = "normalized_image"
	KindSymbol          Kind = "decoded_symbol"
	KindSymbolLocation  Kind = "symbol_location"
	KindTextLine        Kind = "text_line"
)

// Point is a position in frame pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quad is a quadrilateral, clockwise from the top-left corner.
type Quad [4]Point

// Centre returns the mean of the four corners.
func (q Quad) Centre() Point {
	var c Point
	for _, p := range q {
		c.X += p.X
		c.Y += p.Y
	}
	return Point{X: c.X / 4, Y: c.Y / 4}
}

// RectQuad returns the quad of the axis-aligned rectangle r.
func RectQuad(r image.Rectangle) Quad {
	x0, y0, x1, y1 := float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)
	return Quad{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

// Result is one engine-native output. Which fields are set depends on Kind;
// runners may emit kinds this package does not name.
type Result struct {
	Kind  Kind
	ROI   string
	Task  string
	Stage template.Stage

	Quad   *Quad
	Image  *image.Gray
	Format string
	Text   string
	// Confidence is nil when the runner does not score its output.
	Confidence *float64
	Attrs      map[string]string
}

// Engine runs a resolved pipeline graph over a frame. Implementations must
// treat the frame as read-only and return ctx.Err() when ctx is done.
type Engine interface {
	Run(ctx context.Context, f *frame.RawFrame, g *template.Graph) ([]Result, error)
}

// Func adapts a function to an Engine.
type Func func(ctx context.Context, f *frame.RawFrame, g *template.Graph) ([]Result, error)

func (fn Func) Run(ctx context.Context, f *frame.RawFrame, g *template.Graph) ([]Result, error) {
	return fn(ctx, f, g)
}

// TaskRunner executes one task over a frame. The dispatcher fills in the
// ROI and Task fields of the returned results.
type TaskRunner interface {
	RunTask(ctx context.Context, f *frame.RawFrame, task *template.Task) ([]Result, error)
}

// TaskRunnerFunc adapts a function to a TaskRunner.
type TaskRunnerFunc func(ctx context.Context, f *frame.RawFrame, task *template.Task) ([]Result, error)

func (fn TaskRunnerFunc) RunTask(ctx context.Context, f *frame.RawFrame, task *template.Task) ([]Result, error) {
	return fn(ctx, f, task)
}

func confidence(v float64) *float64 { return &v }
