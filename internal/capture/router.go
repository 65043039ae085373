// Package capture is the single entry point for turning a caller's pixel
// buffer and a pipeline name into result records.
//
// A capture runs its steps in a fixed order: license check, buffer
// validation, pipeline resolution, throttling, engine run, marshalling.
// The first three fail fast before any engine work. Every attempt is written
// to the journal when one is configured.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"capturevision/internal/engine"
	"capturevision/internal/frame"
	"capturevision/internal/journal"
	"capturevision/internal/logging"
	"capturevision/internal/result"
	"capturevision/internal/template"
)

// ErrCancelled is returned when the caller's context ends, or the router's
// timeout expires, before the engine finishes.
var ErrCancelled = errors.New("capture: cancelled")

// Gate reports whether captures are licensed.
type Gate interface {
	Check() error
}

// Resolver resolves pipeline names against the active templates.
type Resolver interface {
	Resolve(pipeline string) (*template.Graph, error)
}

// Request is one capture call. Data stays owned by the caller and must not
// be modified until Capture returns.
type Request struct {
	Data     []byte
	Width    int
	Height   int
	Stride   int
	Format   frame.PixelFormat
	Pipeline string
}

// Router runs captures. It is safe for concurrent use.
type Router struct {
	gate      Gate
	templates Resolver
	engine    engine.Engine

	limiter *rate.Limiter
	journal journal.Journal
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithThrottle limits engine runs to r per second with the given burst.
// A non-positive r disables throttling.
func WithThrottle(r float64, burst int) Option {
	return func(rt *Router) {
		if r <= 0 {
			rt.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		rt.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithJournal records every capture attempt in j.
func WithJournal(j journal.Journal) Option {
	return func(rt *Router) { rt.journal = j }
}

// WithTimeout bounds each engine run. Zero means no bound beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(rt *Router) { rt.timeout = d }
}

// WithLogger replaces the router's logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Router) { rt.logger = l }
}

// NewRouter returns a router over the given collaborators.
func NewRouter(gate Gate, templates Resolver, eng engine.Engine, opts ...Option) *Router {
	r := &Router{
		gate:      gate,
		templates: templates,
		engine:    eng,
		logger:    logging.New("capture"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Capture runs req.Pipeline over the request's buffer and returns the
// results in engine order, followed by any machine readable zones parsed
// from text lines. No partial results are returned on error.
func (r *Router) Capture(ctx context.Context, req Request) ([]result.Record, error) {
	start := time.Now()
	records, err := r.capture(ctx, req)
	elapsed := time.Since(start)

	attrs := []any{
		"pipeline", req.Pipeline,
		"category", Category(err),
		"width", req.Width,
		"height", req.Height,
		"format", req.Format.String(),
		"results", len(records),
		"elapsed", elapsed,
	}
	if err != nil {
		r.logger.Warn("capture failed", append(attrs, "error", err)...)
	} else {
		r.logger.Debug("capture done", attrs...)
	}
	r.record(req, records, err, elapsed)
	return records, err
}

func (r *Router) capture(ctx context.Context, req Request) ([]result.Record, error) {
	if err := r.gate.Check(); err != nil {
		return nil, err
	}
	f, err := frame.Adapt(req.Data, req.Width, req.Height, req.Stride, req.Format)
	if err != nil {
		return nil, err
	}
	g, err := r.templates.Resolve(req.Pipeline)
	if err != nil {
		return nil, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, cancelled(err)
		}
	}

	raw, err := r.engine.Run(ctx, f, g)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, cancelled(ctxErr)
	}
	if err != nil {
		if isContextErr(err) {
			return nil, cancelled(err)
		}
		if !errors.Is(err, engine.ErrEngine) {
			err = fmt.Errorf("%w: %w", engine.ErrEngine, err)
		}
		return nil, err
	}
	return result.ParseMRZ(result.Marshal(raw)), nil
}

func (r *Router) record(req Request, records []result.Record, err error, elapsed time.Duration) {
	if r.journal == nil {
		return
	}
	e := &journal.Entry{
		Pipeline: req.Pipeline,
		Width:    req.Width,
		Height:   req.Height,
		Format:   req.Format.String(),
		Category: Category(err),
		Results:  len(records),
		Elapsed:  elapsed,
	}
	if err != nil {
		e.Error = err.Error()
	}
	if _, jerr := r.journal.Append(e); jerr != nil {
		r.logger.Warn("journal append failed", "pipeline", req.Pipeline, "error", jerr)
	}
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
