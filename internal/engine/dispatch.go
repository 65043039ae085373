package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"capturevision/internal/frame"
	"capturevision/internal/logging"
	"capturevision/internal/template"
)

// Dispatcher is an Engine that routes each task to the runner registered
// for its kind.
type Dispatcher struct {
	runners map[template.TaskKind]TaskRunner
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRunner registers r for tasks of kind k, replacing any earlier runner.
func WithRunner(k template.TaskKind, r TaskRunner) Option {
	return func(d *Dispatcher) { d.runners[k] = r }
}

// NewDispatcher returns a dispatcher with the document runner and a label
// runner without a recognizer registered.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{runners: map[template.TaskKind]TaskRunner{
		template.KindDocument: DocumentRunner{},
		template.KindLabel:    LabelRunner{},
	}}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Handles reports whether a runner is registered for k.
func (d *Dispatcher) Handles(k template.TaskKind) bool {
	_, ok := d.runners[k]
	return ok
}

// Run executes the graph. It stops at the first failing task and returns no
// partial results.
func (d *Dispatcher) Run(ctx context.Context, f *frame.RawFrame, g *template.Graph) ([]Result, error) {
	logger := logging.New("engine")
	var out []Result
	for _, roi := range g.ROIs {
		for _, task := range roi.Tasks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r, ok := d.runners[task.Kind]
			if !ok {
				return nil, &Error{ROI: roi.Name, Task: task.Name, Err: fmt.Errorf("no runner for %s tasks", task.Kind)}
			}
			start := time.Now()
			res, err := r.RunTask(ctx, f, task)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				return nil, &Error{ROI: roi.Name, Task: task.Name, Err: err}
			}
			for i := range res {
				res[i].ROI = roi.Name
				res[i].Task = task.Name
			}
			logger.Debug("task done", "pipeline", g.Pipeline, "roi", roi.Name, "task", task.Name,
				"results", len(res), "elapsed", time.Since(start))
			out = append(out, res...)
		}
	}
	return out, nil
}
