// Package wiring assembles the capture service from a Config.
package wiring

import (
	"fmt"
	"log/slog"
	"time"

	"capturevision/internal/capture"
	"capturevision/internal/config"
	"capturevision/internal/engine"
	"capturevision/internal/engine/zxing"
	"capturevision/internal/journal"
	"capturevision/internal/license"
	"capturevision/internal/logging"
	"capturevision/internal/mcp"
	"capturevision/internal/template"
)

// App is a fully assembled capture service.
type App struct {
	Config    *config.Config
	Gate      *license.Gate
	Templates *template.Store
	Engine    *engine.Dispatcher
	// Journal is nil when journal.path is empty.
	Journal journal.Journal
	Router  *capture.Router
}

// Option adjusts how Build assembles the App.
type Option func(*buildOptions)

type buildOptions struct {
	gate   *license.Gate
	logger *slog.Logger
}

// WithGate replaces the process-wide license gate.
func WithGate(g *license.Gate) Option {
	return func(o *buildOptions) { o.gate = g }
}

// WithLogger sets the logger handed to the router.
func WithLogger(l *slog.Logger) Option {
	return func(o *buildOptions) { o.logger = l }
}

// Build wires gate, templates, engine, journal and router from cfg.
// A license key in cfg is applied immediately; a rejected key is logged and
// leaves the gate closed rather than failing the build.
func Build(cfg *config.Config, opts ...Option) (*App, error) {
	bo := buildOptions{gate: license.Default(), logger: logging.New("capture")}
	for _, o := range opts {
		o(&bo)
	}
	logger := logging.New("wiring")

	app := &App{Config: cfg, Gate: bo.gate, Templates: template.NewStore()}

	if cfg.License != "" {
		if status := app.Gate.Initialize(cfg.License); status != license.StatusOK {
			logger.Warn("license rejected at startup", "status", status)
		}
	}

	var err error
	switch {
	case cfg.Templates != "":
		err = app.Templates.LoadFile(cfg.Templates)
	case cfg.Builtin != "":
		err = app.Templates.LoadBuiltin(cfg.Builtin)
	}
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	switch cfg.Engine.Kind {
	case config.EngineStub:
		app.Engine = engine.NewDispatcher()
	case config.EngineDefault, "":
		app.Engine = engine.NewDispatcher(engine.WithRunner(template.KindBarcode, zxing.New()))
	default:
		return nil, fmt.Errorf("unknown engine kind %q", cfg.Engine.Kind)
	}

	routerOpts := []capture.Option{
		capture.WithTimeout(time.Duration(cfg.Engine.Timeout)),
		capture.WithThrottle(cfg.Throttle.Rate, cfg.Throttle.Burst),
		capture.WithLogger(bo.logger),
	}
	if cfg.Journal.Path != "" {
		sj, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		app.Journal = sj
		routerOpts = append(routerOpts, capture.WithJournal(sj))
	}
	app.Router = capture.NewRouter(app.Gate, app.Templates, app.Engine, routerOpts...)

	logger.Info("capture service ready",
		"pipelines", len(app.Templates.Snapshot().Pipelines()),
		"engine", cfg.Engine.Kind,
		"journal", cfg.Journal.Path != "")
	return app, nil
}

// MCPServer returns an MCP server over the app's services.
func (a *App) MCPServer() *mcp.Server {
	return mcp.NewServer(mcp.Deps{
		Gate:      a.Gate,
		Templates: a.Templates,
		Router:    a.Router,
		Journal:   a.Journal,
	})
}

// Close releases the journal.
func (a *App) Close() error {
	if a.Journal == nil {
		return nil
	}
	return a.Journal.Close()
}
