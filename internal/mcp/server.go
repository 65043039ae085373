// Package mcp exposes the capture service as MCP tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"capturevision/internal/capture"
	"capturevision/internal/imageio"
	"capturevision/internal/journal"
	"capturevision/internal/license"
	"capturevision/internal/logging"
	"capturevision/internal/result"
	"capturevision/internal/template"
)

// Version is reported in the MCP implementation info.
var Version = "dev"

// Deps are the services the tools act on. Journal may be nil.
type Deps struct {
	Gate      *license.Gate
	Templates *template.Store
	Router    *capture.Router
	Journal   journal.Journal
}

// Server wraps the MCP SDK server.
type Server struct {
	MCPServer *sdkmcp.Server
	deps      Deps
}

// NewServer creates an MCP server with the capture tools registered.
func NewServer(d Deps) *Server {
	s := &Server{deps: d}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "capturevision", Version: Version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "initialize_license",
		Description: "Initialize the license gate. Returns the status code; 0 means captures are now accepted.",
	}, s.handleInitializeLicense)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "load_templates",
		Description: "Load a template document from a file path, inline JSON, or an embedded builtin. The previous templates stay active if validation fails.",
	}, s.handleLoadTemplates)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_pipelines",
		Description: "List the pipeline names of the active template document.",
	}, s.handleListPipelines)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "resolve_pipeline",
		Description: "Show the resolved execution graph of a pipeline: ROIs, tasks, active stages and their image parameter profiles.",
	}, s.handleResolvePipeline)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "capture_image",
		Description: "Decode an image file and run a pipeline over it. Returns ordered results, or the error category on failure.",
	}, s.handleCaptureImage)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_journal",
		Description: "List recent capture attempts, newest first.",
	}, s.handleListJournal)
}

// --- Tool input/output types ---

type initializeLicenseInput struct {
	Key string `json:"key" jsonschema:"license key"`
}

type initializeLicenseOutput struct {
	Status      int  `json:"status"`
	Initialized bool `json:"initialized"`
}

type loadTemplatesInput struct {
	Path     string `json:"path,omitempty" jsonschema:"path to a template JSON document"`
	Document string `json:"document,omitempty" jsonschema:"inline template JSON document"`
	Builtin  string `json:"builtin,omitempty" jsonschema:"name of an embedded document (default, document)"`
}

type pipelinesOutput struct {
	Pipelines  []string `json:"pipelines"`
	Generation uint64   `json:"generation"`
}

type listPipelinesInput struct{}

type resolvePipelineInput struct {
	Name string `json:"name" jsonschema:"pipeline name"`
}

type stageOut struct {
	Stage   string `json:"stage"`
	Profile string `json:"profile,omitempty"`
}

type taskOut struct {
	Name           string     `json:"name"`
	Kind           string     `json:"kind"`
	Start          string     `json:"start"`
	Terminate      string     `json:"terminate"`
	Stages         []stageOut `json:"stages"`
	BarcodeFormats []string   `json:"barcode_formats,omitempty"`
}

type roiOut struct {
	Name  string    `json:"name"`
	Tasks []taskOut `json:"tasks"`
}

type resolvePipelineOutput struct {
	Pipeline string   `json:"pipeline"`
	ROIs     []roiOut `json:"rois"`
}

type captureImageInput struct {
	Path     string `json:"path" jsonschema:"image file (png, jpeg, gif, bmp, tiff, webp)"`
	Pipeline string `json:"pipeline" jsonschema:"pipeline name from the active templates"`
}

type pointOut struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type recordOut struct {
	Kind        string            `json:"kind"`
	EngineKind  string            `json:"engine_kind,omitempty"`
	ROI         string            `json:"roi"`
	Task        string            `json:"task"`
	Stage       string            `json:"stage,omitempty"`
	Format      string            `json:"format,omitempty"`
	Text        string            `json:"text,omitempty"`
	Quad        []pointOut        `json:"quad,omitempty"`
	ImageWidth  int               `json:"image_width,omitempty"`
	ImageHeight int               `json:"image_height,omitempty"`
	Confidence  *float64          `json:"confidence,omitempty"`
	Attrs       map[string]string `json:"attrs,omitempty"`
}

type captureImageOutput struct {
	OK       bool        `json:"ok"`
	Category string      `json:"category"`
	Error    string      `json:"error,omitempty"`
	Width    int         `json:"width"`
	Height   int         `json:"height"`
	Format   string      `json:"format"`
	Records  []recordOut `json:"records"`
}

type listJournalInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum entries to return (0 = 20)"`
}

type journalEntryOut struct {
	ID        string `json:"id"`
	Pipeline  string `json:"pipeline"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	Category  string `json:"category"`
	Error     string `json:"error,omitempty"`
	Results   int    `json:"results"`
	ElapsedMS int64  `json:"elapsed_ms"`
	CreatedAt string `json:"created_at"`
}

type listJournalOutput struct {
	Entries []journalEntryOut `json:"entries"`
}

// --- Tool handlers ---

func (s *Server) handleInitializeLicense(_ context.Context, _ *sdkmcp.CallToolRequest, input initializeLicenseInput) (*sdkmcp.CallToolResult, initializeLicenseOutput, error) {
	status := s.deps.Gate.Initialize(input.Key)
	return nil, initializeLicenseOutput{Status: status, Initialized: status == license.StatusOK}, nil
}

func (s *Server) handleLoadTemplates(_ context.Context, _ *sdkmcp.CallToolRequest, input loadTemplatesInput) (*sdkmcp.CallToolResult, pipelinesOutput, error) {
	logger := logging.New("mcp")
	var err error
	switch {
	case input.Path != "" && input.Document == "" && input.Builtin == "":
		err = s.deps.Templates.LoadFile(input.Path)
	case input.Document != "" && input.Path == "" && input.Builtin == "":
		err = s.deps.Templates.Load([]byte(input.Document))
	case input.Builtin != "" && input.Path == "" && input.Document == "":
		err = s.deps.Templates.LoadBuiltin(input.Builtin)
	default:
		return nil, pipelinesOutput{}, errors.New("exactly one of path, document or builtin is required")
	}
	if err != nil {
		logger.Warn("load_templates rejected", "category", capture.Category(err), "error", err)
		return nil, pipelinesOutput{}, fmt.Errorf("%s: %w", capture.Category(err), err)
	}
	return nil, s.pipelines(), nil
}

func (s *Server) handleListPipelines(_ context.Context, _ *sdkmcp.CallToolRequest, _ listPipelinesInput) (*sdkmcp.CallToolResult, pipelinesOutput, error) {
	return nil, s.pipelines(), nil
}

func (s *Server) pipelines() pipelinesOutput {
	names := s.deps.Templates.Snapshot().Pipelines()
	if names == nil {
		names = []string{}
	}
	return pipelinesOutput{Pipelines: names, Generation: s.deps.Templates.Generation()}
}

func (s *Server) handleResolvePipeline(_ context.Context, _ *sdkmcp.CallToolRequest, input resolvePipelineInput) (*sdkmcp.CallToolResult, resolvePipelineOutput, error) {
	g, err := s.deps.Templates.Resolve(input.Name)
	if err != nil {
		return nil, resolvePipelineOutput{}, err
	}
	out := resolvePipelineOutput{Pipeline: g.Pipeline, ROIs: []roiOut{}}
	for _, roi := range g.ROIs {
		ro := roiOut{Name: roi.Name, Tasks: []taskOut{}}
		for _, t := range roi.Tasks {
			to := taskOut{
				Name:           t.Name,
				Kind:           string(t.Kind),
				Start:          string(t.Start),
				Terminate:      string(t.Terminate),
				Stages:         []stageOut{},
				BarcodeFormats: t.BarcodeFormats,
			}
			for _, sp := range t.ActiveStages() {
				so := stageOut{Stage: string(sp.Stage)}
				if sp.Profile != nil {
					so.Profile = sp.Profile.Name
				}
				to.Stages = append(to.Stages, so)
			}
			ro.Tasks = append(ro.Tasks, to)
		}
		out.ROIs = append(out.ROIs, ro)
	}
	return nil, out, nil
}

func (s *Server) handleCaptureImage(ctx context.Context, _ *sdkmcp.CallToolRequest, input captureImageInput) (*sdkmcp.CallToolResult, captureImageOutput, error) {
	if input.Path == "" || input.Pipeline == "" {
		return nil, captureImageOutput{}, errors.New("path and pipeline are required")
	}
	buf, err := imageio.ReadFile(input.Path)
	if err != nil {
		return nil, captureImageOutput{}, err
	}
	records, err := s.deps.Router.Capture(ctx, capture.Request{
		Data:     buf.Data,
		Width:    buf.Width,
		Height:   buf.Height,
		Stride:   buf.Stride,
		Format:   buf.Format,
		Pipeline: input.Pipeline,
	})
	out := captureImageOutput{
		OK:       err == nil,
		Category: capture.Category(err),
		Width:    buf.Width,
		Height:   buf.Height,
		Format:   buf.Format.String(),
		Records:  toRecordsOut(records),
	}
	if err != nil {
		out.Error = err.Error()
	}
	return nil, out, nil
}

func toRecordsOut(records []result.Record) []recordOut {
	out := make([]recordOut, 0, len(records))
	for _, r := range records {
		ro := recordOut{
			Kind:       string(r.Kind),
			EngineKind: r.EngineKind,
			ROI:        r.ROI,
			Task:       r.Task,
			Stage:      r.Stage,
			Format:     r.Payload.Format,
			Text:       r.Payload.Text,
			Attrs:      r.Payload.Attrs,
		}
		if q := r.Payload.Quad; q != nil {
			for _, p := range q {
				ro.Quad = append(ro.Quad, pointOut{X: p.X, Y: p.Y})
			}
		}
		if im := r.Payload.Image; im != nil {
			ro.ImageWidth, ro.ImageHeight = im.Width, im.Height
		}
		if r.Confidence != nil {
			c := *r.Confidence
			ro.Confidence = &c
		}
		out = append(out, ro)
	}
	return out
}

func (s *Server) handleListJournal(_ context.Context, _ *sdkmcp.CallToolRequest, input listJournalInput) (*sdkmcp.CallToolResult, listJournalOutput, error) {
	if s.deps.Journal == nil {
		return nil, listJournalOutput{}, errors.New("journal is disabled (set journal.path in the config)")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	entries, err := s.deps.Journal.List(limit)
	if err != nil {
		return nil, listJournalOutput{}, err
	}
	out := listJournalOutput{Entries: []journalEntryOut{}}
	for _, e := range entries {
		out.Entries = append(out.Entries, journalEntryOut{
			ID:        e.ID,
			Pipeline:  e.Pipeline,
			Width:     e.Width,
			Height:    e.Height,
			Format:    e.Format,
			Category:  e.Category,
			Error:     e.Error,
			Results:   e.Results,
			ElapsedMS: e.Elapsed.Milliseconds(),
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return nil, out, nil
}

// Run serves the tools over stdio until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	logging.New("mcp").Info("starting capturevision MCP server over stdio", "pid", os.Getpid())
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
