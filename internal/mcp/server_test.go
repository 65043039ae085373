package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"capturevision/internal/capture"
	"capturevision/internal/engine"
	"capturevision/internal/imageio"
	"capturevision/internal/journal"
	"capturevision/internal/license"
	mcpserver "capturevision/internal/mcp"
	"capturevision/internal/template"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))
	os.Exit(m.Run())
}

const goodKey = "good-key"

func newTestServer(t *testing.T, withJournal bool) *mcpserver.Server {
	t.Helper()
	gate := license.NewGate(license.Func(func(key string) int {
		if key == goodKey {
			return license.StatusOK
		}
		return -1
	}))
	store := template.NewStore()
	if err := store.LoadBuiltin("document"); err != nil {
		t.Fatalf("LoadBuiltin: %v", err)
	}
	deps := mcpserver.Deps{Gate: gate, Templates: store}
	var opts []capture.Option
	if withJournal {
		mem := journal.NewMemJournal()
		deps.Journal = mem
		opts = append(opts, capture.WithJournal(mem))
	}
	deps.Router = capture.NewRouter(gate, store, engine.NewDispatcher(), opts...)
	return mcpserver.NewServer(deps)
}

func connectInMemory(t *testing.T, ctx context.Context, srv *mcpserver.Server) *sdkmcp.ClientSession {
	t.Helper()
	t1, t2 := sdkmcp.NewInMemoryTransports()
	if _, err := srv.MCPServer.Connect(ctx, t1, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) map[string]any {
	t.Helper()
	out, err := callToolE(ctx, session, name, args)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

// callToolE returns tool errors instead of failing the test.
func callToolE(ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) (map[string]any, error) {
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("CallTool(%s): %w", name, err)
	}
	if res.IsError {
		for _, c := range res.Content {
			if tc, ok := c.(*sdkmcp.TextContent); ok {
				return nil, fmt.Errorf("CallTool(%s) error: %s", name, tc.Text)
			}
		}
		return nil, fmt.Errorf("CallTool(%s) returned error", name)
	}
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			result := make(map[string]any)
			if err := json.Unmarshal([]byte(tc.Text), &result); err != nil {
				return nil, fmt.Errorf("unmarshal %s result: %w", name, err)
			}
			return result, nil
		}
	}
	return nil, fmt.Errorf("CallTool(%s): no text content", name)
}

// writePage writes a dark 60x40 PNG with a bright 30x20 block at (10,10).
func writePage(t *testing.T) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 60, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			v := uint8(15)
			if x >= 10 && x < 40 && y >= 10 && y < 30 {
				v = 230
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	path := filepath.Join(t.TempDir(), "page.png")
	if err := imageio.WritePNG(path, img); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	return path
}

func TestListTools(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newTestServer(t, true))

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	got := map[string]bool{}
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{"initialize_license", "load_templates", "list_pipelines", "resolve_pipeline", "capture_image", "list_journal"} {
		if !got[name] {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestCaptureImage_LicenseFlow(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newTestServer(t, true))
	path := writePage(t)
	args := map[string]any{"path": path, "pipeline": "DetectDocumentBoundaries_Default"}

	out := callTool(t, ctx, session, "capture_image", args)
	if out["ok"] != false || out["category"] != "license" {
		t.Fatalf("before license: %v", out)
	}

	lic := callTool(t, ctx, session, "initialize_license", map[string]any{"key": "nope"})
	if lic["initialized"] != false {
		t.Fatalf("bad key initialized: %v", lic)
	}
	lic = callTool(t, ctx, session, "initialize_license", map[string]any{"key": goodKey})
	if lic["initialized"] != true || lic["status"] != float64(0) {
		t.Fatalf("good key: %v", lic)
	}

	out = callTool(t, ctx, session, "capture_image", args)
	if out["ok"] != true || out["category"] != "ok" {
		t.Fatalf("after license: %v", out)
	}
	records, _ := out["records"].([]any)
	if len(records) != 1 {
		t.Fatalf("records = %v, want one boundary", records)
	}
	rec := records[0].(map[string]any)
	if rec["kind"] != "boundary" || rec["task"] != "task-detect-document-boundaries" {
		t.Errorf("record = %v", rec)
	}
	quad, _ := rec["quad"].([]any)
	if len(quad) != 4 {
		t.Fatalf("quad = %v", rec["quad"])
	}
	if p := quad[0].(map[string]any); p["x"] != float64(10) || p["y"] != float64(10) {
		t.Errorf("quad[0] = %v, want (10,10)", p)
	}

	journalOut := callTool(t, ctx, session, "list_journal", map[string]any{})
	entries, _ := journalOut["entries"].([]any)
	if len(entries) != 2 {
		t.Fatalf("journal entries = %d, want 2", len(entries))
	}
	if e := entries[0].(map[string]any); e["category"] != "ok" || e["results"] != float64(1) {
		t.Errorf("newest entry = %v", e)
	}
}

func TestCaptureImage_NormalizedImageDimensions(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newTestServer(t, false))
	callTool(t, ctx, session, "initialize_license", map[string]any{"key": goodKey})

	out := callTool(t, ctx, session, "capture_image", map[string]any{
		"path": writePage(t), "pipeline": "DetectAndNormalizeDocument_Default",
	})
	records, _ := out["records"].([]any)
	if len(records) != 2 {
		t.Fatalf("records = %v", records)
	}
	img := records[1].(map[string]any)
	if img["kind"] != "normalized_image" || img["image_width"] != float64(30) || img["image_height"] != float64(20) {
		t.Errorf("normalized record = %v", img)
	}
}

func TestCaptureImage_ZeroConfidenceIsReported(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newTestServer(t, false))
	callTool(t, ctx, session, "initialize_license", map[string]any{"key": goodKey})

	img := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range img.Pix {
		img.Pix[i] = 15
	}
	path := filepath.Join(t.TempDir(), "flat.png")
	if err := imageio.WritePNG(path, img); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}

	out := callTool(t, ctx, session, "capture_image", map[string]any{"path": path, "pipeline": "DetectDocumentBoundaries_Default"})
	records, _ := out["records"].([]any)
	if len(records) != 1 {
		t.Fatalf("records = %v, want one boundary", records)
	}
	rec := records[0].(map[string]any)
	c, ok := rec["confidence"]
	if !ok {
		t.Fatalf("record %v drops a zero confidence", rec)
	}
	if c != float64(0) {
		t.Errorf("confidence = %v, want 0", c)
	}
}

func TestCaptureImage_UnknownPipeline(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newTestServer(t, false))
	callTool(t, ctx, session, "initialize_license", map[string]any{"key": goodKey})

	out := callTool(t, ctx, session, "capture_image", map[string]any{"path": writePage(t), "pipeline": "ReadPassport"})
	if out["ok"] != false || out["category"] != "not_found" {
		t.Errorf("out = %v", out)
	}
}

func TestCaptureImage_MissingFile(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newTestServer(t, false))
	_, err := callToolE(ctx, session, "capture_image", map[string]any{
		"path": filepath.Join(t.TempDir(), "absent.png"), "pipeline": "DetectDocumentBoundaries_Default",
	})
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadTemplates_RejectedKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newTestServer(t, false))

	before := callTool(t, ctx, session, "list_pipelines", map[string]any{})
	_, err := callToolE(ctx, session, "load_templates", map[string]any{
		"document": `{"CaptureVisionTemplates": [{"Name": "P", "ImageROIProcessingNameArray": ["missing"]}]}`,
	})
	if err == nil || !strings.Contains(err.Error(), "config") {
		t.Fatalf("err = %v, want a config error", err)
	}
	after := callTool(t, ctx, session, "list_pipelines", map[string]any{})
	if fmt.Sprint(before["pipelines"]) != fmt.Sprint(after["pipelines"]) || before["generation"] != after["generation"] {
		t.Errorf("rejected load changed the active templates: %v -> %v", before, after)
	}
}

func TestLoadTemplates_Builtin(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newTestServer(t, false))

	out := callTool(t, ctx, session, "load_templates", map[string]any{"builtin": "default"})
	names, _ := out["pipelines"].([]any)
	if len(names) != 6 || out["generation"] != float64(2) {
		t.Errorf("out = %v, want 6 pipelines at generation 2", out)
	}

	_, err := callToolE(ctx, session, "load_templates", map[string]any{"builtin": "default", "path": "x.json"})
	if err == nil {
		t.Error("expected an error when more than one source is given")
	}
}

func TestResolvePipeline(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newTestServer(t, false))

	out := callTool(t, ctx, session, "resolve_pipeline", map[string]any{"name": "DetectDocumentBoundaries_Default"})
	rois, _ := out["rois"].([]any)
	if len(rois) != 1 {
		t.Fatalf("rois = %v", rois)
	}
	tasks := rois[0].(map[string]any)["tasks"].([]any)
	task := tasks[0].(map[string]any)
	if task["kind"] != "document" || task["terminate"] != "ST_DOCUMENT_DETECTION" {
		t.Errorf("task = %v", task)
	}
	var stages []string
	for _, s := range task["stages"].([]any) {
		sm := s.(map[string]any)
		stages = append(stages, fmt.Sprintf("%v=%v", sm["stage"], sm["profile"]))
	}
	want := "ST_REGION_PREDETECTION=ip-detect ST_DOCUMENT_DETECTION=ip-detect"
	if got := strings.Join(stages, " "); got != want {
		t.Errorf("stages = %q, want %q", got, want)
	}

	if _, err := callToolE(ctx, session, "resolve_pipeline", map[string]any{"name": "nope"}); err == nil {
		t.Error("expected not found error")
	}
}

func TestListJournal_Disabled(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newTestServer(t, false))
	if _, err := callToolE(ctx, session, "list_journal", map[string]any{}); err == nil {
		t.Error("expected an error when no journal is configured")
	}
}
