package wiring

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"capturevision/internal/capture"
	"capturevision/internal/config"
	"capturevision/internal/frame"
	"capturevision/internal/license"
	"capturevision/internal/result"
	"capturevision/internal/template"
)

func grayRequest(pipeline string, stride int) capture.Request {
	data := make([]byte, 100*50)
	for y := 10; y < 40; y++ {
		for x := 20; x < 80; x++ {
			data[y*100+x] = 220
		}
	}
	return capture.Request{Data: data, Width: 100, Height: 50, Stride: stride, Format: frame.Grayscale, Pipeline: pipeline}
}

func qrRequest(text string) capture.Request {
	m, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, 160, 160, nil)
	gomega.Expect(err).To(gomega.Succeed())
	w, h := m.GetWidth(), m.GetHeight()
	data := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !m.Get(x, y) {
				data[y*w+x] = 255
			}
		}
	}
	return capture.Request{Data: data, Width: w, Height: h, Stride: w, Format: frame.Grayscale, Pipeline: "ReadSingleQRCode"}
}

func build(cfg *config.Config) *App {
	app, err := Build(cfg, WithGate(license.NewGate(license.Offline{})))
	gomega.Expect(err).To(gomega.Succeed())
	ginkgo.DeferCleanup(app.Close)
	return app
}

var validKey = license.EncodeOffline("hs-1", "org-1", time.Time{})

var _ = ginkgo.Describe("Template resolution", func() {
	ginkgo.It("resolves the document boundaries pipeline to its single ROI and task", func() {
		cfg := config.Default()
		cfg.Builtin = "document"
		app := build(cfg)

		g, err := app.Templates.Resolve("DetectDocumentBoundaries_Default")
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(g.ROIs).To(gomega.HaveLen(1))
		gomega.Expect(g.ROIs[0].Name).To(gomega.Equal("roi-detect-document-boundaries"))
		gomega.Expect(g.ROIs[0].Tasks).To(gomega.HaveLen(1))

		task := g.ROIs[0].Tasks[0]
		gomega.Expect(task.Name).To(gomega.Equal("task-detect-document-boundaries"))
		gomega.Expect(task.Terminate).To(gomega.Equal(template.StageDocumentDetection))
		gomega.Expect(task.Bindings).To(gomega.HaveLen(3))
		for _, b := range task.Bindings {
			gomega.Expect(b.Profile.Name).To(gomega.Equal("ip-detect"))
		}
	})

	ginkgo.It("loads templates from the file named in the config", func() {
		dir := ginkgo.GinkgoT().TempDir()
		doc, err := template.Builtin("document")
		gomega.Expect(err).To(gomega.Succeed())
		path := filepath.Join(dir, "templates.json")
		gomega.Expect(os.WriteFile(path, doc, 0o644)).To(gomega.Succeed())

		cfg := config.Default()
		cfg.Templates = path
		app := build(cfg)
		gomega.Expect(app.Templates.Snapshot().Pipelines()).To(gomega.ConsistOf(
			"DetectAndNormalizeDocument_Default", "DetectDocumentBoundaries_Default", "NormalizeDocument_Default"))
	})

	ginkgo.It("keeps serving a held graph after a reload", func() {
		app := build(config.Default())
		held, err := app.Templates.Resolve("ReadSingleQRCode")
		gomega.Expect(err).To(gomega.Succeed())

		gomega.Expect(app.Templates.LoadBuiltin("document")).To(gomega.Succeed())
		_, err = app.Templates.Resolve("ReadSingleQRCode")
		gomega.Expect(err).To(gomega.MatchError(template.ErrNotFound))
		gomega.Expect(held.ROIs[0].Tasks[0].Kind).To(gomega.Equal(template.KindBarcode))
	})
})

var _ = ginkgo.Describe("Capture", func() {
	var app *App

	ginkgo.BeforeEach(func() {
		cfg := config.Default()
		cfg.Journal.Path = filepath.Join(ginkgo.GinkgoT().TempDir(), "journal.db")
		app = build(cfg)
	})

	ginkgo.It("rejects captures until a license is accepted", func() {
		ctx := context.Background()
		req := grayRequest("DetectDocumentBoundaries_Default", 100)

		_, err := app.Router.Capture(ctx, req)
		gomega.Expect(err).To(gomega.MatchError(license.ErrNotInitialized))

		gomega.Expect(app.Gate.Initialize("bad-key")).NotTo(gomega.Equal(license.StatusOK))
		_, err = app.Router.Capture(ctx, req)
		gomega.Expect(capture.Category(err)).To(gomega.Equal(capture.CategoryLicense))

		gomega.Expect(app.Gate.Initialize(validKey)).To(gomega.Equal(license.StatusOK))
		records, err := app.Router.Capture(ctx, req)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(records).To(gomega.HaveLen(1))
		gomega.Expect(records[0].Kind).To(gomega.Equal(result.KindBoundary))
	})

	ginkgo.It("validates the buffer geometry before running", func() {
		gomega.Expect(app.Gate.Initialize(validKey)).To(gomega.Equal(license.StatusOK))
		ctx := context.Background()

		_, err := app.Router.Capture(ctx, grayRequest("DetectDocumentBoundaries_Default", 100))
		gomega.Expect(err).To(gomega.Succeed())

		_, err = app.Router.Capture(ctx, grayRequest("DetectDocumentBoundaries_Default", 80))
		gomega.Expect(err).To(gomega.MatchError(frame.ErrInvalidBuffer))
	})

	ginkgo.It("decodes a QR code through the barcode runner", func() {
		gomega.Expect(app.Gate.Initialize(validKey)).To(gomega.Equal(license.StatusOK))

		records, err := app.Router.Capture(context.Background(), qrRequest("capture me"))
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(records).To(gomega.HaveLen(1))
		gomega.Expect(records[0].Kind).To(gomega.Equal(result.KindSymbol))
		gomega.Expect(records[0].Payload.Format).To(gomega.Equal("QR_CODE"))
		gomega.Expect(records[0].Payload.Text).To(gomega.Equal("capture me"))
	})

	ginkgo.It("journals every attempt to SQLite", func() {
		ctx := context.Background()
		req := grayRequest("DetectAndNormalizeDocument_Default", 100)
		_, _ = app.Router.Capture(ctx, req)
		gomega.Expect(app.Gate.Initialize(validKey)).To(gomega.Equal(license.StatusOK))
		_, err := app.Router.Capture(ctx, req)
		gomega.Expect(err).To(gomega.Succeed())

		entries, err := app.Journal.List(0)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(entries).To(gomega.HaveLen(2))
		gomega.Expect(entries[0].Category).To(gomega.Equal(capture.CategoryOK))
		gomega.Expect(entries[0].Results).To(gomega.Equal(2))
		gomega.Expect(entries[1].Category).To(gomega.Equal(capture.CategoryLicense))
	})
})

var _ = ginkgo.Describe("Build", func() {
	ginkgo.It("applies a license key from the config", func() {
		cfg := config.Default()
		cfg.License = validKey
		app := build(cfg)
		gomega.Expect(app.Gate.Check()).To(gomega.Succeed())
	})

	ginkgo.It("serves document tasks only with the stub engine", func() {
		cfg := config.Default()
		cfg.Engine.Kind = config.EngineStub
		app := build(cfg)
		gomega.Expect(app.Engine.Handles(template.KindDocument)).To(gomega.BeTrue())
		gomega.Expect(app.Engine.Handles(template.KindBarcode)).To(gomega.BeFalse())
	})

	ginkgo.It("fails on an unknown builtin", func() {
		cfg := config.Default()
		cfg.Builtin = "passport"
		_, err := Build(cfg, WithGate(license.NewGate(license.Offline{})))
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.It("fails on an unknown engine kind", func() {
		cfg := config.Default()
		cfg.Engine.Kind = "gpu"
		_, err := Build(cfg, WithGate(license.NewGate(license.Offline{})))
		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("unknown engine kind")))
	})
})
