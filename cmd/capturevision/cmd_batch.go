package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"capturevision/internal/capture"
	"capturevision/internal/display"
	"capturevision/internal/format"
	"capturevision/internal/logging"
	"capturevision/internal/result"
)

var batchFlags struct {
	pipeline      string
	format        string
	parallel      int
	stable        bool
	maxStable     int
	expectedCount int
}

var batchCmd = &cobra.Command{
	Use:   "batch <images...>",
	Short: "Run a pipeline over many image files",
	Long: `Captures every image concurrently (bounded by --parallel) and prints one row
per image in argument order.

With --stable the images are treated as successive frames of one scene:
decoded symbols are fed in order to a stabilizer, and the command reports
the frame at which the scene settled.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVarP(&batchFlags.pipeline, "pipeline", "p", "", "Pipeline name (required)")
	f.StringVar(&batchFlags.format, "format", "table", "Output format: table or markdown")
	f.IntVar(&batchFlags.parallel, "parallel", 4, "Concurrent captures")
	f.BoolVar(&batchFlags.stable, "stable", false, "Treat images as frames and report symbol stabilisation")
	f.IntVar(&batchFlags.maxStable, "max-stable-frames", result.DefaultMaxStableFrames, "Consecutive matching frames needed with --stable")
	f.IntVar(&batchFlags.expectedCount, "expected-count", 0, "Symbols that settle the scene immediately with --stable (0 = off)")
	_ = batchCmd.MarkFlagRequired("pipeline")
}

type batchItem struct {
	path    string
	records []result.Record
	err     error
	elapsed time.Duration
}

func runBatch(cmd *cobra.Command, args []string) error {
	mode, err := tableMode(batchFlags.format)
	if err != nil {
		return err
	}
	if batchFlags.parallel < 1 {
		return fmt.Errorf("--parallel must be at least 1")
	}
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	logger := logging.New("batch")
	logger.Info("batch started", "images", len(args), "pipeline", batchFlags.pipeline, "workers", batchFlags.parallel)

	items := make([]batchItem, len(args))
	g, gCtx := errgroup.WithContext(cmd.Context())
	g.SetLimit(batchFlags.parallel)
	for i, path := range args {
		g.Go(func() error {
			start := time.Now()
			records, err := captureFile(gCtx, app.Router, path, batchFlags.pipeline)
			items[i] = batchItem{path: path, records: records, err: err, elapsed: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait() // errors captured per item

	tb := format.NewTable(mode)
	tb.Header("#", "Image", "Outcome", "Results", "Elapsed", "Detail")
	var failed int
	for i, it := range items {
		detail := ""
		if it.err != nil {
			failed++
			detail = format.Truncate(it.err.Error(), 60)
		} else if syms := symbolTexts(it.records); syms != "" {
			detail = format.Truncate(syms, 60)
		}
		tb.Row(i+1, filepath.Base(it.path), display.Category(capture.Category(it.err)), len(it.records), format.FmtDuration(it.elapsed), detail)
	}
	tb.Footer("", fmt.Sprintf("%d images", len(items)), fmt.Sprintf("%d failed", failed))
	tb.Columns(format.ColumnConfig{Number: 1, AlignRight: true}, format.ColumnConfig{Number: 4, AlignRight: true})
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tb.String())

	if batchFlags.stable {
		s := &result.Stabilizer{MaxStableFrames: batchFlags.maxStable, ExpectedCount: batchFlags.expectedCount}
		settled := 0
		for i, it := range items {
			if it.err != nil {
				continue
			}
			if s.Observe(it.records) {
				settled = i + 1
				break
			}
		}
		if settled == 0 {
			fmt.Fprintf(out, "Not stable after %d frames (%d consecutive matches)\n", len(items), s.StableFrames())
		} else {
			fmt.Fprintf(out, "Stable at frame %d: %s\n", settled, symbolTexts(s.Symbols()))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d captures failed", failed, len(items))
	}
	return nil
}

func symbolTexts(records []result.Record) string {
	var parts []string
	for _, r := range result.SortByCentre(records) {
		if r.Kind == result.KindSymbol {
			parts = append(parts, r.Payload.Format+": "+r.Payload.Text)
		}
	}
	return strings.Join(parts, ", ")
}
