package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"capturevision/internal/capture"
	"capturevision/internal/format"
	"capturevision/internal/imageio"
	"capturevision/internal/result"
)

var captureFlags struct {
	pipeline string
	format   string
	outDir   string
}

var captureCmd = &cobra.Command{
	Use:   "capture <image>",
	Short: "Run a pipeline over one image file",
	Long: `Decodes an image file (png, jpeg, gif, bmp, tiff, webp) and runs the named
pipeline over it. Results are printed in engine order.

With --out, normalized document images are written there as PNG files
named <image>-<n>.png.`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

func init() {
	f := captureCmd.Flags()
	f.StringVarP(&captureFlags.pipeline, "pipeline", "p", "", "Pipeline name (required)")
	f.StringVar(&captureFlags.format, "format", "table", "Output format: table, markdown or json")
	f.StringVar(&captureFlags.outDir, "out", "", "Directory for normalized images")
	_ = captureCmd.MarkFlagRequired("pipeline")
}

// captureReport is the JSON form of one capture.
type captureReport struct {
	Image    string          `json:"image"`
	Pipeline string          `json:"pipeline"`
	Category string          `json:"category"`
	Error    string          `json:"error,omitempty"`
	Records  []result.Record `json:"records"`
	Written  []string        `json:"written,omitempty"`
}

func runCapture(cmd *cobra.Command, args []string) error {
	var mode format.Mode
	if captureFlags.format != "json" {
		m, err := tableMode(captureFlags.format)
		if err != nil {
			return err
		}
		mode = m
	}
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	records, err := captureFile(cmd.Context(), app.Router, args[0], captureFlags.pipeline)
	if err != nil {
		if captureFlags.format == "json" {
			_ = writeJSON(cmd.OutOrStdout(), captureReport{
				Image: args[0], Pipeline: captureFlags.pipeline,
				Category: capture.Category(err), Error: err.Error(), Records: []result.Record{},
			})
		}
		return fmt.Errorf("capture %s (%s): %w", args[0], capture.Category(err), err)
	}

	var written []string
	if captureFlags.outDir != "" {
		written, err = writeImages(captureFlags.outDir, args[0], records)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if captureFlags.format == "json" {
		if records == nil {
			records = []result.Record{}
		}
		return writeJSON(out, captureReport{
			Image: args[0], Pipeline: captureFlags.pipeline,
			Category: capture.CategoryOK, Records: records, Written: written,
		})
	}
	fmt.Fprintln(out, format.Records(mode, records))
	for _, p := range written {
		fmt.Fprintf(out, "Wrote %s\n", p)
	}
	return nil
}

func captureFile(ctx context.Context, r *capture.Router, path, pipeline string) ([]result.Record, error) {
	buf, err := imageio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return r.Capture(ctx, capture.Request{
		Data:     buf.Data,
		Width:    buf.Width,
		Height:   buf.Height,
		Stride:   buf.Stride,
		Format:   buf.Format,
		Pipeline: pipeline,
	})
}

// writeImages writes every image-bearing record to dir as PNG.
func writeImages(dir, source string, records []result.Record) ([]string, error) {
	base := filepath.Base(source)
	base = base[:len(base)-len(filepath.Ext(base))]
	var written []string
	for i, r := range records {
		if r.Payload.Image == nil {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s-%d.png", base, i+1))
		if err := imageio.WritePNG(path, r.Payload.Image.Gray()); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

