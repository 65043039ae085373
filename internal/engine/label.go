package engine

import (
	"context"
	"image"

	"capturevision/internal/frame"
	"capturevision/internal/template"
)

// TextLine is one line found by a LineRecognizer.
type TextLine struct {
	Text string
	Quad Quad
}

// LineRecognizer finds and reads text lines in a grayscale image.
type LineRecognizer interface {
	RecognizeLines(ctx context.Context, img *image.Gray) ([]TextLine, error)
}

// LineRecognizerFunc adapts a function to a LineRecognizer.
type LineRecognizerFunc func(ctx context.Context, img *image.Gray) ([]TextLine, error)

func (fn LineRecognizerFunc) RecognizeLines(ctx context.Context, img *image.Gray) ([]TextLine, error) {
	return fn(ctx, img)
}

// LabelRunner runs label tasks. Each line from the recognizer becomes a
// text_line result: with text at ST_TEXT_LINE_RECOGNITION, or as a bare
// location when the task terminates at ST_TEXT_LINE_LOCALIZATION. Without a
// recognizer the runner reports no lines.
type LabelRunner struct {
	Recognizer LineRecognizer
}

func (r LabelRunner) RunTask(ctx context.Context, f *frame.RawFrame, task *template.Task) ([]Result, error) {
	locate := task.Runs(template.StageTextLineLocalization)
	read := task.Runs(template.StageTextLineRecognition)
	if r.Recognizer == nil || (!locate && !read) {
		return nil, nil
	}
	lines, err := r.Recognizer.RecognizeLines(ctx, f.Luma())
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(lines))
	for _, l := range lines {
		q := l.Quad
		res := Result{Kind: KindTextLine, Stage: template.StageTextLineLocalization, Quad: &q}
		if read {
			res.Stage = template.StageTextLineRecognition
			res.Text = l.Text
		}
		out = append(out, res)
	}
	return out, nil
}
