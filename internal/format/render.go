package format

import (
	"fmt"
	"strings"

	"capturevision/internal/display"
	"capturevision/internal/journal"
	"capturevision/internal/result"
	"capturevision/internal/template"
)

// Records renders capture results, one row per record in result order.
func Records(m Mode, records []result.Record) string {
	tb := NewTable(m)
	tb.Header("#", "Kind", "ROI", "Task", "Stage", "Detail", "Quad", "Conf")
	for i, r := range records {
		tb.Row(i+1, kindLabel(r), r.ROI, r.Task, r.Stage, detail(r), FmtQuad(r.Payload.Quad), FmtConfidence(r.Confidence))
	}
	tb.Footer("", fmt.Sprintf("%d results", len(records)))
	tb.Columns(ColumnConfig{Number: 1, AlignRight: true}, ColumnConfig{Number: 6, MaxWidth: 40})
	return tb.String()
}

func kindLabel(r result.Record) string {
	if r.Kind == result.KindGeneric && r.EngineKind != "" {
		return fmt.Sprintf("%s (%s)", r.Kind, r.EngineKind)
	}
	return string(r.Kind)
}

func detail(r result.Record) string {
	p := r.Payload
	switch {
	case p.Image != nil:
		return fmt.Sprintf("%dx%d image", p.Image.Width, p.Image.Height)
	case p.Format != "" && p.Text != "":
		return p.Format + ": " + Truncate(p.Text, 60)
	case p.Format != "":
		return p.Format
	case p.Text != "":
		return Truncate(p.Text, 60)
	}
	return ""
}

// Graph renders a resolved pipeline, one row per active stage of every task.
func Graph(m Mode, g *template.Graph) string {
	tb := NewTable(m)
	tb.Header("ROI", "Task", "Kind", "Stage", "Profile", "Binarization", "Formats")
	for _, roi := range g.ROIs {
		for _, task := range roi.Tasks {
			formats := "-"
			if task.Kind == template.KindBarcode {
				formats = display.BarcodeFormats(task.BarcodeFormats)
			}
			for _, sp := range task.ActiveStages() {
				profile, bin := "-", "-"
				if sp.Profile != nil {
					profile = sp.Profile.Name
					if mode := sp.Profile.PrimaryBinarization().Mode; mode != "" {
						bin = display.Binarization(mode)
					}
				}
				tb.Row(roi.Name, task.Name, task.Kind, display.StageWithCode(string(sp.Stage)), profile, bin, formats)
			}
		}
	}
	tb.Columns(ColumnConfig{Number: 7, MaxWidth: 30})
	return fmt.Sprintf("Pipeline %s\n%s", g.Pipeline, tb.String())
}

// Pipelines renders a list of pipeline names with their ROI and task counts.
func Pipelines(m Mode, reg *template.Registry) string {
	tb := NewTable(m)
	tb.Header("Pipeline", "ROIs", "Tasks", "Kinds")
	for _, name := range reg.Pipelines() {
		g, err := reg.Resolve(name)
		if err != nil {
			continue
		}
		seen := map[template.TaskKind]bool{}
		var kinds []string
		for _, t := range g.Tasks() {
			if !seen[t.Kind] {
				seen[t.Kind] = true
				kinds = append(kinds, string(t.Kind))
			}
		}
		tb.Row(name, len(g.ROIs), len(g.Tasks()), strings.Join(kinds, ","))
	}
	tb.Columns(ColumnConfig{Number: 2, AlignRight: true}, ColumnConfig{Number: 3, AlignRight: true})
	return tb.String()
}

// Journal renders journal entries in the order given.
func Journal(m Mode, entries []*journal.Entry) string {
	tb := NewTable(m)
	tb.Header("When", "Pipeline", "Size", "Format", "Outcome", "Results", "Elapsed")
	for _, e := range entries {
		outcome := e.Category
		if e.Error != "" {
			outcome += ": " + Truncate(e.Error, 50)
		}
		tb.Row(e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Pipeline,
			fmt.Sprintf("%dx%d", e.Width, e.Height), e.Format, outcome, e.Results, FmtDuration(e.Elapsed))
	}
	tb.Columns(ColumnConfig{Number: 6, AlignRight: true})
	return tb.String()
}
