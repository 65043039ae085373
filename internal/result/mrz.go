package result

import (
	"math"
	"slices"

	"capturevision/internal/engine"
	"capturevision/internal/mrz"
	"capturevision/internal/template"
)

// ParseMRZ appends a parsed_result record for every machine readable zone
// found in the text lines of records. Lines are grouped per ROI and task
// and tried in order, three lines (TD1) before two (TD2, TD3). Lines that
// fail to parse or fail a check digit are left as plain text lines.
func ParseMRZ(records []Record) []Record {
	type key struct{ roi, task string }
	var order []key
	groups := map[key][]int{}
	for i, r := range records {
		if r.Kind != KindTextLine || r.Payload.Text == "" {
			continue
		}
		k := key{r.ROI, r.Task}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	out := slices.Clip(records)
	for _, k := range order {
		idx := groups[k]
		for i := 0; i < len(idx); {
			n, d := parseAt(records, idx[i:])
			if d == nil {
				i++
				continue
			}
			out = append(out, Record{
				Kind:  KindParsed,
				ROI:   k.roi,
				Task:  k.task,
				Stage: string(template.StageTextLineRecognition),
				Payload: Payload{
					Quad:   bounds(records, idx[i:i+n]),
					Format: d.CodeType,
					Text:   d.Text,
					Attrs:  d.Attrs(),
				},
			})
			i += n
		}
	}
	return out
}

func parseAt(records []Record, idx []int) (int, *mrz.Data) {
	for _, n := range []int{3, 2} {
		if len(idx) < n {
			continue
		}
		lines := make([]string, n)
		for j := range lines {
			lines[j] = records[idx[j]].Payload.Text
		}
		if d, err := mrz.Parse(lines); err == nil {
			return n, d
		}
	}
	return 0, nil
}

// bounds returns the axis-aligned quad around the lines' quads, or nil when
// none carries one.
func bounds(records []Record, idx []int) *engine.Quad {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, i := range idx {
		q := records[i].Payload.Quad
		if q == nil {
			continue
		}
		for _, p := range q {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	if math.IsInf(minX, 1) {
		return nil
	}
	return &engine.Quad{{X: minX, Y: minY}, {X: maxX, Y: minY}, {X: maxX, Y: maxY}, {X: minX, Y: maxY}}
}
