package result

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"capturevision/internal/engine"
)

var passport = []string{
	"P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<",
	"L898902C36UTO7408122F1204159ZE184226B<<<<<10",
}

func textLine(roi, task, text string, row int) Record {
	y0, y1 := float64(row*10), float64(row*10+8)
	return Record{
		Kind: KindTextLine, ROI: roi, Task: task, Stage: "ST_TEXT_LINE_RECOGNITION",
		Payload: Payload{Text: text, Quad: &engine.Quad{{X: 5, Y: y0}, {X: 95, Y: y0}, {X: 95, Y: y1}, {X: 5, Y: y1}}},
	}
}

func TestParseMRZ_AppendsParsedRecord(t *testing.T) {
	in := []Record{
		textLine("r", "mrz", "REPUBLIC OF UTOPIA", 0),
		textLine("r", "mrz", passport[0], 1),
		textLine("r", "mrz", passport[1], 2),
	}
	out := ParseMRZ(in)
	if len(out) != 4 {
		t.Fatalf("records = %d, want the 3 lines plus one parsed record", len(out))
	}
	if diff := cmp.Diff(in, out[:3]); diff != "" {
		t.Errorf("text lines changed (-want +got):\n%s", diff)
	}
	p := out[3]
	if p.Kind != KindParsed || p.ROI != "r" || p.Task != "mrz" || p.Payload.Format != "MRTD_TD3_PASSPORT" {
		t.Fatalf("parsed record = %+v", p)
	}
	for k, want := range map[string]string{
		"documentNumber": "L898902C3",
		"name":           "ANNA MARIA ERIKSSON",
		"dateOfBirth":    "1974-08-12",
		"dateOfExpiry":   "2012-04-15",
		"issuingState":   "UTO",
	} {
		if got := p.Payload.Attrs[k]; got != want {
			t.Errorf("attr %s = %q, want %q", k, got, want)
		}
	}
	want := engine.Quad{{X: 5, Y: 10}, {X: 95, Y: 10}, {X: 95, Y: 28}, {X: 5, Y: 28}}
	if p.Payload.Quad == nil || *p.Payload.Quad != want {
		t.Errorf("quad = %v, want %v", p.Payload.Quad, want)
	}
}

func TestParseMRZ_LeavesOtherRecordsAlone(t *testing.T) {
	bad := []byte(passport[1])
	bad[9] = '0'
	tests := []struct {
		name string
		in   []Record
	}{
		{"no records", nil},
		{"no text lines", []Record{{Kind: KindSymbol, Payload: Payload{Text: passport[0]}}}},
		{"check digit mismatch", []Record{textLine("r", "mrz", passport[0], 0), textLine("r", "mrz", string(bad), 1)}},
		{"lines split across tasks", []Record{textLine("r", "a", passport[0], 0), textLine("r", "b", passport[1], 1)}},
		{"localization only", []Record{
			{Kind: KindTextLine, ROI: "r", Task: "mrz"},
			{Kind: KindTextLine, ROI: "r", Task: "mrz"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.in, ParseMRZ(tt.in)); diff != "" {
				t.Errorf("records changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseMRZ_DoesNotWriteIntoCallerBuffer(t *testing.T) {
	buf := make([]Record, 2, 8)
	buf[0] = textLine("r", "mrz", passport[0], 0)
	buf[1] = textLine("r", "mrz", passport[1], 1)
	out := ParseMRZ(buf)
	if len(out) != 3 {
		t.Fatalf("records = %d, want 3", len(out))
	}
	if spare := buf[:3][2]; spare.Kind != "" {
		t.Errorf("caller's spare capacity was written: %+v", spare)
	}
}
