package result

import (
	"math"
	"slices"
)

// DefaultMaxStableFrames is the number of consecutive matching frames after
// which a Stabilizer reports done.
const DefaultMaxStableFrames = 10

// centreTolerance is the per-axis distance, in pixels, within which two
// symbols count as the same placement.
const centreTolerance = 30

// SortByCentre returns a copy of records ordered by quad centre, x first then
// y. Records without a quad keep their relative order after the rest.
func SortByCentre(records []Record) []Record {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b Record) int {
		qa, qb := a.Payload.Quad, b.Payload.Quad
		switch {
		case qa == nil && qb == nil:
			return 0
		case qa == nil:
			return 1
		case qb == nil:
			return -1
		}
		ca, cb := qa.Centre(), qb.Centre()
		if ca.X != cb.X {
			return cmpFloat(ca.X, cb.X)
		}
		return cmpFloat(ca.Y, cb.Y)
	})
	return out
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Stabilizer watches the decoded symbols of successive captures of the same
// scene and decides when the reading can be trusted.
type Stabilizer struct {
	// MaxStableFrames defaults to DefaultMaxStableFrames when zero.
	MaxStableFrames int
	// ExpectedCount, when positive, finishes as soon as a frame decodes at
	// least that many symbols.
	ExpectedCount int

	reference []Record
	stable    int
	last      []Record
}

// Observe feeds one capture's records and reports whether the reading is
// done. Only decoded symbols are considered.
func (s *Stabilizer) Observe(records []Record) bool {
	var symbols []Record
	for _, r := range records {
		if r.Kind == KindSymbol {
			symbols = append(symbols, r)
		}
	}
	if len(symbols) == 0 {
		s.stable = 1
		return false
	}
	symbols = SortByCentre(symbols)
	s.last = symbols

	if s.ExpectedCount > 0 && len(symbols) >= s.ExpectedCount {
		return true
	}
	if s.reference == nil || !sameScene(s.reference, symbols) {
		s.reference = symbols
		s.stable = 1
		return false
	}
	s.stable++
	limit := s.MaxStableFrames
	if limit <= 0 {
		limit = DefaultMaxStableFrames
	}
	return s.stable >= limit
}

// Symbols returns the sorted symbols of the most recent frame that had any.
func (s *Stabilizer) Symbols() []Record { return s.last }

// StableFrames returns the current run of consecutive matching frames.
func (s *Stabilizer) StableFrames() int { return s.stable }

func sameScene(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Payload.Format != b[i].Payload.Format || a[i].Payload.Text != b[i].Payload.Text {
			return false
		}
		qa, qb := a[i].Payload.Quad, b[i].Payload.Quad
		if qa == nil || qb == nil {
			if qa != qb {
				return false
			}
			continue
		}
		ca, cb := qa.Centre(), qb.Centre()
		if math.Abs(ca.X-cb.X) > centreTolerance || math.Abs(ca.Y-cb.Y) > centreTolerance {
			return false
		}
	}
	return true
}
