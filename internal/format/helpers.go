package format

import (
	"fmt"
	"time"

	"capturevision/internal/engine"
)

// FmtDuration formats d with millisecond precision below a minute and as
// "Xm Ys" above.
func FmtDuration(d time.Duration) string {
	if d >= time.Minute {
		s := int(d.Seconds())
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return d.Round(time.Millisecond).String()
}

// Truncate shortens s to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// FmtQuad renders a quad as its four corners, rounded to whole pixels.
func FmtQuad(q *engine.Quad) string {
	if q == nil {
		return "-"
	}
	return fmt.Sprintf("(%.0f,%.0f) (%.0f,%.0f) (%.0f,%.0f) (%.0f,%.0f)",
		q[0].X, q[0].Y, q[1].X, q[1].Y, q[2].X, q[2].Y, q[3].X, q[3].Y)
}

// FmtConfidence renders an optional score, "-" when absent.
func FmtConfidence(c *float64) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *c)
}
