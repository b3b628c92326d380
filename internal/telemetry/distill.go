package telemetry

import (
	"fmt"
	"sort"
	"strings"
)

// Thresholds gate which stored patterns are trusted enough to surface as
// candidate direct rules.
type Thresholds struct {
	Confidence float64
	Usage      int
	Success    float64
}

// DefaultThresholds returns the standard review gate.
func DefaultThresholds() Thresholds {
	return Thresholds{Confidence: 0.95, Usage: 50, Success: 0.99}
}

// Distill returns the stored patterns meeting every threshold, most used
// first.
func Distill(store PatternStore, th Thresholds) []Pattern {
	var out []Pattern
	for _, p := range store.All() {
		if p.Confidence >= th.Confidence && p.UsageCount >= th.Usage && p.SuccessRate >= th.Success {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UsageCount > out[j].UsageCount })
	return out
}

// RenderStubs formats distilled patterns as dispatch-table arms. The output
// is a fragment for review, not a compilable file; accepted arms get pasted
// into the generator tables by hand.
func RenderStubs(ps []Pattern, th Thresholds) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// %d candidate rules (confidence >= %.2f, usage >= %d, success >= %.2f)\n",
		len(ps), th.Confidence, th.Usage, th.Success)
	for _, p := range ps {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "// %s: confidence %.3f, %d uses, success %.3f\n",
			p.ID, p.Confidence, p.UsageCount, p.SuccessRate)
		if p.ErrorPrevented != "" {
			fmt.Fprintf(&b, "// prevents %s\n", p.ErrorPrevented)
		}
		fmt.Fprintf(&b, "case %q:\n\treturn %q, true\n", p.SourcePattern, p.TargetOutput)
	}
	return b.String()
}
