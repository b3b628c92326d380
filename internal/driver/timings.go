package driver

import (
	"encoding/json"
	"fmt"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/observ"
	"github.com/paiml/depyler/internal/source"
)

// timingPayload is the machine-readable form of a phase report, carried
// as a note on the timing diagnostic so --format json consumers get it
// without a side channel.
type timingPayload struct {
	Kind   string               `json:"kind"`
	Path   string               `json:"path,omitempty"`
	Total  float64              `json:"total_ms"`
	Phases []observ.PhaseReport `json:"phases"`
}

// appendTimingDiagnostic attaches the report as an info entry. A full bag
// grows by one slot rather than dropping the report.
func appendTimingDiagnostic(bag *diag.Bag, payload timingPayload) {
	if bag == nil {
		return
	}
	if payload.Kind == "" {
		payload.Kind = "pipeline"
	}
	msg := fmt.Sprintf("timings (%s): total %.2f ms", payload.Kind, payload.Total)
	if payload.Path != "" {
		msg = fmt.Sprintf("%s, %s", msg, payload.Path)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	entry := diag.Diagnostic{
		Severity: diag.SevInfo,
		Code:     diag.PrjTimings,
		Message:  msg,
		Primary:  source.Span{},
		Notes: []diag.Note{
			{Span: source.Span{}, Msg: string(data)},
		},
	}

	if bag.Add(entry) {
		return
	}
	overflow := diag.NewBag(bag.Len() + 1)
	overflow.Add(entry)
	bag.Merge(overflow)
}
