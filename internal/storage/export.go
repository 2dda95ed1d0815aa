package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/newtonsolve/internal/newton"
)

type ExportRecord struct {
	Iteration int    `json:"iteration"`
	Coef      Float  `json:"coef"`
	EpsBefore Float  `json:"eps_before"`
	EpsAfter  Float  `json:"eps_after"`
	TrialEps  Float  `json:"trial_eps"`
	Before    Vector `json:"before"`
	After     Vector `json:"after"`
	Step      Vector `json:"step"`
}

type ExportData struct {
	Run      RunMetadata    `json:"run"`
	Epsilons Vector         `json:"epsilons"`
	Records  []ExportRecord `json:"records"`
}

// ExportJSON writes the run metadata together with its full trace.
func ExportJSON(w io.Writer, meta *RunMetadata, trace *newton.Trace) error {
	data := ExportData{Run: *meta, Records: []ExportRecord{}}
	if trace != nil {
		data.Epsilons = Vector(trace.Epsilons())
		for _, r := range trace.Records() {
			data.Records = append(data.Records, ExportRecord{
				Iteration: r.Iteration,
				Coef:      Float(r.Coef),
				EpsBefore: Float(r.EpsBefore),
				EpsAfter:  Float(r.EpsAfter),
				TrialEps:  Float(r.TrialEps),
				Before:    Vector(r.Before),
				After:     Vector(r.After),
				Step:      Vector(r.Step),
			})
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
