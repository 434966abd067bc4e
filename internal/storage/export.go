package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/lumasim/internal/dynamo"
	"github.com/san-kum/lumasim/internal/experiment"
	"github.com/san-kum/lumasim/internal/metrics"
)

type ExportData struct {
	Name       string             `json:"name"`
	Integrator string             `json:"integrator"`
	Controller string             `json:"controller"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Plant      dynamo.PlantParams `json:"plant"`
	PID        Tuning             `json:"pid"`
	Metrics    map[string]float64 `json:"metrics"`
	Summary    *metrics.Summary   `json:"summary,omitempty"`
	Trace      *dynamo.Trace      `json:"trace"`
}

// ExportJSON writes the configuration, scores and full trace of one run.
func ExportJSON(w io.Writer, cfg experiment.Config, result *experiment.Result) error {
	data := ExportData{
		Name:       cfg.Name,
		Integrator: cfg.Integrator,
		Controller: cfg.Controller,
		Dt:         result.Trace.Grid.Dt,
		Steps:      result.Trace.Grid.Steps,
		Plant:      cfg.Plant,
		PID:        NewTuning(cfg.PID),
		Metrics:    finiteOnly(result.Metrics),
		Trace:      result.Trace,
	}
	if result.Summary.Finite() {
		data.Summary = &result.Summary
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
