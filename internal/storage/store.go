package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/lumasim/internal/dynamo"
	"github.com/san-kum/lumasim/internal/experiment"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
)

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Tuning is the JSON form of dynamo.ControllerParams. JSON has no infinity,
// so a disabled integral is stored as a missing tau_i.
type Tuning struct {
	Gain           float64  `json:"kc"`
	IntegralTime   *float64 `json:"tau_i,omitempty"`
	DerivativeTime float64  `json:"tau_d"`
	OutputLow      float64  `json:"op_lo"`
	OutputHigh     float64  `json:"op_hi"`
}

func NewTuning(p dynamo.ControllerParams) Tuning {
	t := Tuning{
		Gain:           p.Gain,
		DerivativeTime: p.DerivativeTime,
		OutputLow:      p.OutputLow,
		OutputHigh:     p.OutputHigh,
	}
	if !math.IsInf(p.IntegralTime, 1) {
		ti := p.IntegralTime
		t.IntegralTime = &ti
	}
	return t
}

func (t Tuning) Params() dynamo.ControllerParams {
	ti := math.Inf(1)
	if t.IntegralTime != nil {
		ti = *t.IntegralTime
	}
	return dynamo.ControllerParams{
		Gain:           t.Gain,
		IntegralTime:   ti,
		DerivativeTime: t.DerivativeTime,
		OutputLow:      t.OutputLow,
		OutputHigh:     t.OutputHigh,
	}
}

type RunMetadata struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Timestamp      time.Time          `json:"timestamp"`
	Dt             float64            `json:"dt"`
	Steps          int                `json:"steps"`
	Integrator     string             `json:"integrator"`
	Controller     string             `json:"controller"`
	Plant          dynamo.PlantParams `json:"plant"`
	PID            Tuning             `json:"pid"`
	SaturatedSteps int                `json:"saturated_steps"`
	FinalPV        float64            `json:"final_pv"`
	Metrics        map[string]float64 `json:"metrics"`
}

func (m RunMetadata) Grid() dynamo.Grid {
	return dynamo.Grid{Dt: m.Dt, Steps: m.Steps}
}

// Save writes a run directory holding metadata.json and trace.csv and
// returns its id.
func (s *Store) Save(cfg experiment.Config, result *experiment.Result) (string, error) {
	if result == nil || result.Trace == nil {
		return "", errors.New("storage: nothing to save")
	}
	if err := s.Init(); err != nil {
		return "", err
	}

	now := s.now()
	runID, runDir, err := s.makeRunDir(cfg.Name, now)
	if err != nil {
		return "", err
	}

	tr := result.Trace
	meta := RunMetadata{
		ID:             runID,
		Name:           cfg.Name,
		Timestamp:      now,
		Dt:             tr.Grid.Dt,
		Steps:          tr.Grid.Steps,
		Integrator:     cfg.Integrator,
		Controller:     cfg.Controller,
		Plant:          cfg.Plant,
		PID:            NewTuning(cfg.PID),
		SaturatedSteps: tr.SaturationCount(),
		FinalPV:        tr.ProcessValue[tr.Len()-1],
		Metrics:        finiteOnly(result.Metrics),
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, traceFile))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := WriteTraceCSV(f, tr); err != nil {
		return "", err
	}
	return runID, f.Close()
}

func (s *Store) makeRunDir(name string, now time.Time) (string, string, error) {
	if name == "" {
		name = "run"
	}
	base := fmt.Sprintf("%s_%d", name, now.Unix())
	for n := 0; ; n++ {
		id := base
		if n > 0 {
			id = fmt.Sprintf("%s-%d", base, n)
		}
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
	}
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadTrace reads the stored trace back, with the grid taken from the
// metadata rather than re-derived from the time column.
func (s *Store) LoadTrace(runID string) (*dynamo.Trace, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tr, err := ReadTraceCSV(f)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if tr.Len() != meta.Grid().Len() {
		return nil, fmt.Errorf("run %s: trace has %d rows, metadata expects %d", runID, tr.Len(), meta.Grid().Len())
	}
	tr.Grid = meta.Grid()
	return tr, nil
}

func finiteOnly(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}
