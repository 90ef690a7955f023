// Package storage persists sweep results under a data directory, one
// run per directory with metadata.json and sweep.csv. The engine
// packages never touch the filesystem; this layer belongs to the CLI
// harness.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/todd866/oscillab/internal/experiment"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	N          int     `json:"n"`
	Coupling   float64 `json:"coupling"`
	FreqSpread float64 `json:"freq_spread"`
	NoiseStd   float64 `json:"noise_std"`
	Dt         float64 `json:"dt"`
	Codec      string  `json:"codec"`
	Gain       float64 `json:"gain"`
	Bandwidths []int   `json:"bandwidths"`
	Trials     int     `json:"trials"`
	BurnIn     int     `json:"burn_in"`
	Measure    int     `json:"measure"`
	Seed       int64   `json:"seed"`

	Checks  []experiment.Check `json:"checks"`
	Passed  bool               `json:"passed"`
	Elapsed string             `json:"elapsed"`
}

var csvHeader = []string{
	"mode", "bandwidth",
	"driver_cx", "driver_cx_std",
	"responder_cx", "responder_cx_std",
	"coherence",
	"mismatch", "mismatch_std",
	"trials",
}

// SaveSweep writes one run directory and returns its id.
func (s *Store) SaveSweep(res *experiment.SweepResult) (string, error) {
	runID := fmt.Sprintf("sweep_%d", time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	cfg := res.Config
	meta := RunMetadata{
		ID:         runID,
		Timestamp:  time.Now(),
		N:          cfg.N,
		Coupling:   cfg.Coupling,
		FreqSpread: cfg.FreqSpread,
		NoiseStd:   cfg.NoiseStd,
		Dt:         cfg.Dt,
		Codec:      string(cfg.Mode),
		Gain:       cfg.Gain,
		Bandwidths: cfg.Bandwidths,
		Trials:     cfg.Trials,
		BurnIn:     cfg.BurnIn,
		Measure:    cfg.Measure,
		Seed:       cfg.BaseSeed,
		Checks:     res.Checks,
		Passed:     res.Passed(),
		Elapsed:    res.Elapsed.String(),
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "sweep.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := writeCSV(csvFile, res); err != nil {
		return "", err
	}
	return runID, nil
}

func writeCSV(out io.Writer, res *experiment.SweepResult) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return err
	}
	if err := writeRows(w, "sweep", res.Rows); err != nil {
		return err
	}
	if err := writeRows(w, "control", res.ControlRows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeRows(w *csv.Writer, mode string, rows []experiment.BandwidthStats) error {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for _, row := range rows {
		record := []string{
			mode,
			strconv.Itoa(row.Bandwidth),
			f(row.DriverComplexity), f(row.DriverComplexityStd),
			f(row.ResponderComplexity), f(row.ResponderComplexityStd),
			f(row.Coherence),
			f(row.Mismatch), f(row.MismatchStd),
			strconv.Itoa(row.Trials),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

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
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadCSV returns the raw sweep rows, header first.
func (s *Store) LoadCSV(runID string) ([][]string, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "sweep.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	return r.ReadAll()
}

// ExportCSVTo streams a run's CSV to the writer.
func (s *Store) ExportCSVTo(out io.Writer, runID string) error {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "sweep.csv"))
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(out, file)
	return err
}

// ExportJSONTo writes a run's metadata and rows as one JSON document.
func (s *Store) ExportJSONTo(out io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	records, err := s.LoadCSV(runID)
	if err != nil {
		return err
	}

	doc := struct {
		Metadata *RunMetadata `json:"metadata"`
		Rows     [][]string   `json:"rows"`
	}{Metadata: meta, Rows: records}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
