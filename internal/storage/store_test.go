package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/todd866/oscillab/internal/codec"
	"github.com/todd866/oscillab/internal/experiment"
)

func smallSweep(t *testing.T) *experiment.SweepResult {
	t.Helper()
	res, err := experiment.RunSweep(context.Background(), experiment.SweepConfig{
		N:           16,
		Coupling:    0.5,
		FreqSpread:  0.35,
		NoiseStd:    0.3,
		Dt:          0.1,
		Mode:        codec.ModeFourier,
		Bandwidths:  []int{1, 4, 8},
		Gain:        1.0,
		Trials:      2,
		BurnIn:      20,
		Measure:     30,
		BaseSeed:    42,
		WithControl: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestSaveAndLoad(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	res := smallSweep(t)
	runID, err := store.SaveSweep(res)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(runID, "sweep_") {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := store.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.ID != runID {
		t.Errorf("metadata id %q, want %q", meta.ID, runID)
	}
	if meta.N != 16 || meta.Codec != "fourier" || meta.Seed != 42 {
		t.Errorf("metadata lost config fields: %+v", meta)
	}
	if len(meta.Checks) != len(res.Checks) {
		t.Errorf("expected %d checks in metadata, got %d", len(res.Checks), len(meta.Checks))
	}
	if meta.Passed != res.Passed() {
		t.Error("metadata verdict disagrees with sweep result")
	}
}

func TestCSVShape(t *testing.T) {
	store := New(t.TempDir())
	res := smallSweep(t)
	runID, err := store.SaveSweep(res)
	if err != nil {
		t.Fatal(err)
	}

	records, err := store.LoadCSV(runID)
	if err != nil {
		t.Fatal(err)
	}

	// Header plus sweep and control rows for every bandwidth.
	want := 1 + 2*len(res.Rows)
	if len(records) != want {
		t.Fatalf("expected %d records, got %d", want, len(records))
	}
	if records[0][0] != "mode" || records[0][1] != "bandwidth" {
		t.Errorf("unexpected header: %v", records[0])
	}
	sweeps, controls := 0, 0
	for _, rec := range records[1:] {
		switch rec[0] {
		case "sweep":
			sweeps++
		case "control":
			controls++
		default:
			t.Errorf("unexpected row mode %q", rec[0])
		}
	}
	if sweeps != len(res.Rows) || controls != len(res.ControlRows) {
		t.Errorf("row counts: %d sweep, %d control", sweeps, controls)
	}
}

func TestList(t *testing.T) {
	store := New(t.TempDir())

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs in empty store, got %d", len(runs))
	}

	res := smallSweep(t)
	if _, err := store.SaveSweep(res); err != nil {
		t.Fatal(err)
	}

	runs, err = store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
}

func TestExport(t *testing.T) {
	store := New(t.TempDir())
	res := smallSweep(t)
	runID, err := store.SaveSweep(res)
	if err != nil {
		t.Fatal(err)
	}

	var csvBuf bytes.Buffer
	if err := store.ExportCSVTo(&csvBuf, runID); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(csvBuf.String(), "mode,bandwidth") {
		t.Error("CSV export missing header")
	}

	var jsonBuf bytes.Buffer
	if err := store.ExportJSONTo(&jsonBuf, runID); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Metadata *RunMetadata `json:"metadata"`
		Rows     [][]string   `json:"rows"`
	}
	if err := json.Unmarshal(jsonBuf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Metadata == nil || doc.Metadata.ID != runID {
		t.Error("JSON export missing metadata")
	}
	if len(doc.Rows) == 0 {
		t.Error("JSON export missing rows")
	}
}

func TestLoadMissingRun(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Load("sweep_0"); err == nil {
		t.Error("expected error for missing run")
	}
	if _, err := store.LoadCSV("sweep_0"); err == nil {
		t.Error("expected error for missing csv")
	}
}
