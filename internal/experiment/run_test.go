package experiment

import (
	"context"
	"testing"

	"github.com/todd866/oscillab/internal/codec"
)

func testPairConfig() PairConfig {
	return PairConfig{
		N:             32,
		Coupling:      0.5,
		FreqSpread:    0.35,
		NoiseStd:      0.3,
		Dt:            0.1,
		Mode:          codec.ModeFourier,
		Bandwidth:     4,
		Gain:          1.0,
		DriverSeed:    42,
		ResponderSeed: 137,
		CodecSeed:     7,
		BurnIn:        50,
		Measure:       100,
	}
}

func TestRunPairValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*PairConfig)
	}{
		{"too few oscillators", func(c *PairConfig) { c.N = 2 }},
		{"negative coupling", func(c *PairConfig) { c.Coupling = -1 }},
		{"negative noise", func(c *PairConfig) { c.NoiseStd = -1 }},
		{"zero dt", func(c *PairConfig) { c.Dt = 0 }},
		{"zero bandwidth", func(c *PairConfig) { c.Bandwidth = 0 }},
		{"bandwidth beyond n/2", func(c *PairConfig) { c.Bandwidth = 17 }},
		{"negative gain", func(c *PairConfig) { c.Gain = -1 }},
		{"zero measure", func(c *PairConfig) { c.Measure = 0 }},
		{"negative burn-in", func(c *PairConfig) { c.BurnIn = -1 }},
	}

	for _, tc := range cases {
		cfg := testPairConfig()
		tc.mutate(&cfg)
		if _, err := RunPair(context.Background(), cfg); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestRunPairDeterminism(t *testing.T) {
	cfg := testPairConfig()

	a, err := RunPair(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := RunPair(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if a.Mismatch != b.Mismatch || a.Coherence != b.Coherence ||
		a.DriverComplexity != b.DriverComplexity ||
		a.ResponderComplexity != b.ResponderComplexity {
		t.Error("identical configs produced different averages")
	}
	for i := range a.ResponderField {
		if a.ResponderField[i] != b.ResponderField[i] {
			t.Fatalf("responder phase %d diverged across identical runs", i)
		}
	}
}

func TestRunPairDriverUnaffectedByLink(t *testing.T) {
	// The channel is one-directional: the driver trajectory depends only
	// on its own seed, never on bandwidth, gain, or codec.
	base := testPairConfig()

	narrow := base
	narrow.Bandwidth = 1
	wide := base
	wide.Bandwidth = 16
	wide.CodecSeed = 999
	off := base
	off.Gain = 0

	a, err := RunPair(context.Background(), narrow)
	if err != nil {
		t.Fatal(err)
	}
	b, err := RunPair(context.Background(), wide)
	if err != nil {
		t.Fatal(err)
	}
	c, err := RunPair(context.Background(), off)
	if err != nil {
		t.Fatal(err)
	}

	for i := range a.DriverField {
		if a.DriverField[i] != b.DriverField[i] || a.DriverField[i] != c.DriverField[i] {
			t.Fatalf("driver phase %d depends on link settings", i)
		}
	}
}

func TestRunPairHistory(t *testing.T) {
	cfg := testPairConfig()
	cfg.KeepHistory = true
	cfg.Measure = 40

	res, err := RunPair(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Steps != 40 {
		t.Errorf("expected 40 measured steps, got %d", res.Steps)
	}
	if len(res.MismatchHistory) != 40 || len(res.DriverHistory) != 40 || len(res.ResponderHistory) != 40 {
		t.Error("history lengths do not match measured steps")
	}

	cfg.KeepHistory = false
	res, err = RunPair(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.MismatchHistory != nil {
		t.Error("history recorded despite KeepHistory=false")
	}
}

func TestRunPairMetricRanges(t *testing.T) {
	res, err := RunPair(context.Background(), testPairConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.Coherence < 0 || res.Coherence > 1 {
		t.Errorf("coherence %f outside [0,1]", res.Coherence)
	}
	if res.Mismatch < 0 || res.Mismatch > 1 {
		t.Errorf("mismatch %f outside [0,1]", res.Mismatch)
	}
	if res.DriverComplexity < 1 || res.DriverComplexity > 16 {
		t.Errorf("driver complexity %f outside [1, n/2]", res.DriverComplexity)
	}
}

func TestRunPairReferenceScenario(t *testing.T) {
	// Long-run behavior at the calibrated defaults. A k=4 channel keeps
	// the driver rich while collapsing the responder onto a few modes
	// with a large residual mismatch; the full channel lets the
	// responder track the driver closely. Margins are generous on
	// purpose; the direction of each contrast is the claim.
	if testing.Short() {
		t.Skip("long reference run")
	}

	cfg := PairConfig{
		N:             64,
		Coupling:      0.5,
		FreqSpread:    0.35,
		NoiseStd:      0.3,
		Dt:            0.1,
		Mode:          codec.ModeFourier,
		Bandwidth:     4,
		Gain:          1.0,
		DriverSeed:    42,
		ResponderSeed: 137,
		CodecSeed:     42,
		BurnIn:        500,
		Measure:       500,
	}

	narrow, err := RunPair(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if narrow.DriverComplexity < 5 || narrow.DriverComplexity > 15 {
		t.Errorf("driver complexity %.2f outside the calibrated band", narrow.DriverComplexity)
	}
	if narrow.ResponderComplexity < 1.2 || narrow.ResponderComplexity > 6 {
		t.Errorf("k=4 responder complexity %.2f not collapsed onto a few modes", narrow.ResponderComplexity)
	}
	if narrow.Mismatch <= 0.2 {
		t.Errorf("k=4 mismatch %.3f too low for a narrow channel", narrow.Mismatch)
	}

	cfg.Bandwidth = 32
	wide, err := RunPair(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if wide.Mismatch >= 0.12 {
		t.Errorf("k=32 mismatch %.3f: responder failed to lock", wide.Mismatch)
	}
	if wide.ResponderComplexity < 0.6*wide.DriverComplexity {
		t.Errorf("k=32 responder complexity %.2f not approaching driver %.2f",
			wide.ResponderComplexity, wide.DriverComplexity)
	}
	if wide.Mismatch >= narrow.Mismatch {
		t.Errorf("mismatch did not fall with bandwidth: k=4 %.3f vs k=32 %.3f",
			narrow.Mismatch, wide.Mismatch)
	}
}

func TestRunPairCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := RunPair(ctx, testPairConfig()); err == nil {
		t.Error("expected error from cancelled context")
	}
}
