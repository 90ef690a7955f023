package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"github.com/todd866/oscillab/internal/config"
	"github.com/todd866/oscillab/internal/experiment"
	"github.com/todd866/oscillab/internal/storage"
	"github.com/todd866/oscillab/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string

	n          int
	coupling   float64
	freqSpread float64
	noiseStd   float64
	dt         float64

	codecMode  string
	bandwidth  int
	bandwidths []int
	gain       float64

	trials  int
	burnIn  int
	measure int

	seed          int64
	driverSeed    int64
	responderSeed int64

	workers   int
	control   bool
	strict    bool
	saveRun   bool
	frameRate int
)

// main registers the CLI commands. Without a subcommand it opens the
// live view with the default configuration.
func main() {
	rootCmd := &cobra.Command{
		Use:   "oscillab",
		Short: "bandwidth-limited coupled-oscillator lab",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd, args)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".oscillab", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one driver/responder pair and report time-averaged metrics",
		RunE:  runPair,
	}
	addEngineFlags(runCmd)
	runCmd.Flags().Int64Var(&driverSeed, "driver-seed", 42, "driver lattice seed")
	runCmd.Flags().Int64Var(&responderSeed, "responder-seed", 137, "responder lattice seed")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a multi-trial bandwidth sweep with pass/fail checks",
		RunE:  runSweep,
	}
	addEngineFlags(sweepCmd)
	sweepCmd.Flags().IntSliceVar(&bandwidths, "bandwidths", []int{1, 2, 4, 8, 16, 32}, "bandwidth list (ascending)")
	sweepCmd.Flags().IntVar(&trials, "trials", config.DefaultTrials, "independent trials per bandwidth")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent trial units (0 = one per cpu)")
	sweepCmd.Flags().BoolVar(&control, "control", true, "run the gain=0 control sweep alongside")
	sweepCmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when a check fails")
	sweepCmd.Flags().BoolVar(&saveRun, "save", false, "persist the sweep under the data directory")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "watch the pair evolve with live-tunable parameters",
		RunE:  runLive,
	}
	addEngineFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved sweeps",
		RunE:  listRuns,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a saved sweep to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportCSVTo(os.Stdout, args[0])
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a saved sweep to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSONTo(os.Stdout, args[0])
		},
	}

	rootCmd.AddCommand(runCmd, sweepCmd, liveCmd, presetsCmd, listCmd, exportCSVCmd, exportJSONCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset configuration name")
	cmd.Flags().IntVar(&n, "n", config.DefaultN, "oscillators per ring")
	cmd.Flags().Float64Var(&coupling, "coupling", config.DefaultCoupling, "ring coupling strength")
	cmd.Flags().Float64Var(&freqSpread, "freq-spread", config.DefaultFreqSpread, "natural frequency spread")
	cmd.Flags().Float64Var(&noiseStd, "noise", config.DefaultNoiseStd, "noise standard deviation")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().StringVar(&codecMode, "codec", "fourier", "codec mode (fourier|random)")
	cmd.Flags().IntVar(&bandwidth, "bandwidth", config.DefaultBandwidth, "channel bandwidth k")
	cmd.Flags().Float64Var(&gain, "gain", config.DefaultGain, "feedback gain")
	cmd.Flags().IntVar(&burnIn, "burn-in", config.DefaultBurnIn, "discarded burn-in steps")
	cmd.Flags().IntVar(&measure, "measure", config.DefaultMeasure, "measurement steps")
	cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "base seed")
}

// buildConfig layers preset, config file, and changed flags over the
// defaults, then validates at this boundary.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("n") {
		cfg.N = n
	}
	if flags.Changed("coupling") {
		cfg.Coupling = coupling
	}
	if flags.Changed("freq-spread") {
		cfg.FreqSpread = freqSpread
	}
	if flags.Changed("noise") {
		cfg.NoiseStd = noiseStd
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("codec") {
		cfg.Codec = codecMode
	}
	if flags.Changed("bandwidth") {
		cfg.Bandwidth = bandwidth
	}
	if flags.Changed("bandwidths") {
		cfg.Bandwidths = bandwidths
	}
	if flags.Changed("gain") {
		cfg.Gain = gain
	}
	if flags.Changed("trials") {
		cfg.Trials = trials
	}
	if flags.Changed("burn-in") {
		cfg.BurnIn = burnIn
	}
	if flags.Changed("measure") {
		cfg.Measure = measure
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("driver-seed") {
		cfg.DriverSeed = driverSeed
	}
	if flags.Changed("responder-seed") {
		cfg.ResponderSeed = responderSeed
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("control") {
		cfg.Control = control
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runPair(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("running pair: n=%d k=%d gain=%.2f codec=%s\n", cfg.N, cfg.Bandwidth, cfg.Gain, cfg.Codec)
	start := time.Now()

	result, err := experiment.RunPair(signalContext(), experiment.PairConfig{
		N:             cfg.N,
		Coupling:      cfg.Coupling,
		FreqSpread:    cfg.FreqSpread,
		NoiseStd:      cfg.NoiseStd,
		Dt:            cfg.Dt,
		Mode:          cfg.Mode(),
		Bandwidth:     cfg.Bandwidth,
		Gain:          cfg.Gain,
		DriverSeed:    cfg.DriverSeed,
		ResponderSeed: cfg.ResponderSeed,
		CodecSeed:     cfg.Seed,
		BurnIn:        cfg.BurnIn,
		Measure:       cfg.Measure,
		KeepHistory:   true,
	})
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v (%d measured steps)\n\n", time.Since(start), result.Steps)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	fmt.Fprintf(w, "driver complexity\t%.3f\n", result.DriverComplexity)
	fmt.Fprintf(w, "responder complexity\t%.3f\n", result.ResponderComplexity)
	fmt.Fprintf(w, "cross coherence\t%.3f\n", result.Coherence)
	fmt.Fprintf(w, "phase mismatch\t%.3f\n", result.Mismatch)
	w.Flush()

	fmt.Println()
	fmt.Println(asciigraph.Plot(result.MismatchHistory,
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.Caption("phase mismatch"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(result.ResponderHistory,
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.Caption("responder complexity"),
	))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	result, err := experiment.RunSweep(signalContext(), experiment.SweepConfig{
		N:           cfg.N,
		Coupling:    cfg.Coupling,
		FreqSpread:  cfg.FreqSpread,
		NoiseStd:    cfg.NoiseStd,
		Dt:          cfg.Dt,
		Mode:        cfg.Mode(),
		Bandwidths:  cfg.Bandwidths,
		Gain:        cfg.Gain,
		Trials:      cfg.Trials,
		BurnIn:      cfg.BurnIn,
		Measure:     cfg.Measure,
		BaseSeed:    cfg.Seed,
		Workers:     cfg.Workers,
		WithControl: cfg.Control,
	})
	if err != nil {
		return err
	}

	fmt.Print(experiment.FormatTable(result))
	fmt.Printf("\ncompleted in %v\n", result.Elapsed)

	if saveRun {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.SaveSweep(result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	if strict && !result.Passed() {
		return fmt.Errorf("sweep checks failed")
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	fps := frameRate
	if fps <= 0 {
		fps = 30
	}
	m, err := viz.NewModel(cfg, fps)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tN\tCODEC\tGAIN\tTRIALS\tPASSED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.2f\t%d\t%t\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.N,
			run.Codec,
			run.Gain,
			run.Trials,
			run.Passed,
		)
	}
	return w.Flush()
}

// signalContext cancels between trials on interrupt; mid-step
// cancellation is never needed since steps are O(n).
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		cancel()
	}()
	return ctx
}
