package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/lumasim/internal/config"
)

var (
	dataDir string
	verbose bool
	log     *zap.Logger

	// simulation overrides
	configFile   string
	preset       string
	runName      string
	dt           float64
	steps        int
	initial      float64
	integrator   string
	substeps     int
	controller   string
	manualOutput float64
	kp           float64
	tauP         float64
	theta        float64
	kc           float64
	tauI         float64
	tauD         float64
	opLo         float64
	opHi         float64
	noIntegral   bool

	// output
	outFile  string
	pngFile  string
	showPlot bool
	width    int
	height   int

	// tuning
	kcValues   []float64
	tauIValues []float64
	tauDValues []float64
	metricName string
	maximize   bool
	workers    int
	top        int

	// analysis
	tail      float64
	threshold float64

	// playback
	canIface string
	canID    uint32
	speed    int
	period   float64
	theme    string
	headless bool
)

// main registers the lumasim commands and exits with status 1 if the
// selected command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:   "lumasim",
		Short: "screen brightness control loop simulator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			log = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = log.Sync()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".lumasim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a closed-loop simulation and store it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "print an ascii chart of the run")
	runCmd.Flags().StringVar(&pngFile, "png", "", "also write a PNG figure")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&width, "width", 80, "chart width")
	plotCmd.Flags().IntVar(&height, "height", 12, "chart height")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a stored trace to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	reportCmd := &cobra.Command{
		Use:   "report [run_id]",
		Short: "render a stored run to PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  reportRun,
	}
	reportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <run_id>.png)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "look for sustained oscillation in a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&tail, "tail", 0.25, "fraction of the run to analyze, from the end")
	analyzeCmd.Flags().Float64Var(&threshold, "threshold", 0.01, "error amplitude that counts as sustained")

	compareCmd := &cobra.Command{
		Use:   "compare [preset|file.yaml]...",
		Short: "run several configurations side by side",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareRuns,
	}
	compareCmd.Flags().StringVar(&pngFile, "png", "", "write a comparison figure")
	compareCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 = all)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search the PID tuning",
		Args:  cobra.NoArgs,
		RunE:  tunePID,
	}
	addSimFlags(tuneCmd)
	tuneCmd.Flags().Float64SliceVar(&kcValues, "kc-values", []float64{0.5, 1, 2, 4}, "controller gains to try")
	tuneCmd.Flags().Float64SliceVar(&tauIValues, "tau-i-values", []float64{2, 5, 10}, "integral times to try")
	tuneCmd.Flags().Float64SliceVar(&tauDValues, "tau-d-values", []float64{0, 0.1, 0.5}, "derivative times to try")
	tuneCmd.Flags().StringVar(&metricName, "metric", "iae", "metric to optimize")
	tuneCmd.Flags().BoolVar(&maximize, "maximize", false, "maximize instead of minimize")
	tuneCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 = all)")
	tuneCmd.Flags().IntVar(&top, "top", 5, "candidates to print")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "simulate and play the run back in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	addPlaybackFlags(liveCmd)

	replayCmd := &cobra.Command{
		Use:   "replay [run_id]",
		Short: "replay a stored run, optionally onto a CAN bus",
		Args:  cobra.ExactArgs(1),
		RunE:  replayRun,
	}
	addPlaybackFlags(replayCmd)
	replayCmd.Flags().Float64Var(&period, "period", 0, "seconds between frames without the TUI (default dt/speed)")
	replayCmd.Flags().BoolVar(&headless, "headless", false, "send frames without the TUI")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, reportCmd,
		analyzeCmd, compareCmd, presetsCmd, tuneCmd, liveCmd, replayCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "step", "start from a preset")
	f.StringVar(&runName, "name", "", "run name")
	f.Float64Var(&dt, "dt", config.DefaultDt, "sample time")
	f.IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	f.Float64Var(&initial, "initial", 0, "initial brightness")
	f.StringVar(&integrator, "integrator", "rk4", "integrator (euler, rk4, rk45)")
	f.IntVar(&substeps, "substeps", 0, "integrator sub-steps per sample")
	f.StringVar(&controller, "controller", "pid", "controller (pid, reference, manual)")
	f.Float64Var(&manualOutput, "manual-output", 0, "fixed output for the manual controller")
	f.Float64Var(&kp, "kp", config.DefaultKp, "plant gain")
	f.Float64Var(&tauP, "tau-p", config.DefaultTauP, "plant time constant")
	f.Float64Var(&theta, "theta", config.DefaultTheta, "plant dead time")
	f.Float64Var(&kc, "kc", config.DefaultKc, "controller gain")
	f.Float64Var(&tauI, "tau-i", config.DefaultTauI, "integral time")
	f.Float64Var(&tauD, "tau-d", config.DefaultTauD, "derivative time")
	f.Float64Var(&opLo, "op-lo", 0, "output lower bound")
	f.Float64Var(&opHi, "op-hi", 1, "output upper bound")
	f.BoolVar(&noIntegral, "no-integral", false, "disable integral action")
}

func addPlaybackFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&canIface, "can", "", "SocketCAN interface to send output frames on, e.g. vcan0")
	f.Uint32Var(&canID, "can-id", 0x210, "CAN frame id")
	f.IntVar(&speed, "speed", 4, "samples per tick")
	f.StringVar(&theme, "theme", "cyberpunk", "color theme")
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}
