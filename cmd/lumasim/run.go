package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/lumasim/internal/config"
	"github.com/san-kum/lumasim/internal/experiment"
	"github.com/san-kum/lumasim/internal/report"
	"github.com/san-kum/lumasim/internal/storage"
	"github.com/san-kum/lumasim/internal/viz"
)

// resolveConfig layers the preset, then the config file, then any flag the
// user set explicitly.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("name") {
		cfg.Name = runName
	}
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("steps") {
		cfg.Steps = steps
	}
	if f.Changed("initial") {
		cfg.InitialState = initial
	}
	if f.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if f.Changed("substeps") {
		cfg.Substeps = substeps
	}
	if f.Changed("controller") {
		cfg.Controller = controller
	}
	if f.Changed("manual-output") {
		cfg.ManualOutput = manualOutput
	}
	if f.Changed("kp") {
		cfg.Plant.Gain = kp
	}
	if f.Changed("tau-p") {
		cfg.Plant.TimeConstant = tauP
	}
	if f.Changed("theta") {
		cfg.Plant.DeadTime = theta
	}
	if f.Changed("kc") {
		cfg.PID.Gain = kc
	}
	if f.Changed("tau-i") {
		cfg.PID.IntegralTime = tauI
	}
	if f.Changed("tau-d") {
		cfg.PID.DerivativeTime = tauD
	}
	if f.Changed("op-lo") {
		cfg.PID.OutputLow = opLo
	}
	if f.Changed("op-hi") {
		cfg.PID.OutputHigh = opHi
	}
	if noIntegral {
		cfg.DisableIntegral()
	}
	return cfg, nil
}

func simulate(cfg experiment.Config) (*experiment.Result, error) {
	exp := experiment.New(cfg, log)
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	return exp.Run()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	expCfg, err := cfg.Experiment()
	if err != nil {
		return err
	}

	fmt.Printf("running %s (%d steps, dt=%g)...\n", expCfg.Name, cfg.Steps, cfg.Dt)
	start := time.Now()

	result, err := simulate(expCfg)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := storage.New(dataDir)
	runID, err := st.Save(expCfg, result)
	if err != nil {
		return err
	}
	log.Debug("run stored", zap.String("id", runID), zap.String("dir", dataDir))

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	printResult(result)

	if showPlot {
		fmt.Println()
		fmt.Print(viz.RenderASCII(result.Trace, expCfg.Name, 80, 12))
	}
	if pngFile != "" {
		if err := report.SavePNG(pngFile, result.Trace, report.Options{Title: expCfg.Name}); err != nil {
			return err
		}
		fmt.Printf("figure: %s\n", pngFile)
	}
	return nil
}

func printResult(result *experiment.Result) {
	s := result.Summary
	fmt.Printf("final pv: %.6f\n", s.FinalPV)
	fmt.Printf("peak pv: %.6f at step %d\n", s.PeakPV, s.PeakStep)
	fmt.Printf("output range: [%.4f, %.4f]\n", s.MinOutput, s.MaxOutput)
	fmt.Printf("overshoot: %.2f%%\n", 100*s.Overshoot)
	fmt.Printf("saturated steps: %d\n", s.SaturatedSteps)

	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
}

func listPresets(cmd *cobra.Command, args []string) error {
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(os.Stdout, "  %-10s %s/%s, %d steps of %gs\n", name, p.Controller, p.Integrator, p.Steps, p.Dt)
	}
	return nil
}
