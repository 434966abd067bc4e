package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/lumasim/internal/analysis"
	"github.com/san-kum/lumasim/internal/config"
	"github.com/san-kum/lumasim/internal/experiment"
	"github.com/san-kum/lumasim/internal/metrics"
	"github.com/san-kum/lumasim/internal/report"
	"github.com/san-kum/lumasim/internal/storage"
	"github.com/san-kum/lumasim/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSTEPS\tDT\tINTEG\tCTRL\tKC\tFINAL PV\tSAT\tIAE")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%s\t%s\t%g\t%.4f\t%d\t%.4f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Dt,
			run.Integrator,
			run.Controller,
			run.PID.Gain,
			run.FinalPV,
			run.SaturatedSteps,
			run.Metrics["iae"],
		)
	}

	return w.Flush()
}

// loadRun rebuilds the configuration and result of a stored run.
func loadRun(runID string) (experiment.Config, *experiment.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return experiment.Config{}, nil, err
	}
	tr, err := st.LoadTrace(runID)
	if err != nil {
		return experiment.Config{}, nil, err
	}

	cfg := experiment.Config{
		Name:       meta.Name,
		Integrator: meta.Integrator,
		Controller: meta.Controller,
		Plant:      meta.Plant,
		PID:        meta.PID.Params(),
	}
	result := &experiment.Result{
		Name:    meta.Name,
		Trace:   tr,
		Metrics: meta.Metrics,
		Summary: metrics.Summarize(tr),
	}
	return cfg, result, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	cfg, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", args[0])
	fmt.Printf("samples: %d\n\n", result.Trace.Len())
	fmt.Print(viz.RenderASCII(result.Trace, cfg.Name, width, height))
	return nil
}

func output() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	w, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.WriteTraceCSV(w, result.Trace); err != nil {
		done()
		return err
	}
	return done()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	cfg, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	w, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(w, cfg, result); err != nil {
		done()
		return err
	}
	return done()
}

func reportRun(cmd *cobra.Command, args []string) error {
	cfg, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	path := outFile
	if path == "" {
		path = args[0] + ".png"
	}
	if err := report.SavePNG(path, result.Trace, report.Options{Title: cfg.Name}); err != nil {
		return err
	}
	fmt.Printf("figure: %s\n", path)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	_, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	p, err := analysis.Oscillation(result.Trace, tail)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", args[0])
	fmt.Printf("window: last %.0f%% of %d samples\n", 100*tail, result.Trace.Len())
	fmt.Printf("dominant period: %.3fs (%.4f Hz)\n", p.Period, p.Frequency)
	fmt.Printf("error amplitude: %.6f\n", p.Amplitude)
	if p.Sustained(threshold) {
		fmt.Println("verdict: sustained oscillation")
	} else {
		fmt.Println("verdict: settled")
	}
	return nil
}

// compareRuns accepts preset names or YAML paths.
func compareRuns(cmd *cobra.Command, args []string) error {
	cfgs := make([]experiment.Config, 0, len(args))
	for _, arg := range args {
		cfg := config.GetPreset(arg)
		if cfg == nil {
			loaded, err := config.Load(arg)
			if err != nil {
				return fmt.Errorf("%s is neither a preset nor a readable config: %w", arg, err)
			}
			cfg = loaded
		}
		expCfg, err := cfg.Experiment()
		if err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
		expCfg.Name = arg
		cfgs = append(cfgs, expCfg)
	}

	results, err := experiment.RunBatch(context.Background(), cfgs, workers, log)
	if err != nil {
		return err
	}

	names := []string{"iae", "ise", "control_effort", "saturation", "tracking"}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\t"+strings.ToUpper(strings.Join(names, "\t"))+"\tOVERSHOOT\tFINAL PV")
	for _, res := range results {
		fmt.Fprint(w, res.Name)
		for _, n := range names {
			fmt.Fprintf(w, "\t%.4f", res.Metrics[n])
		}
		fmt.Fprintf(w, "\t%.2f%%\t%.4f\n", 100*res.Summary.Overshoot, res.Summary.FinalPV)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if pngFile != "" {
		runs := make([]report.Run, len(results))
		for i, res := range results {
			runs[i] = report.Run{Name: res.Name, Trace: res.Trace}
		}
		if err := report.SaveComparisonPNG(pngFile, runs, report.Options{Title: "comparison"}); err != nil {
			return err
		}
		fmt.Printf("figure: %s\n", pngFile)
	}
	return nil
}
