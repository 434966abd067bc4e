package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/lumasim/internal/optim"
)

func tunePID(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	base, err := cfg.Experiment()
	if err != nil {
		return err
	}

	g := optim.NewGridSearch(
		[]string{optim.ParamGain, optim.ParamIntegralTime, optim.ParamDerivativeTime},
		[][]float64{kcValues, tauIValues, tauDValues},
	).WithLimit(workers).WithLogger(log)

	fmt.Printf("searching %d tunings on %s, %s %s...\n", g.Size(), base.Name, direction(), metricName)

	out, err := g.Search(context.Background(), base, optim.Objective{Metric: metricName, Maximize: maximize})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tKC\tTAU_I\tTAU_D\t%s\n", metricName)
	for i, c := range out.Candidates {
		if i >= top {
			break
		}
		fmt.Fprintf(w, "%d\t%g\t%g\t%g\t%.6f\n", i+1,
			c.Params[optim.ParamGain],
			c.Params[optim.ParamIntegralTime],
			c.Params[optim.ParamDerivativeTime],
			c.Score)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if out.Skipped > 0 {
		fmt.Printf("skipped %d invalid tunings\n", out.Skipped)
	}
	return nil
}

func direction() string {
	if maximize {
		return "maximizing"
	}
	return "minimizing"
}
