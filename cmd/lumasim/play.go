package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/lumasim/internal/actuator"
	"github.com/san-kum/lumasim/internal/dynamo"
	"github.com/san-kum/lumasim/internal/viz"
)

func openBus(ctx context.Context, lo, hi float64) (*actuator.Bus, error) {
	codec, err := actuator.NewCodec(canID, lo, hi)
	if err != nil {
		return nil, err
	}
	return actuator.Dial(ctx, canIface, codec, log)
}

// play runs the TUI over tr, forwarding samples to the CAN bus when one is
// configured.
func play(tr *dynamo.Trace, name string, pid dynamo.ControllerParams) error {
	opts := []viz.Option{viz.WithSpeed(speed), viz.WithTheme(theme)}

	if canIface != "" {
		bus, err := openBus(context.Background(), pid.OutputLow, pid.OutputHigh)
		if err != nil {
			return err
		}
		defer bus.Close()
		opts = append(opts, viz.WithSink(bus))
	}

	m := viz.NewModel(tr, name, pid.OutputLow, pid.OutputHigh, opts...)
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(viz.Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	expCfg, err := cfg.Experiment()
	if err != nil {
		return err
	}

	result, err := simulate(expCfg)
	if err != nil {
		return err
	}
	return play(result.Trace, expCfg.Name, expCfg.PID)
}

func replayRun(cmd *cobra.Command, args []string) error {
	cfg, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	if !headless {
		return play(result.Trace, cfg.Name, cfg.PID)
	}
	if canIface == "" {
		return fmt.Errorf("--headless needs --can")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus, err := openBus(ctx, cfg.PID.OutputLow, cfg.PID.OutputHigh)
	if err != nil {
		return err
	}
	defer bus.Close()

	every := time.Duration(period * float64(time.Second))
	if !cmd.Flags().Changed("period") {
		every = time.Duration(result.Trace.Grid.Dt / float64(max(speed, 1)) * float64(time.Second))
	}

	log.Info("replaying", zap.String("run", args[0]), zap.Duration("period", every))
	n, err := bus.Replay(ctx, result.Trace, every)
	fmt.Printf("sent %d of %d frames on %s\n", n, result.Trace.Len(), canIface)
	return err
}
