// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command cosim runs co-simulation suites against compiled designs and checks
// their outputs against a reference model.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/db47h/cosim"
	"github.com/db47h/cosim/internal/config"
	"github.com/db47h/cosim/internal/logging"
	"github.com/db47h/cosim/simkernel"
	"github.com/db47h/cosim/widget"
	"github.com/db47h/cosim/xsi"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cosim:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cosim",
		Short: "Co-simulation verification harness",
		Long: `cosim drives compiled designs through a step simulation kernel, applies
stimulus on each clock cycle and checks the design outputs against a
reference model of its adder/multiplier pipeline.

The suite is read from --config, ./cosim.yaml if present, or the built-in
default suite. The in-process kernel ("sim" backend) runs the reference
designs without any vendor tools; the "xsi" backend loads designs compiled
with Vivado xelab -dll.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Suite file (default ./cosim.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: error, warn, info, debug or trace")
	rootCmd.PersistentFlags().String("ledger", "", "SQLite result ledger")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newListCmd(),
		newHistoryCmd(),
	)
	return rootCmd
}

// loadConfig loads the suite and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("ledger") {
		cfg.Ledger.Path, _ = flags.GetString("ledger")
	}
	if f := flags.Lookup("backend"); f != nil && f.Changed {
		cfg.Backend = f.Value.String()
	}
	if f := flags.Lookup("kernel-lib"); f != nil && f.Changed {
		cfg.KernelLib = f.Value.String()
	}
	if f := flags.Lookup("seed"); f != nil && f.Changed {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// scenarios materializes the suite. The returned seed is the one used for
// random stimulus.
func scenarios(cfg *config.Config) ([]cosim.Scenario, int64, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	scs, err := cfg.Expand(rand.New(rand.NewSource(seed)))
	return scs, seed, err
}

func newBackend(cfg *config.Config) cosim.Backend {
	if cfg.Backend == config.BackendXSI {
		return &xsi.Backend{KernelLib: cfg.KernelLib}
	}
	return &simkernel.Backend{
		Registry: widget.NewRegistry(),
		StepTime: cfg.StepTime,
		Workers:  cfg.Workers,
	}
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// signalContext returns a context cancelled on interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	notifySignals(ch)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}
