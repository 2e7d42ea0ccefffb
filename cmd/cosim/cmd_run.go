// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/db47h/cosim"
	"github.com/db47h/cosim/internal/ledger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the suite",
		Long: `Run all scenarios of the suite, or the ones selected with --scenario and
--language, and print one line per result.

Scenarios are selected by name ("counting") or by ID ("counting/vhdl/16").
The exit status is 1 if any scenario failed.

Example:
  cosim run --scenario boundary --language verilog --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			names, _ := cmd.Flags().GetStringArray("scenario")
			lang, _ := cmd.Flags().GetString("language")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cmd, cfg)
			scs, seed, err := scenarios(cfg)
			if err != nil {
				return err
			}
			if scs, err = selectScenarios(scs, names, lang); err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			runID := ledger.NewRunID()
			log.Info("run start", "run", runID, "backend", cfg.Backend, "scenarios", len(scs), "seed", seed)
			r := &cosim.Runner{
				Backend: newBackend(cfg),
				Clock:   cosim.Clock{HalfPeriod: cfg.HalfPeriod},
				Logger:  log,
			}
			results, runErr := r.RunAll(ctx, scs)

			if cfg.Ledger.Path != "" {
				// record partial runs too
				if err := record(context.Background(), cfg.Ledger.Path, runID, results); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, res := range results {
				if !res.Passed {
					failed++
				}
				if jsonOut {
					if err := json.NewEncoder(out).Encode(newResultJSON(runID, res)); err != nil {
						return errors.Wrap(err, "write result")
					}
				} else {
					printResult(out, res)
				}
			}

			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "run interrupted")
			}
			if failed > 0 {
				return errors.Errorf("%d of %d scenarios failed", failed, len(results))
			}
			return errors.Wrap(runErr, "run")
		},
	}

	cmd.Flags().StringArray("scenario", nil, "Run only this scenario, by name or ID (repeatable)")
	cmd.Flags().String("language", "", "Run only designs written in this language (vhdl or verilog)")
	cmd.Flags().String("backend", "", "Kernel backend: sim or xsi")
	cmd.Flags().String("kernel-lib", "", "XSI simulation kernel library")
	cmd.Flags().Int64("seed", 0, "Seed for random stimulus (0: time based)")

	return cmd
}

// selectScenarios filters scs by name or ID and language. Every name must
// match at least one scenario.
func selectScenarios(scs []cosim.Scenario, names []string, lang string) ([]cosim.Scenario, error) {
	if lang != "" {
		l, err := cosim.ParseLanguage(lang)
		if err != nil {
			return nil, err
		}
		var sel []cosim.Scenario
		for _, sc := range scs {
			if sc.Session.Language == l {
				sel = append(sel, sc)
			}
		}
		scs = sel
	}
	if len(names) == 0 {
		return scs, nil
	}
	var sel []cosim.Scenario
	for _, n := range names {
		found := false
		for _, sc := range scs {
			if sc.Name == n || sc.ID() == n {
				sel = append(sel, sc)
				found = true
			}
		}
		if !found {
			return nil, errors.Errorf("no scenario %q", n)
		}
	}
	return sel, nil
}

func record(ctx context.Context, path, runID string, results []*cosim.Result) error {
	l, err := ledger.Open(ctx, path)
	if err != nil {
		return err
	}
	defer l.Close()
	for _, res := range results {
		if err := l.Record(ctx, runID, res); err != nil {
			return err
		}
	}
	return nil
}

type resultJSON struct {
	RunID      string         `json:"run_id"`
	Scenario   string         `json:"scenario"`
	Language   string         `json:"language"`
	Width      int            `json:"width"`
	Policy     string         `json:"policy"`
	Passed     bool           `json:"passed"`
	Cycles     int            `json:"cycles"`
	Skipped    int            `json:"skipped,omitempty"`
	FaultCycle *int           `json:"fault_cycle,omitempty"`
	Violation  *violationJSON `json:"violation,omitempty"`
	Error      string         `json:"error,omitempty"`
	ElapsedMS  int64          `json:"elapsed_ms"`
}

type violationJSON struct {
	Cycle           int    `json:"cycle"`
	A               string `json:"a"`
	B               string `json:"b"`
	ExpectedSum     string `json:"expected_sum"`
	ExpectedProduct string `json:"expected_product"`
	Sum             string `json:"sum"`
	Product         string `json:"product"`
}

func newResultJSON(runID string, res *cosim.Result) *resultJSON {
	j := &resultJSON{
		RunID:     runID,
		Scenario:  res.Scenario,
		Language:  res.Language.String(),
		Width:     res.Width,
		Policy:    res.Policy,
		Passed:    res.Passed,
		Cycles:    res.Cycles,
		Skipped:   res.Skipped,
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
	if res.FaultCycle >= 0 {
		fc := res.FaultCycle
		j.FaultCycle = &fc
	}
	if v := res.Violation; v != nil {
		j.Violation = &violationJSON{v.Cycle, v.Expected.A.Dec(), v.Expected.B.Dec(), v.Expected.Sum.Dec(), v.Expected.Product.Dec(), v.Sum.Dec(), v.Product.Dec()}
	}
	if res.Err != nil {
		j.Error = res.Err.Error()
	}
	return j
}

func printResult(w io.Writer, res *cosim.Result) {
	status := "PASS"
	if !res.Passed {
		status = "FAIL"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s/%s/%d %s cycles=%d", status, res.Scenario, res.Language, res.Width, res.Policy, res.Cycles)
	if res.Skipped > 0 {
		fmt.Fprintf(&sb, " skipped=%d", res.Skipped)
	}
	if res.FaultCycle >= 0 {
		fmt.Fprintf(&sb, " fault_cycle=%d", res.FaultCycle)
	}
	fmt.Fprintf(&sb, " elapsed=%s", res.Elapsed.Round(time.Millisecond))
	if res.Err != nil {
		fmt.Fprintf(&sb, ": %v", res.Err)
	}
	fmt.Fprintln(w, sb.String())
}
