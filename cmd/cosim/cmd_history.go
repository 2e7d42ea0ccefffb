// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/db47h/cosim/internal/ledger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded results, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Ledger.Path == "" {
				return errors.New("no ledger configured (use --ledger, COSIM_LEDGER or ledger.path)")
			}

			ctx := context.Background()
			l, err := ledger.Open(ctx, cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer l.Close()
			es, err := l.Recent(ctx, limit)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(es)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tRUN\tSCENARIO\tPOLICY\tSTATUS\tCYCLES\tELAPSED")
			for _, e := range es {
				status := "PASS"
				if !e.Passed {
					status = "FAIL"
				}
				fmt.Fprintf(tw, "%s\t%.8s\t%s/%s/%d\t%s\t%s\t%d\t%s\n",
					e.StartedAt.Local().Format(time.DateTime), e.RunID,
					e.Scenario, e.Language, e.Width, e.Policy, status, e.Cycles, e.Elapsed.Round(time.Millisecond))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of results (0: all)")
	return cmd
}
