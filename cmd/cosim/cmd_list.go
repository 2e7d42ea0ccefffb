// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the scenarios of the suite",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			scs, _, err := scenarios(cfg)
			if err != nil {
				return err
			}

			if jsonOut {
				type item struct {
					ID     string `json:"id"`
					Policy string `json:"policy"`
					Design string `json:"design"`
					Trace  string `json:"trace,omitempty"`
				}
				items := make([]item, 0, len(scs))
				for _, sc := range scs {
					items = append(items, item{sc.ID(), sc.PolicyName(), sc.Session.Design, sc.Session.Trace})
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(items)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCENARIO\tPOLICY\tDESIGN\tTRACE")
			for _, sc := range scs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", sc.ID(), sc.PolicyName(), sc.Session.Design, sc.Session.Trace)
			}
			return tw.Flush()
		},
	}
}
