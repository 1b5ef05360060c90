package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"valuator/internal/model"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List the valuation forms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, d := range model.Domains() {
			fmt.Fprintf(out, "%-12s %-28s POST %s\n", d.ID, d.Title, cfg.Backend.EndpointURL(d.Path))
		}
		return nil
	},
}
