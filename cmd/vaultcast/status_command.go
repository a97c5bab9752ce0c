package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vaultcast/internal/backend"
	"vaultcast/internal/logging"
	"vaultcast/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Run preflight checks against the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, backend.NewClient(cfg, logging.NewNop()))

			if asJSON {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				fmt.Fprintf(out, "%d check(s) failed; episodes may fall back to local generation\n", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output results as JSON")
	return cmd
}
