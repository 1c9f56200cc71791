package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/pipeline"
)

func newStatusCommand(cctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <source>",
		Short: "Show pipeline state for a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := cctx.openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			orch := pipeline.New(cfg, store, nil)
			manifest, err := orch.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSONOutput(out, manifest)
			}
			fmt.Fprintln(out, renderRunSummary(manifest, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run manifest as JSON")
	return cmd
}
