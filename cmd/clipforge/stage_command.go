package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"clipforge/internal/pipeline"
	"clipforge/internal/state"
)

func newStageCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage <name> <source>",
		Short: "Run a single pipeline stage",
		Long: fmt.Sprintf(`Stage runs one pipeline stage in isolation. Upstream stages must already
have completed for the source. Valid stage names: %s.`, strings.Join(state.StageNames, ", ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(strings.TrimSpace(args[0]))
			known := false
			for _, candidate := range state.StageNames {
				if candidate == name {
					known = true
					break
				}
			}
			if !known {
				return fmt.Errorf("unknown stage %q (valid: %s)", args[0], strings.Join(state.StageNames, ", "))
			}

			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cctx.newLogger(cfg)
			if err != nil {
				return err
			}
			store, err := cctx.openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			orch := pipeline.New(cfg, store, logger)
			manifest, runErr := orch.RunStage(ctx, args[1], name)
			if manifest.RunID != "" {
				fmt.Fprintln(cmd.OutOrStdout(), renderRunSummary(manifest, shouldColorize(cmd.OutOrStdout())))
			}
			return runErr
		},
	}
	return cmd
}
