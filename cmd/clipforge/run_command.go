package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clipforge/internal/pipeline"
)

func newRunCommand(cctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run <source>",
		Short: "Run the full pipeline over a video file",
		Long: `Run analyzes the source audio for excitement peaks, transcribes speech
around them, selects a non-overlapping set of clips, and renders each clip
as a vertical video with burned subtitles. Finished stages are skipped on
rerun unless their inputs changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			events := pipeline.NewChannelPublisher(256)
			orch := pipeline.New(cfg, store, logger, pipeline.WithPublisher(events))

			progress := cmd.ErrOrStderr()
			colorize := shouldColorize(progress)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for ev := range events.Events() {
					if quiet {
						continue
					}
					fmt.Fprintln(progress, renderEventLine(ev, colorize))
				}
			}()

			manifest, runErr := orch.RunAll(ctx, args[0])
			events.Close()
			<-done

			out := cmd.OutOrStdout()
			if manifest.RunID != "" {
				if jsonOutput {
					if err := writeJSONOutput(out, manifest); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(out, renderRunSummary(manifest, shouldColorize(out)))
				}
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run manifest as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress per-stage progress output")
	return cmd
}
