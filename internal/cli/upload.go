package cli

import (
	"fmt"

	"frameselect/internal/config"
	"frameselect/internal/gateway"
	"frameselect/internal/orchestrator"
	"frameselect/internal/tui"

	"github.com/spf13/cobra"
)

func newUploadCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "upload <files...>",
		Short: "Upload photos and run the analysis job to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			gw := gateway.NewClient(cfg.BackendURL)
			orch := orchestrator.New(gw, orchestrator.Options{
				PollInterval:  cfg.PollInterval,
				MaxAttempts:   cfg.MaxPollCount,
				BackoffFactor: cfg.BackoffFactor,
			})

			ctx := cmd.Context()

			var result orchestrator.Result
			if plain {
				done := make(chan struct{})
				go func() {
					defer close(done)
					for update := range orch.Updates() {
						fmt.Printf("[%3.0f%%] %s\n", update.Percent, update.Step)
					}
				}()
				result, err = orch.Run(ctx, args)
				<-done
			} else {
				result, err = tui.RunUpload(ctx, orch, args)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Analysis complete for %d images.\n", result.FileCount)
			fmt.Printf("Upload id: %s\n", result.UploadID)
			fmt.Printf("Next: frameselect results %s\n", result.UploadID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print progress lines instead of the interactive view")
	return cmd
}
