package cli

import (
	"fmt"

	"frameselect/internal/config"
	"frameselect/internal/curation"
	"frameselect/internal/selection"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	flags := &curationFlags{}
	var (
		top    int
		ids    []string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export <upload-id>",
		Short: "Export a selection of images as a ZIP archive",
		Long: `Export downloads the selected images as a ZIP. Select explicitly with
--ids, or with --top N to take the first N of the curated view (the
filter and sort flags apply).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.DownloadDir
			}

			gw, results, err := fetchResults(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}

			state, err := flags.state(results.DuplicateReport)
			if err != nil {
				return err
			}

			manager := selection.NewManager(gw)
			manager.Update(func(curation.State) curation.State { return state })

			if len(ids) > 0 {
				for _, id := range ids {
					if _, err := curation.Lookup(results.Images, id); err != nil {
						return fmt.Errorf("%w: %s", err, id)
					}
					manager.ToggleSelect(id)
				}
			} else if top > 0 {
				manager.SelectTopN(top, results.Images)
			}

			export, err := manager.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			path, err := gw.SaveExport(export, outDir)
			if err != nil {
				return err
			}

			fmt.Printf("Exported %d images to %s\n", manager.State().Selected.Len(), path)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&top, "top", 0, "select the first N images of the curated view")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "select these image ids explicitly")
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write the archive to (default: download dir)")
	return cmd
}
