package cli

import (
	"fmt"
	"strings"

	"frameselect/internal/config"
	"frameselect/internal/dedupe"

	"github.com/spf13/cobra"
)

func newDedupeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe <upload-id>",
		Short: "Show duplicate groups and which images bulk-rejection would drop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			_, results, err := fetchResults(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}

			report := results.DuplicateReport
			if report == nil || len(report.Groups) == 0 {
				fmt.Println("No duplicate report available for this upload.")
				return nil
			}

			fmt.Printf("%d duplicate groups, %d duplicates, %d unique images\n\n",
				len(report.Groups), report.Summary.TotalDuplicates, report.Summary.UniqueImages)

			for _, group := range report.Groups {
				fmt.Printf("Group %d (%d images):\n", group.GroupId, group.Count)
				for i, id := range group.Images {
					role := "duplicate"
					if i == 0 {
						role = "keep"
					}
					fmt.Printf("  %-10s %s\n", role, id)
				}
			}

			rejections := dedupe.Rejections(report)
			fmt.Printf("\nBulk rejection would drop %d images: %s\n",
				len(rejections), strings.Join(rejections, ", "))
			fmt.Println("Apply with --drop-duplicates on `results` or `export`.")
			return nil
		},
	}
}
