package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"frameselect/internal/config"
	"frameselect/internal/curation"

	"github.com/spf13/cobra"
)

func newResultsCmd() *cobra.Command {
	flags := &curationFlags{}

	cmd := &cobra.Command{
		Use:   "results <upload-id>",
		Short: "Show the curated results of an analyzed upload",
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

			state, err := flags.state(results.DuplicateReport)
			if err != nil {
				return err
			}

			visible := curation.Visible(results.Images, state)

			if results.DuplicateReport != nil {
				summary := results.DuplicateReport.Summary
				fmt.Printf("%d images analyzed, %d duplicates in %d groups\n\n",
					len(results.Images), summary.TotalDuplicates, len(results.DuplicateReport.Groups))
			} else {
				fmt.Printf("%d images analyzed\n\n", len(results.Images))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tIMAGE\tSCORE\tSHARP\tCOMP\tTAGS")
			for _, img := range visible {
				fmt.Fprintf(w, "%d\t%s\t%.2f\t%.2f\t%.2f\t%s\n",
					img.Rank, img.ImageId, img.FinalScore,
					img.Scores.Sharpness, img.Scores.Composition,
					strings.Join(img.Tags, ","))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("\nShowing %d of %d images\n", len(visible), len(results.Images))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags <upload-id>",
		Short: "List the tags present in an upload's results, with counts",
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

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TAG\tCOUNT")
			for _, tag := range curation.AvailableTags(results.Images) {
				fmt.Fprintf(w, "%s\t%d\n", tag, curation.TagCount(results.Images, tag))
			}
			return w.Flush()
		},
	}
}
