// Package cli wires the curation engine, orchestrator, and gateway into
// the frameselect command tree.
package cli

import (
	"context"
	"fmt"

	"frameselect/internal/config"
	"frameselect/internal/curation"
	"frameselect/internal/dedupe"
	"frameselect/internal/gateway"
	"frameselect/pkg/api"

	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frameselect",
		Short: "Upload photo batches for scoring and curate the results",
		Long: `frameselect drives a remote photo-scoring service: upload a batch,
watch the analysis job, then filter, sort, deduplicate, and export the
best frames.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newResultsCmd())
	cmd.AddCommand(newTagsCmd())
	cmd.AddCommand(newDedupeCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}

// curationFlags are shared by every command that renders or exports a
// curated subset.
type curationFlags struct {
	sortKey        string
	quick          string
	tag            string
	tags           []string
	minScore       int
	query          string
	dropDuplicates bool
}

func (f *curationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sortKey, "sort", "final_score", "sort key: final_score, sharpness, or composition")
	cmd.Flags().StringVar(&f.quick, "quick", "all", "quick filter: all, top10, top25, threshold, duplicates, or unique")
	cmd.Flags().StringVar(&f.tag, "tag", "", "keep only images carrying this exact tag")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "keep only images carrying all of these tags")
	cmd.Flags().IntVar(&f.minScore, "min-score", 0, "minimum final score as a percentage (0-100)")
	cmd.Flags().StringVar(&f.query, "query", "", `query filter, e.g. 'tag = "sharp" AND score > 0.7'`)
	cmd.Flags().BoolVar(&f.dropDuplicates, "drop-duplicates", false, "reject all but the keeper of every duplicate group")
}

// state builds a curation State from the flags, folding in the duplicate
// report when --drop-duplicates is set.
func (f *curationFlags) state(report *api.DuplicateReport) (curation.State, error) {
	st := curation.NewState()

	switch curation.SortKey(f.sortKey) {
	case curation.SortFinalScore, curation.SortSharpness, curation.SortComposition:
		st.SortKey = curation.SortKey(f.sortKey)
	default:
		return st, fmt.Errorf("unknown sort key %q", f.sortKey)
	}

	switch curation.QuickFilter(f.quick) {
	case curation.QuickAll, curation.QuickTop10, curation.QuickTop25,
		curation.QuickThreshold, curation.QuickDuplicates, curation.QuickUnique:
		st.Quick = curation.QuickFilter(f.quick)
	default:
		return st, fmt.Errorf("unknown quick filter %q", f.quick)
	}

	if f.minScore < 0 || f.minScore > 100 {
		return st, fmt.Errorf("--min-score must be between 0 and 100")
	}
	st.ScoreFilterPercent = f.minScore

	st.TagFilter = f.tag
	for _, tag := range f.tags {
		st.SelectedTags = st.SelectedTags.Add(tag)
	}

	if f.query != "" {
		filter, err := curation.ParseQuery(f.query)
		if err != nil {
			return st, err
		}
		st.Query = filter
	}

	if f.dropDuplicates {
		st = dedupe.Apply(st, report)
	}

	return st, nil
}

func fetchResults(ctx context.Context, cfg *config.Config, uploadID string) (*gateway.Client, api.ResultsResponse, error) {
	gw := gateway.NewClient(cfg.BackendURL)
	results, err := gw.FetchResults(ctx, uploadID)
	return gw, results, err
}
