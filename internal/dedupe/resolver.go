// Package dedupe derives bulk-rejection sets from the backend's duplicate
// report. The report's ordering is authoritative: position 0 in every group
// is the recommended keeper.
package dedupe

import (
	"frameselect/internal/curation"
	"frameselect/pkg/api"
)

// Rejections returns the ids to bulk-reject: every image after the first
// in each group. The keeper never appears in the result. Order follows the
// report's group and within-group order.
func Rejections(report *api.DuplicateReport) []string {
	if report == nil {
		return nil
	}
	var ids []string
	for _, group := range report.Groups {
		if len(group.Images) < 2 {
			continue
		}
		ids = append(ids, group.Images[1:]...)
	}
	return ids
}

// Apply folds the report's rejection set into a curation state. Rejection
// also prunes the export selection. Idempotent; re-running re-rejects any
// duplicate the user has since un-rejected.
func Apply(state curation.State, report *api.DuplicateReport) curation.State {
	for _, id := range Rejections(report) {
		state = state.Reject(id)
	}
	return state
}
