package curation

type SortKey string

const (
	SortFinalScore  SortKey = "final_score"
	SortSharpness   SortKey = "sharpness"
	SortComposition SortKey = "composition"
)

type QuickFilter string

const (
	QuickAll        QuickFilter = "all"
	QuickTop10      QuickFilter = "top10"
	QuickTop25      QuickFilter = "top25"
	QuickThreshold  QuickFilter = "threshold"
	QuickDuplicates QuickFilter = "duplicates"
	QuickUnique     QuickFilter = "unique"
)

// thresholdCutoff is the fixed cutoff of the "threshold" quick filter. It
// is independent of the ScoreFilterPercent slider.
const thresholdCutoff = 0.70

// State is the session-scoped curation state: which images are kept,
// rejected, and selected for export, plus the active filter and sort
// settings. It is a value type; reducers return an updated copy and
// preserve the invariant that an image is never both kept and rejected.
type State struct {
	Kept     Set
	Rejected Set
	Selected Set

	SortKey            SortKey
	TagFilter          string
	SelectedTags       Set
	ScoreFilterPercent int
	Quick              QuickFilter

	// Query is an optional extra predicate applied after the score
	// threshold. Nil means no query filter.
	Query Filter
}

func NewState() State {
	return State{SortKey: SortFinalScore, Quick: QuickAll}
}

// Keep marks an image as kept. Keeping clears any rejection.
func (s State) Keep(id string) State {
	s.Kept = s.Kept.Add(id)
	s.Rejected = s.Rejected.Remove(id)
	return s
}

// Reject marks an image as rejected. Rejection clears the kept mark and
// prunes the image from the export selection.
func (s State) Reject(id string) State {
	s.Rejected = s.Rejected.Add(id)
	s.Kept = s.Kept.Remove(id)
	s.Selected = s.Selected.Remove(id)
	return s
}

// ToggleSelect flips membership of an image in the export selection.
func (s State) ToggleSelect(id string) State {
	if s.Selected.Has(id) {
		s.Selected = s.Selected.Remove(id)
	} else {
		s.Selected = s.Selected.Add(id)
	}
	return s
}

// SelectExactly replaces the selection wholesale.
func (s State) SelectExactly(ids []string) State {
	s.Selected = NewSet(ids...)
	return s
}

func (s State) ClearSelection() State {
	s.Selected = Set{}
	return s
}

// ToggleTag flips a tag in the multi-tag filter. Toggling any tag clears
// the exact tag filter, matching the single-filter-at-a-time UI behavior.
func (s State) ToggleTag(tag string) State {
	if s.SelectedTags.Has(tag) {
		s.SelectedTags = s.SelectedTags.Remove(tag)
	} else {
		s.SelectedTags = s.SelectedTags.Add(tag)
	}
	s.TagFilter = ""
	return s
}

func (s State) ClearTagFilters() State {
	s.SelectedTags = Set{}
	s.TagFilter = ""
	return s
}
