package curation

import (
	"errors"
	"sort"
	"strings"

	"frameselect/pkg/api"
)

// ErrImageNotFound indicates a lookup for an image id absent from the
// fetched results set.
var ErrImageNotFound = errors.New("image not found in results")

// Visible applies the curation pipeline to the full scored collection and
// returns the ordered visible subset. Pure: identical inputs yield
// identical output, and the input slice is never mutated.
//
// Pipeline order: rejected → exact tag → multi-tag AND → score threshold →
// query → stable sort → quick filter.
func Visible(images []api.ImageScore, state State) []api.ImageScore {
	filtered := make([]api.ImageScore, 0, len(images))
	for _, img := range images {
		if state.Rejected.Has(img.ImageId) {
			continue
		}
		if state.TagFilter != "" && !img.HasTag(state.TagFilter) {
			continue
		}
		if !hasAllTags(&img, state.SelectedTags) {
			continue
		}
		if img.FinalScore < float64(state.ScoreFilterPercent)/100 {
			continue
		}
		if state.Query != nil && !state.Query.Matches(&img) {
			continue
		}
		filtered = append(filtered, img)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return sortField(&filtered[i], state.SortKey) > sortField(&filtered[j], state.SortKey)
	})

	return applyQuickFilter(filtered, state.Quick)
}

func hasAllTags(img *api.ImageScore, tags Set) bool {
	for _, tag := range tags.Values() {
		if !img.HasTag(tag) {
			return false
		}
	}
	return true
}

func sortField(img *api.ImageScore, key SortKey) float64 {
	switch key {
	case SortSharpness:
		return img.Scores.Sharpness
	case SortComposition:
		return img.Scores.Composition
	default:
		return img.FinalScore
	}
}

// applyQuickFilter runs last, on the already filtered and sorted sequence.
func applyQuickFilter(images []api.ImageScore, quick QuickFilter) []api.ImageScore {
	switch quick {
	case QuickTop10:
		return head(images, 10)
	case QuickTop25:
		return head(images, 25)
	case QuickThreshold:
		return keep(images, func(img *api.ImageScore) bool {
			return img.FinalScore >= thresholdCutoff
		})
	case QuickDuplicates:
		return keep(images, func(img *api.ImageScore) bool {
			for _, tag := range img.Tags {
				if strings.HasPrefix(tag, "duplicate_") {
					return true
				}
			}
			return false
		})
	case QuickUnique:
		return keep(images, func(img *api.ImageScore) bool {
			return img.HasTag("unique")
		})
	default:
		return images
	}
}

func head(images []api.ImageScore, n int) []api.ImageScore {
	if len(images) <= n {
		return images
	}
	return images[:n]
}

func keep(images []api.ImageScore, pred func(*api.ImageScore) bool) []api.ImageScore {
	out := make([]api.ImageScore, 0, len(images))
	for _, img := range images {
		if pred(&img) {
			out = append(out, img)
		}
	}
	return out
}

// AvailableTags returns the union of all tags across the full collection,
// sorted for deterministic output.
func AvailableTags(images []api.ImageScore) []string {
	seen := make(map[string]struct{})
	for _, img := range images {
		for _, tag := range img.Tags {
			seen[tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// TagCount counts images carrying the tag, over the unfiltered collection.
func TagCount(images []api.ImageScore, tag string) int {
	count := 0
	for _, img := range images {
		if img.HasTag(tag) {
			count++
		}
	}
	return count
}

// Lookup finds an image by id in the results set.
func Lookup(images []api.ImageScore, id string) (api.ImageScore, error) {
	for _, img := range images {
		if img.ImageId == id {
			return img, nil
		}
	}
	return api.ImageScore{}, ErrImageNotFound
}
