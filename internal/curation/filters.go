package curation

import (
	"strings"

	"frameselect/pkg/api"
)

// Filter is a composable predicate over a scored image. Filters are pure
// and raise no errors; malformed queries are rejected at parse time.
type Filter interface {
	Matches(img *api.ImageScore) bool
}

type AndFilter struct {
	filters []Filter
}

func (f *AndFilter) Matches(img *api.ImageScore) bool {
	for _, filter := range f.filters {
		if !filter.Matches(img) {
			return false
		}
	}
	return true
}

type OrFilter struct {
	filters []Filter
}

func (f *OrFilter) Matches(img *api.ImageScore) bool {
	for _, filter := range f.filters {
		if filter.Matches(img) {
			return true
		}
	}
	return false
}

type NotFilter struct {
	filter Filter
}

func (f *NotFilter) Matches(img *api.ImageScore) bool {
	return !f.filter.Matches(img)
}

// TagEqFilter matches images carrying the exact tag.
type TagEqFilter struct {
	tag string
}

func (f *TagEqFilter) Matches(img *api.ImageScore) bool {
	return img.HasTag(f.tag)
}

// TagContainsFilter matches images with any tag containing the substring.
type TagContainsFilter struct {
	substr string
}

func (f *TagContainsFilter) Matches(img *api.ImageScore) bool {
	for _, tag := range img.Tags {
		if strings.Contains(tag, f.substr) {
			return true
		}
	}
	return false
}

// ScoreFilter compares one of the numeric score fields against a constant.
type ScoreFilter struct {
	field string
	op    string
	value float64
}

func (f *ScoreFilter) Matches(img *api.ImageScore) bool {
	v := scoreFieldValue(img, f.field)
	switch f.op {
	case "<":
		return v < f.value
	case ">":
		return v > f.value
	default:
		return v == f.value
	}
}

func scoreFieldValue(img *api.ImageScore, field string) float64 {
	switch field {
	case "sharpness":
		return img.Scores.Sharpness
	case "composition":
		return img.Scores.Composition
	case "emotion":
		return img.Scores.Emotion
	case "action":
		return img.Scores.Action
	case "duplicate":
		return img.Scores.Duplicate
	default:
		return img.FinalScore
	}
}
