package curation_test

import (
	"testing"

	"frameselect/internal/curation"

	"github.com/stretchr/testify/assert"
)

func TestSetPreservesInsertionOrder(t *testing.T) {
	set := curation.Set{}.Add("c").Add("a").Add("b").Add("a")

	assert.Equal(t, []string{"c", "a", "b"}, set.Values())
	assert.Equal(t, 3, set.Len())
}

func TestSetRemove(t *testing.T) {
	set := curation.NewSet("a", "b", "c").Remove("b").Remove("missing")

	assert.Equal(t, []string{"a", "c"}, set.Values())
	assert.False(t, set.Has("b"))
}

func TestSetCopyOnWrite(t *testing.T) {
	base := curation.NewSet("a")
	grown := base.Add("b")
	shrunk := base.Remove("a")

	assert.Equal(t, []string{"a"}, base.Values())
	assert.Equal(t, []string{"a", "b"}, grown.Values())
	assert.Zero(t, shrunk.Len())
}

func TestZeroSetIsUsable(t *testing.T) {
	var set curation.Set

	assert.False(t, set.Has("a"))
	assert.Empty(t, set.Values())
	assert.Equal(t, []string{"a"}, set.Add("a").Values())
}
