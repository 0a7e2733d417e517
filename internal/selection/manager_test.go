package selection_test

import (
	"context"
	"testing"
	"time"

	"frameselect/internal/curation"
	"frameselect/internal/gateway"
	"frameselect/internal/selection"
	"frameselect/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExporter struct {
	calls   [][]string
	block   chan struct{}
	archive []byte
}

func (f *fakeExporter) ExportSelected(ctx context.Context, uploadID string, imageIDs []string) (gateway.Export, error) {
	f.calls = append(f.calls, imageIDs)
	if f.block != nil {
		<-f.block
	}
	return gateway.Export{Filename: "export.zip", Data: f.archive}, nil
}

func scored(ids ...string) []api.ImageScore {
	images := make([]api.ImageScore, 0, len(ids))
	for i, id := range ids {
		images = append(images, api.ImageScore{ImageId: id, FinalScore: 1.0 - float64(i)*0.1})
	}
	return images
}

func TestSelectTopNReplacesSelection(t *testing.T) {
	m := selection.NewManager(&fakeExporter{})
	m.ToggleSelect("stale")

	m.SelectTopN(2, scored("a", "b", "c"))

	assert.Equal(t, []string{"a", "b"}, m.State().Selected.Values())
	assert.False(t, m.State().Selected.Has("stale"))
}

func TestSelectTopNClampsToVisibleCount(t *testing.T) {
	m := selection.NewManager(&fakeExporter{})

	m.SelectTopN(10, scored("a", "b"))

	assert.Equal(t, []string{"a", "b"}, m.State().Selected.Values())
}

func TestSelectTopNRespectsFilters(t *testing.T) {
	m := selection.NewManager(&fakeExporter{})
	m.Update(func(s curation.State) curation.State { return s.Reject("a") })

	m.SelectTopN(2, scored("a", "b", "c"))

	assert.Equal(t, []string{"b", "c"}, m.State().Selected.Values())
}

func TestExportEmptySelection(t *testing.T) {
	exp := &fakeExporter{}
	m := selection.NewManager(exp)

	_, err := m.Export(context.Background(), "up1")

	assert.ErrorIs(t, err, selection.ErrEmptySelection)
	assert.Empty(t, exp.calls, "empty selection must never reach the gateway")
}

func TestExportSendsSelectionInInsertionOrder(t *testing.T) {
	exp := &fakeExporter{archive: []byte("zip")}
	m := selection.NewManager(exp)
	m.ToggleSelect("c")
	m.ToggleSelect("a")
	m.ToggleSelect("b")

	export, err := m.Export(context.Background(), "up1")

	require.NoError(t, err)
	assert.Equal(t, "export.zip", export.Filename)
	require.Len(t, exp.calls, 1)
	assert.Equal(t, []string{"c", "a", "b"}, exp.calls[0])
}

func TestExportRejectsConcurrentCalls(t *testing.T) {
	exp := &fakeExporter{block: make(chan struct{})}
	m := selection.NewManager(exp)
	m.ToggleSelect("a")

	firstDone := make(chan error, 1)
	go func() {
		_, err := m.Export(context.Background(), "up1")
		firstDone <- err
	}()

	require.Eventually(t, m.IsExporting, time.Second, time.Millisecond)

	_, err := m.Export(context.Background(), "up1")
	assert.ErrorIs(t, err, selection.ErrExportInFlight)

	close(exp.block)
	require.NoError(t, <-firstDone)
	assert.False(t, m.IsExporting())
	require.Len(t, exp.calls, 1)
}
