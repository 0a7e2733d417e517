// Package selection maintains the set of images marked for export and
// drives the export call against the gateway.
package selection

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"frameselect/internal/curation"
	"frameselect/internal/gateway"
	"frameselect/pkg/api"
)

var (
	// ErrEmptySelection is returned when export is requested with nothing
	// selected. Never reaches the network.
	ErrEmptySelection = errors.New("select at least one image")

	// ErrExportInFlight is returned when an export is already running.
	// Concurrent attempts are rejected, not queued.
	ErrExportInFlight = errors.New("an export is already in progress")
)

// Exporter is the part of the gateway the manager needs.
type Exporter interface {
	ExportSelected(ctx context.Context, uploadID string, imageIDs []string) (gateway.Export, error)
}

// Manager owns the curation state for one results session and guards the
// export call with a single-slot in-flight flag.
type Manager struct {
	mu        sync.Mutex
	state     curation.State
	exporting bool
	exporter  Exporter
}

func NewManager(exporter Exporter) *Manager {
	return &Manager{state: curation.NewState(), exporter: exporter}
}

// State returns a snapshot of the current curation state.
func (m *Manager) State() curation.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Update applies a pure reducer to the current state.
func (m *Manager) Update(fn func(curation.State) curation.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = fn(m.state)
}

// ToggleSelect flips membership of an image in the export selection.
func (m *Manager) ToggleSelect(imageID string) {
	m.Update(func(s curation.State) curation.State { return s.ToggleSelect(imageID) })
}

// SelectTopN replaces the selection with the first n ids of the currently
// visible sequence, respecting active filters and sort. Replace, not union.
func (m *Manager) SelectTopN(n int, images []api.ImageScore) {
	m.mu.Lock()
	defer m.mu.Unlock()

	visible := curation.Visible(images, m.state)
	if n > len(visible) {
		n = len(visible)
	}
	ids := make([]string, 0, n)
	for _, img := range visible[:n] {
		ids = append(ids, img.ImageId)
	}
	m.state = m.state.SelectExactly(ids)
}

func (m *Manager) ClearSelection() {
	m.Update(func(s curation.State) curation.State { return s.ClearSelection() })
}

// IsExporting reports whether an export is currently in flight.
func (m *Manager) IsExporting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exporting
}

// Export downloads the selected images as an archive. Fails fast on an
// empty selection and rejects concurrent calls while one is in flight.
// Selection order (insertion order) determines the archive entry order.
func (m *Manager) Export(ctx context.Context, uploadID string) (gateway.Export, error) {
	m.mu.Lock()
	if m.exporting {
		m.mu.Unlock()
		return gateway.Export{}, ErrExportInFlight
	}
	ids := m.state.Selected.Values()
	if len(ids) == 0 {
		m.mu.Unlock()
		return gateway.Export{}, ErrEmptySelection
	}
	m.exporting = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.exporting = false
		m.mu.Unlock()
	}()

	slog.Info("exporting selection", "upload_id", uploadID, "count", len(ids))
	return m.exporter.ExportSelected(ctx, uploadID, ids)
}
