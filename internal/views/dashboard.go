package views

import (
	"context"
	"sync"

	"github.com/tagging-ai/tagboard/pkg/models"
)

// DashboardView shows aggregate stats over the record store and follows it.
type DashboardView struct {
	mount *Mount
	store Records

	mu    sync.Mutex
	stats models.Stats
	err   string
}

// NewDashboardView computes stats from the current snapshot and keeps them
// current until m is unmounted.
func NewDashboardView(m *Mount, store Records) *DashboardView {
	v := &DashboardView{mount: m, store: store, stats: models.ComputeStats(store.Snapshot())}
	m.OnUnmount(store.Subscribe(func(snapshot []models.AnalysisResult) {
		stats := models.ComputeStats(snapshot)
		m.Apply(func() {
			v.mu.Lock()
			v.stats = stats
			v.mu.Unlock()
		})
	}))
	return v
}

// Refresh reloads history from the backend.
func (v *DashboardView) Refresh(ctx context.Context) error {
	ctx, cancel := v.mount.Bind(ctx)
	defer cancel()
	err := v.store.LoadAll(ctx)
	v.mount.Apply(func() {
		v.mu.Lock()
		v.err = errMessage(err)
		v.mu.Unlock()
	})
	return err
}

// Stats returns the latest stats.
func (v *DashboardView) Stats() models.Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}

// Err returns the last refresh error message.
func (v *DashboardView) Err() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}
