package port

import "github.com/Wyydra/callroom/internal/core/domain"

type Metrics interface {
	SnapshotBuilt(participants int)
	DominantChanged(state domain.SelectorState)
	RendererRequested()
	RendererAttached()
	RendererReleased()
	StaleRendererDiscarded()
	RoomsActive(n int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) SnapshotBuilt(int) {}
func (NopMetrics) DominantChanged(domain.SelectorState) {}
func (NopMetrics) RendererRequested() {}
func (NopMetrics) RendererAttached() {}
func (NopMetrics) RendererReleased() {}
func (NopMetrics) StaleRendererDiscarded() {}
func (NopMetrics) RoomsActive(int) {}
