package memory

import (
	"context"
	"sync"

	"github.com/Wyydra/callroom/internal/core/domain"
)

// RenderRepository keeps the latest render update of each room in memory.
type RenderRepository struct {
	mu      sync.Mutex
	updates map[domain.RoomID]domain.RenderUpdate
}

func NewRenderRepository() *RenderRepository {
	return &RenderRepository{
		updates: make(map[domain.RoomID]domain.RenderUpdate),
	}
}

// Save stores update unless a newer version is already stored.
func (r *RenderRepository) Save(ctx context.Context, update domain.RenderUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.updates[update.RoomID]; ok && cur.Version > update.Version {
		return nil
	}
	r.updates[update.RoomID] = update
	return nil
}

func (r *RenderRepository) Latest(ctx context.Context, roomID domain.RoomID) (domain.RenderUpdate, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	update, ok := r.updates[roomID]
	return update, ok, nil
}

func (r *RenderRepository) Delete(ctx context.Context, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.updates, roomID)
	return nil
}
