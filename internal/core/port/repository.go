package port

import (
	"context"

	"github.com/Wyydra/callroom/internal/core/domain"
)

// RenderRepository keeps the latest render update per room.
type RenderRepository interface {
	Save(ctx context.Context, update domain.RenderUpdate) error
	Latest(ctx context.Context, roomID domain.RoomID) (domain.RenderUpdate, bool, error)
	Delete(ctx context.Context, roomID domain.RoomID) error
}
