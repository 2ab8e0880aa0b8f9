package port

import (
	"context"

	"github.com/Wyydra/callroom/internal/core/domain"
)

type RenderGateway interface {
	PublishRender(ctx context.Context, update domain.RenderUpdate) error
}
