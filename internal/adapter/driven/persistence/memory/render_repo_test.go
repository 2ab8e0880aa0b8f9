package memory

import (
	"context"
	"testing"

	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRenderRepository()
	room := domain.NewRoomID()

	_, ok, err := repo.Latest(ctx, room)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Save(ctx, domain.RenderUpdate{RoomID: room, Version: 2}))
	require.NoError(t, repo.Save(ctx, domain.RenderUpdate{RoomID: room, Version: 1}))

	got, ok, err := repo.Latest(ctx, room)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.Version, "older versions never overwrite newer ones")

	require.NoError(t, repo.Delete(ctx, room))
	_, ok, _ = repo.Latest(ctx, room)
	assert.False(t, ok)
}
