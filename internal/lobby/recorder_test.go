package lobby

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	_, ok := r.Last()
	assert.False(t, ok)

	require.NoError(t, r.UpdateRoomStatus(ctx, &RoomStatusUpdate{RoomCode: "ABC234", Status: StatusWaiting, UpdatedAt: 1}))
	require.NoError(t, r.UpdateRoomStatus(ctx, &RoomStatusUpdate{RoomCode: "ABC234", Status: StatusPlaying, UpdatedAt: 2}))

	assert.Equal(t, 2, r.Len())

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, StatusPlaying, last.Status)

	updates := r.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, StatusWaiting, updates[0].Status)
}
