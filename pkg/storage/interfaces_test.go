package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		require.Len(t, id, IDLength)
		require.NoError(t, CheckID(id))
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestCheckID(t *testing.T) {
	assert.NoError(t, CheckID("65f1c2a9b3e4d5f6a7b8c9d0"))
	assert.True(t, errors.Is(CheckID("65f1c2a9"), ErrInvalidID))
	assert.True(t, errors.Is(CheckID("zzzzzzzzzzzzzzzzzzzzzzzz"), ErrInvalidID))
}

func TestPrepare(t *testing.T) {
	d := &Description{}
	require.NoError(t, Prepare(d))
	assert.Len(t, d.ID, IDLength)
	assert.False(t, d.CreatedAt.IsZero())

	assert.True(t, errors.Is(Prepare(&Description{ID: "short"}), ErrInvalidID))
}

func TestPage(t *testing.T) {
	list := []*Description{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Len(t, Page(list, 0, 0), 3)
	assert.Equal(t, "b", Page(list, 1, 1)[0].ID)
	assert.Len(t, Page(list, 10, 2), 1)
	assert.Empty(t, Page(list, 1, 5))
	assert.Len(t, Page(list, 2, -1), 2)
}
