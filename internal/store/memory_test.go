package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uavpath/internal/model"
)

func TestMemorySaveGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.Error(t, m.SaveRun(ctx, model.Run{}))

	run := model.Run{ID: "r1", Path: []int{0, 2}, Visited: []int{}, Skipped: []int{1}}
	require.NoError(t, m.SaveRun(ctx, run))
	run.Path[1] = 9

	got, err := m.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, got.Path)

	_, err = m.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, m.Ping(ctx))
}

func TestMemoryListPaging(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, m.SaveRun(ctx, model.Run{ID: fmt.Sprintf("r%d", i)}))
	}

	page, next, err := m.ListRuns(ctx, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r4", "r3"}, ids(page))
	assert.Equal(t, "r3", next)

	page, next, err = m.ListRuns(ctx, next, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, ids(page))
	assert.Equal(t, "r1", next)

	page, next, err = m.ListRuns(ctx, next, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r0"}, ids(page))
	assert.Empty(t, next)

	page, _, err = m.ListRuns(ctx, "unknown", 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func ids(runs []model.Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
