package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

func TestMemoryCacheRoundTripAndPatternDelete(t *testing.T) {
	repo := NewMemoryCacheRepository(time.Minute, time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "timetable:view:grid:a", map[string]int{"n": 1}, time.Minute))
	require.NoError(t, repo.Set(ctx, "timetable:view:agenda:b", map[string]int{"n": 2}, time.Minute))
	require.NoError(t, repo.Set(ctx, "other:key", map[string]int{"n": 3}, time.Minute))

	var got map[string]int
	require.NoError(t, repo.Get(ctx, "timetable:view:grid:a", &got))
	assert.Equal(t, 1, got["n"])

	require.NoError(t, repo.DeleteByPattern(ctx, "timetable:view:*"))
	err := repo.Get(ctx, "timetable:view:agenda:b", &got)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Get(ctx, "other:key", &got))
}
