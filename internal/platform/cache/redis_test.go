package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilClientIsAlwaysMissing(t *testing.T) {
	var c *RedisClient
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute))

	var dst map[string]int
	ok, err := c.GetJSON(ctx, "k", &dst)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, dst)

	assert.NoError(t, c.DeletePattern(ctx, "k*"))
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
}

func TestCostKey(t *testing.T) {
	assert.Equal(t, "recipes:cost:42", CostKey(42))

	var c *RedisClient
	assert.NoError(t, c.InvalidateRecipeCosts(context.Background()))
}
