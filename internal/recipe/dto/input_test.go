package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalYield(t *testing.T) {
	var absent UpdateRecipeInput
	require.NoError(t, json.Unmarshal([]byte(`{"recipe_name":"dough"}`), &absent))
	assert.False(t, absent.Yield.Set)

	var cleared UpdateRecipeInput
	require.NoError(t, json.Unmarshal([]byte(`{"yield":null}`), &cleared))
	assert.True(t, cleared.Yield.Set)
	assert.False(t, cleared.Yield.Value.Valid)

	var set UpdateRecipeInput
	require.NoError(t, json.Unmarshal([]byte(`{"yield":"12.5"}`), &set))
	assert.True(t, set.Yield.Set)
	assert.True(t, set.Yield.Value.Valid)
	assert.Equal(t, "12.5", set.Yield.Value.Decimal.String())
}
