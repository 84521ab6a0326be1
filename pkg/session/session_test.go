package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreKeepsSessionsApart(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a := store.Open("a")
	require.NoError(t, a.Set(ctx, CartKey, "[1]"))

	v, ok, err := store.Open("a").Get(ctx, CartKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[1]", v)

	_, ok, err = store.Open("b").Get(ctx, CartKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Remove(ctx, CartKey))
	_, ok, _ = a.Get(ctx, CartKey)
	assert.False(t, ok)

	assert.NoError(t, store.Open("never-written").Remove(ctx, CartKey))
}
