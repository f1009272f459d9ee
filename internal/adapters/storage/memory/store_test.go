package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/crew/internal/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "admin/token")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, store.Put(ctx, "admin/token", "a"))
	got, err := store.Get(ctx, "admin/token")
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	require.NoError(t, store.Delete(ctx, "admin/token"))
	require.NoError(t, store.Delete(ctx, "admin/token"))
	_, err = store.Get(ctx, "admin/token")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, store.Put(ctx, "admin/token", "a"), context.Canceled)
	_, err := store.Get(context.Background(), "admin/token")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)
}
