package vault

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKeystore(t *testing.T) {
	k := NewMemoryKeystore()
	ctx := context.Background()

	_, err := k.GetWrapped(ctx, "rec-1")
	assert.ErrorIs(t, err, ErrKeyUnavailable)

	require.NoError(t, k.PutWrapped(ctx, "rec-1", []byte("wrapped")))
	wrapped, err := k.GetWrapped(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("wrapped"), wrapped)

	require.NoError(t, k.Discard(ctx, "rec-1"))
	_, err = k.GetWrapped(ctx, "rec-1")
	assert.ErrorIs(t, err, ErrKeyUnavailable)
}

func TestRedisKeystore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	k := NewRedisKeystore(client)
	ctx := context.Background()

	_, err := k.GetWrapped(ctx, "rec-1")
	assert.ErrorIs(t, err, ErrKeyUnavailable)

	require.NoError(t, k.PutWrapped(ctx, "rec-1", []byte("wrapped")))
	wrapped, err := k.GetWrapped(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("wrapped"), wrapped)

	require.NoError(t, k.Discard(ctx, "rec-1"))
	_, err = k.GetWrapped(ctx, "rec-1")
	assert.ErrorIs(t, err, ErrKeyUnavailable)
}

func TestHKDFKeyProviderIsDeterministicPerRecord(t *testing.T) {
	p, err := NewHKDFKeyProvider([]byte("master-key-material-0123456789ab"))
	require.NoError(t, err)

	a1, err := p.MaterialFor(context.Background(), "rec-a")
	require.NoError(t, err)
	a2, err := p.MaterialFor(context.Background(), "rec-a")
	require.NoError(t, err)
	b, err := p.MaterialFor(context.Background(), "rec-b")
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
}

func TestHKDFKeyProviderRejectsShortMaster(t *testing.T) {
	_, err := NewHKDFKeyProvider([]byte("short"))
	assert.Error(t, err)
}
