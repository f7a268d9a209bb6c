package attempt

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewStore(client)
}

func TestCreateAndConsume(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Create(ctx, Attempt{
		State:    "state-1",
		Provider: "google",
		Verifier: "verifier-1",
	})
	require.NoError(t, err)

	a, err := store.Consume(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, "google", a.Provider)
	assert.Equal(t, "verifier-1", a.Verifier)
}

func TestConsumeIsSingleUse(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, Attempt{
		State:    "state-1",
		Provider: "github",
		Verifier: "verifier-1",
	}))

	_, err := store.Consume(ctx, "state-1")
	require.NoError(t, err)

	_, err = store.Consume(ctx, "state-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeUnknownState(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Consume(context.Background(), "forged-state")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRejectsIncompleteAttempt(t *testing.T) {
	store := newTestStore(t)

	err := store.Create(context.Background(), Attempt{State: "state-1"})
	assert.Error(t, err)
}
