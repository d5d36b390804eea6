package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = Close() })
	return mr
}

type payload struct {
	Name string `json:"name"`
}

func TestAside_MissThenHit(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *payload) func() error {
		return func() error {
			calls++
			dest.Name = "Elektronika"
			return nil
		}
	}

	var first payload
	require.NoError(t, Aside(ctx, CategoriesKey, &first, time.Minute, fetch(&first)))
	var second payload
	require.NoError(t, Aside(ctx, CategoriesKey, &second, time.Minute, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "Elektronika", second.Name)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	var dest payload
	err := Aside(context.Background(), "k", &dest, time.Minute, func() error { return errors.New("db down") })
	require.Error(t, err)
	assert.False(t, mr.Exists("k"))
}

func TestAside_WithoutClientCallsFetch(t *testing.T) {
	SetClient(nil)
	var dest payload
	called := false
	require.NoError(t, Aside(context.Background(), "k", &dest, time.Minute, func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestAside_CorruptEntryFallsBackToFetch(t *testing.T) {
	mr := setupMiniredis(t)
	require.NoError(t, mr.Set("k", "{not json"))

	var dest payload
	require.NoError(t, Aside(context.Background(), "k", &dest, time.Minute, func() error {
		dest.Name = "fresh"
		return nil
	}))
	assert.Equal(t, "fresh", dest.Name)
}

func TestInvalidateListing(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	require.NoError(t, SetJSON(ctx, ListingKey(4), payload{Name: "x"}, time.Minute))
	require.NoError(t, SetJSON(ctx, LatestListingsKey, []payload{{Name: "x"}}, time.Minute))

	InvalidateListing(ctx, 4)

	assert.False(t, mr.Exists("listing:4"))
	assert.False(t, mr.Exists(LatestListingsKey))
}

func TestSetJSON_TTL(t *testing.T) {
	mr := setupMiniredis(t)
	require.NoError(t, SetJSON(context.Background(), "ttl", payload{}, 30*time.Second))
	assert.Equal(t, 30*time.Second, mr.TTL("ttl"))
}
