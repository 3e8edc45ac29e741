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

type cachedThing struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		SetClient(nil)
		mr.Close()
	})
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()
	calls := 0

	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			*dest = cachedThing{ID: 1, Name: "Ada"}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, IdentityKey(1), &first, IdentityTTL, fetch(&first)))
	assert.Equal(t, "Ada", first.Name)
	assert.True(t, mr.Exists(IdentityKey(1)))

	var second cachedThing
	require.NoError(t, Aside(ctx, IdentityKey(1), &second, IdentityTTL, fetch(&second)))
	assert.Equal(t, "Ada", second.Name)
	assert.Equal(t, 1, calls)

	mr.FastForward(IdentityTTL + time.Second)
	var third cachedThing
	require.NoError(t, Aside(ctx, IdentityKey(1), &third, IdentityTTL, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := withMiniredis(t)

	var dest cachedThing
	err := Aside(context.Background(), IdentityKey(2), &dest, IdentityTTL, func() error {
		return errors.New("not found")
	})
	require.Error(t, err)
	assert.False(t, mr.Exists(IdentityKey(2)))
}

func TestAside_NoClientFallsThrough(t *testing.T) {
	SetClient(nil)

	var dest cachedThing
	calls := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), IdentityKey(3), &dest, IdentityTTL, func() error {
			calls++
			dest = cachedThing{ID: 3}
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestAside_RedisDownDegradesToFetch(t *testing.T) {
	mr := withMiniredis(t)
	mr.Close()

	var dest cachedThing
	err := Aside(context.Background(), IdentityKey(4), &dest, IdentityTTL, func() error {
		dest = cachedThing{ID: 4, Name: "Grace"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Grace", dest.Name)
}

func TestInvalidateIdentity(t *testing.T) {
	mr := withMiniredis(t)
	require.NoError(t, SetJSON(context.Background(), IdentityKey(5), cachedThing{ID: 5}, time.Minute))
	require.True(t, mr.Exists(IdentityKey(5)))

	InvalidateIdentity(context.Background(), 5)
	assert.False(t, mr.Exists(IdentityKey(5)))
}

func TestInitRedis_UnreachableDisablesCache(t *testing.T) {
	t.Cleanup(func() { SetClient(nil) })

	assert.Nil(t, InitRedis("127.0.0.1:1"))
	assert.Nil(t, GetClient())

	mr := miniredis.RunT(t)
	assert.NotNil(t, InitRedis("redis://"+mr.Addr()))
	assert.NotNil(t, GetClient())
}
