package loadercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racesim/pkg/utils/cache"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func countingLoader(calls *int) func(int) (*string, error) {
	return func(k int) (*string, error) {
		*calls++
		if k < 0 {
			return nil, errors.New("negative key")
		}
		v := time.Duration(k).String()
		return &v, nil
	}
}

func TestLoaderCache_Get(t *testing.T) {
	calls := 0
	c := New(WithLoader[int, string](countingLoader(&calls)))
	ctx := context.Background()

	v, err := c.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "5ns", *v)
	_, err = c.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = c.Get(ctx, -1)
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len())

	c.Invalidate(ctx, 5)
	assert.Equal(t, 0, c.Len())
	_, err = c.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestLoaderCache_NoLoader(t *testing.T) {
	c := New[int, string]()
	_, err := c.Get(context.Background(), 1)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestLoaderCache_Expiration(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	calls := 0
	c := New(
		WithLoader[int, string](countingLoader(&calls)),
		WithExpiration[int, string](time.Minute),
		WithClock[int, string](clock.now),
	)
	ctx := context.Background()
	_, _ = c.Get(ctx, 1)
	clock.t = clock.t.Add(30 * time.Second)
	_, _ = c.Get(ctx, 1)
	assert.Equal(t, 1, calls)
	clock.t = clock.t.Add(31 * time.Second)
	_, _ = c.Get(ctx, 1)
	assert.Equal(t, 2, calls)
}

func TestLoaderCache_MaxItems(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	calls := 0
	c := New(
		WithLoader[int, string](countingLoader(&calls)),
		WithMaxItems[int, string](2),
		WithClock[int, string](clock.now),
	)
	ctx := context.Background()
	for k := range 3 {
		_, err := c.Get(ctx, k)
		require.NoError(t, err)
		clock.t = clock.t.Add(time.Second)
	}
	assert.Equal(t, 2, c.Len())
	// key 0 was the oldest and got evicted
	_, _ = c.Get(ctx, 0)
	assert.Equal(t, 4, calls)

	c.InvalidateAll(ctx)
	assert.Equal(t, 0, c.Len())
}
