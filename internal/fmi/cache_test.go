package fmi

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ResolvesEachBinaryOnce(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	var calls atomic.Int32
	c := NewCache(func(ctx context.Context, path string) (*Descriptor, func() error, error) {
		calls.Add(1)
		return NewDescriptor(path, "m", "{g}", CoSimulation, Capabilities{}, nil), nil, nil
	})

	var wg sync.WaitGroup
	results := make([]*Descriptor, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := c.Get(ctx, "builtin:gain")
			assert.NoError(t, err)
			results[i] = d
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.Len())
	for _, d := range results {
		assert.Same(t, results[0], d, "instances of one binary must share a descriptor")
	}
}

func TestCache_CachesFailures(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	boom := errors.New("boom")
	var calls atomic.Int32
	c := NewCache(func(ctx context.Context, path string) (*Descriptor, func() error, error) {
		calls.Add(1)
		return nil, nil, boom
	})

	_, err := c.Get(ctx, "builtin:broken")
	require.ErrorIs(t, err, boom)
	_, err = c.Get(ctx, "builtin:broken")
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int32(1), calls.Load())
	_, ok := c.Peek("builtin:broken")
	assert.False(t, ok)
}

func TestCache_PeekNeverResolves(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	c := NewCache(func(ctx context.Context, path string) (*Descriptor, func() error, error) {
		return NewDescriptor(path, "m", "{g}", CoSimulation, Capabilities{}, nil), nil, nil
	})

	_, ok := c.Peek("builtin:lazy")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	_, err := c.Get(ctx, "builtin:lazy")
	require.NoError(t, err)
	d, ok := c.Peek("builtin:lazy")
	require.True(t, ok)
	assert.Equal(t, "builtin:lazy", d.Path)
}

func TestCache_CloseRunsCleanupsInReverseOrder(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	var order []string
	failing := errors.New("cleanup failed")
	c := NewCache(func(ctx context.Context, path string) (*Descriptor, func() error, error) {
		return NewDescriptor(path, "m", "{g}", CoSimulation, Capabilities{}, nil), func() error {
			order = append(order, path)
			if path == "builtin:b" {
				return failing
			}
			return nil
		}, nil
	})

	for _, p := range []string{"builtin:a", "builtin:b", "builtin:c"} {
		_, err := c.Get(ctx, p)
		require.NoError(t, err)
	}

	err := c.Close()
	require.ErrorIs(t, err, failing)
	assert.Equal(t, []string{"builtin:c", "builtin:b", "builtin:a"}, order)
	assert.Equal(t, 0, c.Len())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "builtin:gain", Key("builtin:gain"))

	abs := Key("models/a.fmu")
	assert.True(t, len(abs) > 0 && abs[0] == '/', "relative paths are made absolute")
	assert.Equal(t, abs, Key("./models/../models/a.fmu"))
}
