package valuestore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/cosimgo/internal/fmi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	s := New()

	// Nothing recorded yet
	_, ok := s.Get(fmi.Real, 0)
	assert.False(t, ok)

	s.Set(0, fmi.RealValue(1.5))
	s.Set(0, fmi.IntegerValue(7))

	// Same reference, different types, independent slots
	v, ok := s.Get(fmi.Real, 0)
	require.True(t, ok)
	assert.Equal(t, 1.5, v.Real)

	v, ok = s.Get(fmi.Integer, 0)
	require.True(t, ok)
	assert.Equal(t, int32(7), v.Int)

	_, ok = s.Get(fmi.Boolean, 0)
	assert.False(t, ok)
}

func TestEntries(t *testing.T) {
	s := New()
	s.Set(3, fmi.StringValue("c"))
	s.Set(1, fmi.StringValue("a"))
	s.Set(2, fmi.StringValue("b"))

	entries := s.Entries(fmi.String)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, uint32(i+1), e.ValueReference)
	}
	assert.Equal(t, "a", entries[0].Value.Str)

	s.Reset()
	assert.Empty(t, s.Entries(fmi.String))
}

func TestSnapshotAndLoad(t *testing.T) {
	s := New()
	s.Set(0, fmi.RealValue(1))
	s.Set(0, fmi.BooleanValue(true))
	saved := s.Snapshot()

	s.Set(0, fmi.RealValue(2))
	s.Set(5, fmi.IntegerValue(9))
	s.Load(saved)

	v, ok := s.Get(fmi.Real, 0)
	require.True(t, ok)
	assert.Equal(t, 1.0, v.Real)
	_, ok = s.Get(fmi.Integer, 5)
	assert.False(t, ok, "values set after the snapshot are dropped")
	assert.Len(t, s.Entries(fmi.Boolean), 1)
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	numGoroutines := 50

	wg.Add(numGoroutines * 2)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			s.Set(uint32(i), fmi.RealValue(float64(i)))
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = s.Entries(fmi.Real)
			_, _ = s.Get(fmi.Real, uint32(i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < numGoroutines; i++ {
		v, ok := s.Get(fmi.Real, uint32(i))
		require.True(t, ok, fmt.Sprintf("vr %d", i))
		assert.Equal(t, float64(i), v.Real)
	}
}
