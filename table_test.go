package sptable

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sptable/internal/chunk"
	"github.com/hupe1980/sptable/resource"
	"github.com/hupe1980/sptable/testutil"
)

func collect[T any](tbl *Table[T]) map[Handle]T {
	out := make(map[Handle]T)
	for h, v := range tbl.All() {
		out[h] = *v
	}
	return out
}

func TestNew(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		tbl, err := New[int](4, 8)
		require.NoError(t, err)
		defer tbl.Close()

		assert.Equal(t, 0, tbl.Len())
		assert.Equal(t, 32, tbl.Cap())
		assert.Equal(t, 8, tbl.ChunkSize())
		assert.Equal(t, 4, tbl.MaxChunks())
		assert.Equal(t, 0, tbl.Chunks())
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		cases := []struct {
			name      string
			maxChunks int
			chunkSize int
			field     string
		}{
			{"ZeroChunks", 0, 8, "maxChunks"},
			{"NegativeChunks", -1, 8, "maxChunks"},
			{"ZeroChunkSize", 4, 0, "chunkSize"},
			{"HandleOverflow", 1 << 20, 1 << 13, "maxChunks"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := New[int](tc.maxChunks, tc.chunkSize)
				require.Error(t, err)

				var cfgErr *ErrInvalidConfig
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, tc.field, cfgErr.Field)
			})
		}
	})
}

func TestTable_Walkthrough(t *testing.T) {
	tbl, err := New[string](2, 4)
	require.NoError(t, err)
	defer tbl.Close()

	var handles []Handle
	for _, s := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		h, err := tbl.Emplace(s)
		require.NoError(t, err)
		handles = append(handles, h)
	}
	assert.Equal(t, 8, tbl.Len())
	assert.Equal(t, 2, tbl.Chunks())

	_, err = tbl.Emplace("I")
	require.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 8, tbl.Len())

	require.NoError(t, tbl.Remove(handles[1]))
	require.NoError(t, tbl.Remove(handles[6]))
	assert.Equal(t, 6, tbl.Len())

	for _, s := range []string{"A", "C", "D", "E", "F", "H"} {
		found := false
		for v := range tbl.Values() {
			if *v == s {
				found = true
				break
			}
		}
		assert.True(t, found, "value %q lost", s)
	}

	// Survivors keep their handles.
	for i, want := range []string{"A", "", "C", "D", "E", "F", "", "H"} {
		if want == "" {
			assert.False(t, tbl.Contains(handles[i]))
			continue
		}
		got, ok := tbl.Get(handles[i])
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	x, err := tbl.Emplace("X")
	require.NoError(t, err)
	y, err := tbl.Emplace("Y")
	require.NoError(t, err)
	assert.NotEqual(t, x, y)
	assert.ElementsMatch(t, []Handle{handles[1], handles[6]}, []Handle{x, y})

	all := collect(tbl)
	assert.Len(t, all, 8)
	assert.Equal(t, "X", all[x])
	assert.Equal(t, "Y", all[y])
}

func TestTable_EmplaceAndLookup(t *testing.T) {
	tbl, err := New[int](4, 4)
	require.NoError(t, err)
	defer tbl.Close()

	t.Run("RoundTrip", func(t *testing.T) {
		h, err := tbl.Emplace(42)
		require.NoError(t, err)

		v, err := tbl.At(h)
		require.NoError(t, err)
		assert.Equal(t, 42, *v)
		assert.Equal(t, 42, *tbl.AtUnchecked(h))

		*v = 43
		got, ok := tbl.Get(h)
		assert.True(t, ok)
		assert.Equal(t, 43, got)
	})

	t.Run("EmplaceFunc", func(t *testing.T) {
		h, err := tbl.EmplaceFunc(func(v *int) { *v = 7 })
		require.NoError(t, err)
		got, ok := tbl.Get(h)
		assert.True(t, ok)
		assert.Equal(t, 7, got)
	})

	t.Run("MustEmplace", func(t *testing.T) {
		h := tbl.MustEmplace(9)
		assert.True(t, tbl.Contains(h))
	})

	t.Run("Locate", func(t *testing.T) {
		ci, slot := tbl.Locate(Handle(9))
		assert.Equal(t, 2, ci)
		assert.Equal(t, 1, slot)
	})

	t.Run("Missing", func(t *testing.T) {
		missing := Handle(tbl.Cap() - 1)
		assert.False(t, tbl.Contains(missing))

		_, err := tbl.At(missing)
		require.ErrorIs(t, err, ErrNotFound)

		_, ok := tbl.Get(missing)
		assert.False(t, ok)

		require.ErrorIs(t, tbl.Remove(missing), ErrNotFound)
		assert.False(t, tbl.Contains(Handle(1<<30)))
	})
}

func TestTable_Capacity(t *testing.T) {
	tbl, err := New[int](3, 5)
	require.NoError(t, err)
	defer tbl.Close()

	for i := 0; i < tbl.Cap(); i++ {
		_, err := tbl.Emplace(i)
		require.NoError(t, err)
	}
	assert.Equal(t, 15, tbl.Len())
	assert.Equal(t, 3, tbl.Chunks())

	_, err = tbl.Emplace(99)
	require.ErrorIs(t, err, ErrFull)
	_, err = tbl.EmplaceFunc(func(*int) {})
	require.ErrorIs(t, err, ErrFull)
	assert.Panics(t, func() { tbl.MustEmplace(99) })
	assert.Equal(t, 15, tbl.Len())
}

func TestTable_RemoveCompacts(t *testing.T) {
	tbl, err := New[int](1, 4)
	require.NoError(t, err)
	defer tbl.Close()

	handles := make([]Handle, 4)
	for i := range handles {
		handles[i], err = tbl.Emplace(i * 10)
		require.NoError(t, err)
	}

	// Removing the first value moves the last one into its slot.
	require.NoError(t, tbl.Remove(handles[0]))

	var dense []int
	for v := range tbl.Values() {
		dense = append(dense, *v)
	}
	assert.Equal(t, []int{30, 10, 20}, dense)

	for i := 1; i < 4; i++ {
		got, ok := tbl.Get(handles[i])
		require.True(t, ok)
		assert.Equal(t, i*10, got)
	}
}

func TestTable_ChunkRelease(t *testing.T) {
	tbl, err := New[int](2, 2)
	require.NoError(t, err)
	defer tbl.Close()

	a := tbl.MustEmplace(1)
	b := tbl.MustEmplace(2)
	c := tbl.MustEmplace(3)
	assert.Equal(t, 2, tbl.Chunks())

	require.NoError(t, tbl.Remove(c))
	assert.Equal(t, 1, tbl.Chunks())
	assert.False(t, tbl.Contains(c))
	assert.Equal(t, uint64(1), tbl.Stats().ChunksReleased)

	// A second remove of the same handle does not revive the chunk.
	require.ErrorIs(t, tbl.Remove(c), ErrNotFound)
	assert.Equal(t, 1, tbl.Chunks())

	require.NoError(t, tbl.Remove(a))
	require.NoError(t, tbl.Remove(b))
	assert.Equal(t, 0, tbl.Chunks())
	assert.Equal(t, 0, tbl.Len())
	assert.Empty(t, collect(tbl))

	// Capacity is fully available again.
	for i := 0; i < tbl.Cap(); i++ {
		_, err := tbl.Emplace(i)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, tbl.Chunks())
}

func TestTable_FillsNonFullChunksFirst(t *testing.T) {
	tbl, err := New[int](4, 4)
	require.NoError(t, err)
	defer tbl.Close()

	handles := make([]Handle, 8)
	for i := range handles {
		handles[i] = tbl.MustEmplace(i)
	}
	require.Equal(t, 2, tbl.Chunks())

	require.NoError(t, tbl.Remove(handles[2]))
	assert.Equal(t, 1, tbl.Stats().NonFullChunks)

	h := tbl.MustEmplace(100)
	ci, _ := tbl.Locate(h)
	assert.Equal(t, 0, ci)
	assert.Equal(t, 2, tbl.Chunks())
	assert.Equal(t, 0, tbl.Stats().NonFullChunks)
}

func TestTable_Iteration(t *testing.T) {
	tbl, err := New[int](8, 16)
	require.NoError(t, err)
	defer tbl.Close()

	want := make(map[Handle]int)
	for i := 0; i < 100; i++ {
		h := tbl.MustEmplace(i)
		want[h] = i
	}
	for h, v := range want {
		if v%3 == 0 {
			require.NoError(t, tbl.Remove(h))
			delete(want, h)
		}
	}

	t.Run("All", func(t *testing.T) {
		assert.Equal(t, want, collect(tbl))
	})

	t.Run("Handles", func(t *testing.T) {
		var got []Handle
		for h := range tbl.Handles() {
			got = append(got, h)
		}
		assert.Len(t, got, len(want))
		for _, h := range got {
			assert.Contains(t, want, h)
		}
	})

	t.Run("Values", func(t *testing.T) {
		n := 0
		for v := range tbl.Values() {
			assert.NotZero(t, *v%3)
			n++
		}
		assert.Equal(t, tbl.Len(), n)
	})

	t.Run("EarlyExit", func(t *testing.T) {
		n := 0
		for range tbl.All() {
			n++
			if n == 5 {
				break
			}
		}
		assert.Equal(t, 5, n)

		n = 0
		for range tbl.Values() {
			n++
			break
		}
		assert.Equal(t, 1, n)
	})

	t.Run("Mutate", func(t *testing.T) {
		for _, v := range tbl.All() {
			*v *= 2
		}
		for h, v := range want {
			got, ok := tbl.Get(h)
			require.True(t, ok)
			assert.Equal(t, v*2, got)
		}
	})
}

func TestTable_LiveHandles(t *testing.T) {
	tbl, err := New[int](4, 8)
	require.NoError(t, err)
	defer tbl.Close()

	assert.True(t, tbl.LiveHandles().IsEmpty())

	var live []uint32
	for i := 0; i < 20; i++ {
		h := tbl.MustEmplace(i)
		if i%2 == 0 {
			require.NoError(t, tbl.Remove(h))
			continue
		}
		live = append(live, uint32(h))
	}

	rb := tbl.LiveHandles()
	assert.Equal(t, uint64(tbl.Len()), rb.GetCardinality())
	for _, h := range live {
		assert.True(t, rb.Contains(h))
	}

	// The snapshot does not follow later mutations.
	tbl.MustEmplace(100)
	assert.Equal(t, uint64(len(live)), rb.GetCardinality())
}

func TestTable_Clear(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	rc := resource.NewController(resource.Config{})
	tbl, err := New[int](4, 4, WithMetricsCollector(metrics), WithMemoryController(rc))
	require.NoError(t, err)
	defer tbl.Close()

	var handles []Handle
	for i := 0; i < 10; i++ {
		handles = append(handles, tbl.MustEmplace(i))
	}
	require.Equal(t, 3, tbl.Chunks())
	require.Positive(t, rc.MemoryUsage())

	tbl.Clear()
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, 0, tbl.Chunks())
	assert.Equal(t, int64(0), rc.MemoryUsage())
	for _, h := range handles {
		assert.False(t, tbl.Contains(h))
	}

	stats := tbl.Stats()
	assert.Equal(t, uint64(3), stats.ChunksReleased)
	assert.Equal(t, 0, stats.NonFullChunks)
	assert.Equal(t, int64(0), metrics.GetStats().ChunksLive)

	// The table is fully usable after Clear.
	for i := 0; i < tbl.Cap(); i++ {
		_, err := tbl.Emplace(i)
		require.NoError(t, err)
	}
}

func TestTable_Close(t *testing.T) {
	tbl, err := New[int](2, 2)
	require.NoError(t, err)

	h := tbl.MustEmplace(1)
	require.NoError(t, tbl.Close())
	require.NoError(t, tbl.Close())

	assert.Equal(t, 0, tbl.Len())
	assert.False(t, tbl.Contains(h))

	_, err = tbl.Emplace(2)
	require.ErrorIs(t, err, ErrClosed)
	_, err = tbl.EmplaceFunc(func(*int) {})
	require.ErrorIs(t, err, ErrClosed)
	_, err = tbl.At(h)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, tbl.Remove(h), ErrClosed)
	_, ok := tbl.Get(h)
	assert.False(t, ok)

	stats := tbl.Stats()
	assert.Equal(t, 0, stats.ActiveChunks)
	assert.Equal(t, 0, stats.MemoryBytes)
}

func TestTable_MemoryController(t *testing.T) {
	chunkBytes := chunk.FootprintBytes[int64](4)
	rc := resource.NewController(resource.Config{MemoryLimitBytes: int64(chunkBytes)})

	tbl, err := New[int64](4, 4, WithMemoryController(rc))
	require.NoError(t, err)
	defer tbl.Close()

	var handles []Handle
	for i := 0; i < 4; i++ {
		handles = append(handles, tbl.MustEmplace(int64(i)))
	}
	assert.Equal(t, int64(chunkBytes), rc.MemoryUsage())

	_, err = tbl.Emplace(4)
	require.ErrorIs(t, err, ErrMemoryLimitExceeded)
	require.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, 1, tbl.Chunks())

	// Releasing the only chunk returns its budget.
	for _, h := range handles {
		require.NoError(t, tbl.Remove(h))
	}
	assert.Equal(t, int64(0), rc.MemoryUsage())
	assert.Equal(t, int64(chunkBytes), rc.PeakMemoryUsage())

	_, err = tbl.Emplace(5)
	require.NoError(t, err)
}

func TestTable_SharedMemoryController(t *testing.T) {
	chunkBytes := chunk.FootprintBytes[int](2)
	rc := resource.NewController(resource.Config{MemoryLimitBytes: int64(2 * chunkBytes)})

	a, err := New[int](4, 2, WithMemoryController(rc))
	require.NoError(t, err)
	defer a.Close()
	b, err := New[int](4, 2, WithMemoryController(rc))
	require.NoError(t, err)
	defer b.Close()

	a.MustEmplace(1)
	b.MustEmplace(1)

	// Both budget slots are taken, so neither table can grow.
	a.MustEmplace(2)
	_, err = a.Emplace(3)
	require.ErrorIs(t, err, ErrMemoryLimitExceeded)

	b.Clear()
	_, err = a.Emplace(3)
	require.NoError(t, err)
}

func TestTable_OffHeapIndex(t *testing.T) {
	tbl, err := New[string](4, 64, WithOffHeapIndex())
	require.NoError(t, err)

	handles := make(map[Handle]string)
	for i := 0; i < 200; i++ {
		s := fmt.Sprintf("v%d", i)
		handles[tbl.MustEmplace(s)] = s
	}
	for h, s := range handles {
		got, ok := tbl.Get(h)
		require.True(t, ok)
		assert.Equal(t, s, got)
	}
	assert.Equal(t, handles, collect(tbl))

	require.NoError(t, tbl.Close())
}

func TestTable_Stats(t *testing.T) {
	tbl, err := New[int](4, 4)
	require.NoError(t, err)
	defer tbl.Close()

	h := tbl.MustEmplace(1)
	for i := 0; i < 4; i++ {
		tbl.MustEmplace(i)
	}
	require.NoError(t, tbl.Remove(h))

	s := tbl.Stats()
	assert.Equal(t, 4, s.Len)
	assert.Equal(t, 16, s.Cap)
	assert.Equal(t, 4, s.ChunkSize)
	assert.Equal(t, 4, s.MaxChunks)
	assert.Equal(t, 2, s.ActiveChunks)
	assert.Equal(t, 2, s.NonFullChunks)
	assert.Equal(t, uint64(2), s.ChunksAllocated)
	assert.Equal(t, uint64(0), s.ChunksReleased)
	assert.Equal(t, uint64(5), s.Emplaces)
	assert.Equal(t, uint64(1), s.Removes)
	assert.GreaterOrEqual(t, s.MemoryBytes, 2*chunk.FootprintBytes[int](4))
}

func TestTable_Churn(t *testing.T) {
	rng := testutil.NewRNG(4711)
	tbl, err := New[int](16, 32)
	require.NoError(t, err)
	defer tbl.Close()

	model := make(map[Handle]int)
	var live []Handle

	for i, op := range rng.ChurnOps(20000, 0.55) {
		switch {
		case op.Kind == testutil.OpInsert && tbl.Len() < tbl.Cap():
			h, err := tbl.Emplace(i)
			require.NoError(t, err)
			require.NotContains(t, model, h)
			model[h] = i
			live = append(live, h)
		case op.Kind == testutil.OpInsert:
			_, err := tbl.Emplace(i)
			require.ErrorIs(t, err, ErrFull)
		case len(live) > 0:
			j := op.Pick(len(live))
			h := live[j]
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
			require.NoError(t, tbl.Remove(h))
			delete(model, h)
		}

		require.Equal(t, len(model), tbl.Len())
	}

	assert.Equal(t, model, collect(tbl))
	assert.Equal(t, uint64(len(model)), tbl.LiveHandles().GetCardinality())

	// Every allocated chunk holds at least one value.
	for ci := 0; ci < tbl.MaxChunks(); ci++ {
		if tbl.chunks.Contains(ci) {
			assert.Positive(t, (*tbl.chunks.AtUnchecked(ci)).Len())
		}
	}
}

func TestTable_EmplaceFuncPanic(t *testing.T) {
	t.Run("NewChunk", func(t *testing.T) {
		rc := resource.NewController(resource.Config{})
		tbl, err := New[int](1, 4, WithMemoryController(rc))
		require.NoError(t, err)
		defer tbl.Close()

		assert.Panics(t, func() {
			_, _ = tbl.EmplaceFunc(func(v *int) {
				*v = 42
				panic("init failed")
			})
		})

		assert.Equal(t, 0, tbl.Len())
		assert.Equal(t, 0, tbl.Chunks())
		assert.Empty(t, collect(tbl))
		assert.Equal(t, int64(0), rc.MemoryUsage())

		for i := 0; i < tbl.Cap(); i++ {
			_, err := tbl.Emplace(i)
			require.NoError(t, err)
		}
		assert.Equal(t, 4, tbl.Len())
	})

	t.Run("ExistingChunk", func(t *testing.T) {
		tbl, err := New[int](1, 4)
		require.NoError(t, err)
		defer tbl.Close()

		h := tbl.MustEmplace(1)
		assert.Panics(t, func() {
			_, _ = tbl.EmplaceFunc(func(v *int) {
				*v = 42
				panic("init failed")
			})
		})

		assert.Equal(t, 1, tbl.Len())
		assert.Equal(t, map[Handle]int{h: 1}, collect(tbl))
		assert.Equal(t, 1, tbl.Stats().NonFullChunks)

		for i := 0; i < 3; i++ {
			_, err := tbl.Emplace(i)
			require.NoError(t, err)
		}
		_, err = tbl.Emplace(99)
		require.ErrorIs(t, err, ErrFull)
	})
}

func TestTable_Backward(t *testing.T) {
	tbl, err := New[int](4, 3)
	require.NoError(t, err)
	defer tbl.Close()

	handles := make([]Handle, 10)
	for i := range handles {
		handles[i] = tbl.MustEmplace(i)
	}
	require.NoError(t, tbl.Remove(handles[1]))
	require.NoError(t, tbl.Remove(handles[7]))

	var forward, backward []Handle
	for h, v := range tbl.All() {
		forward = append(forward, h)
		assert.Equal(t, *tbl.AtUnchecked(h), *v)
	}
	for h, v := range tbl.Backward() {
		backward = append(backward, h)
		assert.Equal(t, *tbl.AtUnchecked(h), *v)
	}
	slices.Reverse(backward)
	assert.Equal(t, forward, backward)

	n := 0
	for range tbl.Backward() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}
