package utils

import (
	"errors"
	"iter"
	"math/rand"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUniqueInts(t *testing.T) {
	t.Run("basic functionality", func(t *testing.T) {
		result := GenerateUniqueInts[int](5, 1, 10, rand.New(rand.NewSource(42)))

		require.Len(t, result, 5, "Should return exactly 5 numbers")

		seen := make(map[int]bool)
		for _, num := range result {
			assert.GreaterOrEqual(t, num, 1)
			assert.LessOrEqual(t, num, 10)
			assert.False(t, seen[num], "Number %d should not be duplicated", num)
			seen[num] = true
		}
	})

	t.Run("zero count", func(t *testing.T) {
		result := GenerateUniqueInts[int32](0, 1, 10, rand.New(rand.NewSource(42)))
		assert.Empty(t, result)
	})

	t.Run("full range", func(t *testing.T) {
		result := GenerateUniqueInts[int](3, 1, 3, rand.New(rand.NewSource(42)))
		assert.ElementsMatch(t, []int{1, 2, 3}, result)
	})

	t.Run("count too large", func(t *testing.T) {
		assert.Panics(t, func() {
			GenerateUniqueInts[int](4, 1, 3, rand.New(rand.NewSource(42)))
		})
	})
}

func TestCollectStopsAtError(t *testing.T) {
	boom := errors.New("boom")
	var seq iter.Seq[Pair[int, error]] = func(yield func(Pair[int, error]) bool) {
		if !yield(Pair[int, error]{First: 1}) {
			return
		}
		if !YieldError(boom, yield) {
			return
		}
		yield(Pair[int, error]{First: 3})
	}

	got, err := Collect(seq)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1}, got)
}

func TestIsFileExists(t *testing.T) {
	fs := afero.NewMemMapFs()

	ok, err := IsFileExists(fs, "/data/file.dat")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, afero.WriteFile(fs, "/data/file.dat", []byte{1}, 0o600))

	ok, err = IsFileExists(fs, "/data/file.dat")
	require.NoError(t, err)
	assert.True(t, ok)
}
