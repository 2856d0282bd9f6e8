package index

import (
	"iter"
	"math/rand"
	"slices"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
)

func primaries(pages ...PrimaryPage) iter.Seq[PrimaryPage] {
	return slices.Values(pages)
}

func TestPredecessorEmpty(t *testing.T) {
	s := NewSparse()
	assert.True(t, s.Predecessor(10).IsNone())
}

func TestPredecessor(t *testing.T) {
	s := NewSparse()
	s.Rebuild(primaries(
		PrimaryPage{ID: 0, MinKey: 10},
		PrimaryPage{ID: 2, MinKey: 30},
		PrimaryPage{ID: 1, MinKey: 20},
	))

	require.Equal(t, []Entry{{10, 0}, {20, 1}, {30, 2}}, s.Entries())

	tests := []struct {
		key  int32
		want common.PageID
	}{
		{key: -5, want: 0},
		{key: 9, want: 0},
		{key: 10, want: 0},
		{key: 19, want: 0},
		{key: 20, want: 1},
		{key: 29, want: 1},
		{key: 30, want: 2},
		{key: 1 << 30, want: 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Predecessor(tt.key).Unwrap(), "key %d", tt.key)
	}
}

func TestPredecessorMatchesLinearScan(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	s := NewSparse()

	var pages []PrimaryPage
	for i, k := range rnd.Perm(50) {
		pages = append(pages, PrimaryPage{ID: common.PageID(i), MinKey: int32(k * 10)})
	}
	s.Rebuild(primaries(pages...))
	entries := s.Entries()

	for range 500 {
		key := int32(rnd.Intn(600) - 50)

		want := entries[0].PageID
		for _, e := range entries {
			if e.Key <= key {
				want = e.PageID
			}
		}
		require.Equal(t, want, s.Predecessor(key).Unwrap(), "key %d", key)
	}
}

func TestInsertRemoveUpdate(t *testing.T) {
	s := NewSparse()
	s.Insert(20, 1)
	s.Insert(10, 0)
	s.Insert(30, 4)
	s.Insert(15, 3)

	assert.Equal(t, []Entry{{10, 0}, {15, 3}, {20, 1}, {30, 4}}, s.Entries())

	assert.Equal(t, 1, s.RemovePage(3))
	assert.Equal(t, 0, s.RemovePage(3))
	assert.Equal(t, 3, s.Len())

	assert.True(t, s.UpdateKey(4, 5))
	assert.Equal(t, []Entry{{5, 4}, {10, 0}, {20, 1}}, s.Entries())
	assert.False(t, s.UpdateKey(9, 1))

	assert.Equal(t, int32(20), s.Lookup(1).Unwrap())
	assert.True(t, s.Lookup(9).IsNone())
}

func TestEntriesIsACopy(t *testing.T) {
	s := NewSparse()
	s.Insert(1, 0)

	e := s.Entries()
	e[0].Key = 100
	assert.Equal(t, int32(1), s.Entries()[0].Key)
}

func TestMarshalUnmarshal(t *testing.T) {
	s := NewSparse()
	s.Insert(-4, 2)
	s.Insert(7, 0)
	s.Insert(70, 1)

	data, err := s.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, 3*EntrySize)

	got := NewSparse()
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, s.Entries(), got.Entries())
}

func TestUnmarshalCorrupt(t *testing.T) {
	s := NewSparse()
	require.ErrorIs(t, s.UnmarshalBinary(make([]byte, 5)), ErrCorruptIndex)

	bad := NewSparse()
	bad.entries = []Entry{{Key: 5, PageID: 0}, {Key: 1, PageID: 1}}
	data, err := bad.MarshalBinary()
	require.NoError(t, err)
	require.ErrorIs(t, s.UnmarshalBinary(data), ErrCorruptIndex)

	bad.entries = []Entry{{Key: 5, PageID: common.Tombstone}}
	data, err = bad.MarshalBinary()
	require.NoError(t, err)
	require.ErrorIs(t, s.UnmarshalBinary(data), ErrCorruptIndex)
}

func TestSaveLoad(t *testing.T) {
	fs := afero.NewMemMapFs()

	loaded, err := Load(fs, "/idx/sales.idx")
	require.NoError(t, err)
	assert.True(t, loaded.IsNone())

	s := NewSparse()
	s.Insert(1, 0)
	s.Insert(4, 1)
	require.NoError(t, s.Save(fs, "/idx/sales.idx"))

	loaded, err = Load(fs, "/idx/sales.idx")
	require.NoError(t, err)
	assert.Equal(t, s.Entries(), loaded.Unwrap().Entries())

	require.NoError(t, afero.WriteFile(fs, "/idx/bad.idx", []byte{1, 2, 3}, 0o600))
	_, err = Load(fs, "/idx/bad.idx")
	require.ErrorIs(t, err, ErrCorruptIndex)
}
