package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
)

func newLayout(t *testing.T, blockFactor int) *Layout {
	t.Helper()
	codec, err := record.NewCodec(record.SalesSchema())
	require.NoError(t, err)
	l, err := NewLayout(codec, blockFactor)
	require.NoError(t, err)
	return l
}

func rec(key int32) record.Record {
	return record.Record{key, "item", int32(1), float64(key) * 1.5, "2024-01-01"}
}

func keys(l *Layout, p *Page) []int32 {
	out := make([]int32, 0, p.Len())
	for _, r := range p.Records {
		out = append(out, l.Key(r))
	}
	return out
}

func TestMarshalIsFixedSize(t *testing.T) {
	l := newLayout(t, 3)

	for _, p := range []*Page{New(), New(rec(1)), New(rec(1), rec(2), rec(3)), NewTombstone()} {
		data, err := l.Marshal(p)
		require.NoError(t, err)
		assert.Len(t, data, l.Size())
	}
	assert.Equal(t, HeaderSize+3*l.Codec().Size(), l.Size())
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	l := newLayout(t, 4)

	p := New(rec(1), rec(5))
	p.Link = 9

	data, err := l.Marshal(p)
	require.NoError(t, err)

	got, err := l.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestUnusedSlotsAreZero(t *testing.T) {
	l := newLayout(t, 3)

	data, err := l.Marshal(New(rec(1)))
	require.NoError(t, err)

	tail := data[HeaderSize+l.Codec().Size():]
	assert.Equal(t, make([]byte, len(tail)), tail)
}

func TestUnmarshalIgnoresPadding(t *testing.T) {
	l := newLayout(t, 3)

	data, err := l.Marshal(New(rec(1)))
	require.NoError(t, err)

	// garbage past count must not be decoded
	for i := HeaderSize + l.Codec().Size(); i < len(data); i++ {
		data[i] = 0xFF
	}
	got, err := l.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, []int32{1}, keys(l, got))
}

func TestUnmarshalCorrupt(t *testing.T) {
	l := newLayout(t, 3)

	_, err := l.Unmarshal(make([]byte, l.Size()-1))
	require.ErrorIs(t, err, ErrCorruptPage)

	data, err := l.Marshal(New())
	require.NoError(t, err)
	data[0] = 4
	_, err = l.Unmarshal(data)
	require.ErrorIs(t, err, ErrCorruptPage)

	data[0], data[4], data[5], data[6], data[7] = 0, 0xFD, 0xFF, 0xFF, 0xFF
	_, err = l.Unmarshal(data)
	require.ErrorIs(t, err, ErrCorruptPage)
}

func TestMarshalOverCapacityPanics(t *testing.T) {
	l := newLayout(t, 2)
	require.Panics(t, func() {
		_, _ = l.Marshal(New(rec(1), rec(2), rec(3)))
	})
}

func TestNewDoesNotShareRecords(t *testing.T) {
	l := newLayout(t, 3)

	a := New()
	b := New()
	l.Insert(a, rec(1))

	assert.Equal(t, 0, b.Len())
	assert.Equal(t, common.NoLink, b.Link)
}

func TestInsertKeepsOrder(t *testing.T) {
	l := newLayout(t, 5)
	p := New()

	assert.True(t, l.Insert(p, rec(5)))
	assert.False(t, l.Insert(p, rec(9)))
	assert.True(t, l.Insert(p, rec(2)))
	assert.False(t, l.Insert(p, rec(7)))

	assert.Equal(t, []int32{2, 5, 7, 9}, keys(l, p))
	assert.Equal(t, int32(2), l.MinKey(p))
	assert.False(t, l.IsFull(p))

	l.Insert(p, rec(1))
	assert.True(t, l.IsFull(p))
}

func TestRemove(t *testing.T) {
	l := newLayout(t, 3)
	p := New(rec(1), rec(2), rec(3))

	r, ok := l.Remove(p, 2)
	require.True(t, ok)
	assert.Equal(t, int32(2), l.Key(r))
	assert.Equal(t, []int32{1, 3}, keys(l, p))

	_, ok = l.Remove(p, 42)
	assert.False(t, ok)
	assert.Equal(t, -1, l.Find(p, 2))
	assert.Equal(t, 1, l.Find(p, 3))
}

func TestSplit(t *testing.T) {
	l := newLayout(t, 3)
	p := New(rec(1), rec(2), rec(3))
	l.Insert(p, rec(4))

	upper := l.Split(p)
	assert.Equal(t, []int32{1, 2}, keys(l, p))
	assert.Equal(t, []int32{3, 4}, keys(l, upper))
	assert.Equal(t, common.NoLink, upper.Link)

	// halves must not alias
	l.Insert(p, rec(0))
	assert.Equal(t, []int32{3, 4}, keys(l, upper))
}

func TestNewLayoutRejectsZeroBlockFactor(t *testing.T) {
	codec, err := record.NewCodec(record.SalesSchema())
	require.NoError(t, err)
	_, err = NewLayout(codec, 0)
	require.Error(t, err)
}

func TestClone(t *testing.T) {
	l := newLayout(t, 3)
	p := New(rec(1), rec(3))
	p.Link = 4

	c := p.Clone()
	assert.Equal(t, p, c)

	l.Insert(c, rec(2))
	c.Link = common.NoLink
	assert.Equal(t, []int32{1, 3}, keys(l, p))
	assert.Equal(t, common.PageID(4), p.Link)
}
