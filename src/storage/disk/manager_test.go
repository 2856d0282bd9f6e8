package disk

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
	"github.com/Blackdeer1524/ISAMStore/src/pkg/utils"
	"github.com/Blackdeer1524/ISAMStore/src/storage/page"
	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
)

func newTestManager(t testing.TB, fs afero.Fs, path string) (*Manager[*page.Page], *page.Layout) {
	t.Helper()
	codec, err := record.NewCodec(record.SalesSchema())
	require.NoError(t, err)
	layout, err := page.NewLayout(codec, 3)
	require.NoError(t, err)
	return New[*page.Page](path, fs, layout), layout
}

func rec(key int32) record.Record {
	return record.Record{key, "item", int32(2), 9.5, "2024-01-01"}
}

func TestCreateAndPageCount(t *testing.T) {
	fs := afero.NewMemMapFs()
	m, _ := newTestManager(t, fs, "/var/lib/isam/sales.dat")

	n, err := m.PageCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, m.Create())
	require.NoError(t, m.Create())

	ok, err := utils.IsFileExists(fs, "/var/lib/isam/sales.dat")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err = m.PageCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAppendReadWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	m, layout := newTestManager(t, fs, "/sales.dat")
	require.NoError(t, m.Create())

	id, err := m.AppendPage(page.New(rec(1)))
	require.NoError(t, err)
	assert.Equal(t, common.PageID(0), id)

	id, err = m.AppendPage(page.New(rec(4), rec(5)))
	require.NoError(t, err)
	assert.Equal(t, common.PageID(1), id)

	n, err := m.PageCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	info, err := fs.Stat("/sales.dat")
	require.NoError(t, err)
	assert.Equal(t, int64(2*layout.Size()), info.Size())

	p, err := m.ReadPage(1)
	require.NoError(t, err)
	assert.Equal(t, page.New(rec(4), rec(5)), p)

	p.Records = p.Records[:1]
	p.Link = 0
	require.NoError(t, m.WritePage(1, p))

	got, err := m.ReadPage(1)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	n, err = m.PageCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n, "overwrite must not grow the file")
}

func TestOutOfRange(t *testing.T) {
	fs := afero.NewMemMapFs()
	m, _ := newTestManager(t, fs, "/sales.dat")

	_, err := m.ReadPage(0)
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = m.AppendPage(page.New(rec(1)))
	require.NoError(t, err)

	_, err = m.ReadPage(1)
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = m.ReadPage(-1)
	require.ErrorIs(t, err, ErrOutOfRange)

	err = m.WritePage(1, page.New(rec(2)))
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestPartialPage(t *testing.T) {
	fs := afero.NewMemMapFs()
	m, _ := newTestManager(t, fs, "/sales.dat")
	require.NoError(t, afero.WriteFile(fs, "/sales.dat", []byte{1, 2, 3}, 0o600))

	_, err := m.PageCount()
	require.ErrorIs(t, err, ErrPartialPage)
}

func TestScan(t *testing.T) {
	fs := afero.NewMemMapFs()
	m, _ := newTestManager(t, fs, "/sales.dat")

	blocks, err := utils.Collect(m.Scan())
	require.NoError(t, err)
	assert.Empty(t, blocks)

	for i := range int32(4) {
		_, err := m.AppendPage(page.New(rec(i)))
		require.NoError(t, err)
	}

	for range 2 {
		blocks, err = utils.Collect(m.Scan())
		require.NoError(t, err)
		require.Len(t, blocks, 4)
		for i, b := range blocks {
			assert.Equal(t, common.PageID(i), b.ID)
			assert.Equal(t, page.New(rec(int32(i))), b.Page)
		}
	}

	seen := 0
	for range m.Scan() {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestReplace(t *testing.T) {
	fs := afero.NewMemMapFs()
	m, _ := newTestManager(t, fs, "/data/sales.dat")
	require.NoError(t, m.Create())

	for i := range int32(5) {
		_, err := m.AppendPage(page.New(rec(i)))
		require.NoError(t, err)
	}

	require.NoError(t, m.Replace([]*page.Page{
		page.New(rec(0), rec(1), rec(2)),
		page.New(rec(3), rec(4)),
	}))

	n, err := m.PageCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := afero.ReadDir(fs, "/data")
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file must not be left behind")

	p, err := m.ReadPage(1)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())

	require.NoError(t, m.Replace(nil))
	info, err := fs.Stat("/data/sales.dat")
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestCreateKeepsExistingPages(t *testing.T) {
	fs := afero.NewMemMapFs()
	m, _ := newTestManager(t, fs, "/sales.dat")
	require.NoError(t, m.Create())

	_, err := m.AppendPage(page.New(rec(1)))
	require.NoError(t, err)
	require.NoError(t, m.Create())

	n, err := m.PageCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "/sales.dat", m.Path())
}

func TestOsFs(t *testing.T) {
	dir := t.TempDir()
	m, _ := newTestManager(t, afero.NewOsFs(), dir+"/sales.dat")
	require.NoError(t, m.Create())

	_, err := m.AppendPage(page.New(rec(7)))
	require.NoError(t, err)
	require.NoError(t, m.Replace([]*page.Page{page.New(rec(8))}))

	p, err := m.ReadPage(0)
	require.NoError(t, err)
	assert.Equal(t, page.New(rec(8)), p)
}

func BenchmarkAppendPage(b *testing.B) {
	m, _ := newTestManager(b, afero.NewMemMapFs(), "/bench.dat")
	p := page.New(rec(1), rec(2))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := m.AppendPage(p)
		require.NoError(b, err)
	}
}
