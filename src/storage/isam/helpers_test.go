package isam

import (
	"cmp"
	"fmt"
	"slices"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
	"github.com/Blackdeer1524/ISAMStore/src/pkg/utils"
	"github.com/Blackdeer1524/ISAMStore/src/storage/disk"
	"github.com/Blackdeer1524/ISAMStore/src/storage/index"
	"github.com/Blackdeer1524/ISAMStore/src/storage/page"
	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
)

const testDataPath = "/var/lib/isam/sales.dat"

type testConfig struct {
	name   string
	policy OverflowPolicy
	bf     int
	cache  int
}

var allConfigs = []testConfig{
	{name: "split/bf3", policy: PolicySplit, bf: 3},
	{name: "split/bf4/cached", policy: PolicySplit, bf: 4, cache: 2},
	{name: "chain/bf3", policy: PolicyChain, bf: 3},
	{name: "chain/bf2/cached", policy: PolicyChain, bf: 2, cache: 3},
}

func testOptions(policy OverflowPolicy, bf int) Options {
	return Options{
		DataPath:    testDataPath,
		Schema:      record.SalesSchema(),
		BlockFactor: bf,
		Policy:      policy,
	}
}

func openTestFile(t *testing.T, fs afero.Fs, opts Options) *File {
	t.Helper()
	f, err := Open(opts, fs, zap.NewNop().Sugar())
	require.NoError(t, err)
	return f
}

func newTestFile(t *testing.T, cfg testConfig) *File {
	t.Helper()
	opts := testOptions(cfg.policy, cfg.bf)
	opts.CachePages = cfg.cache
	return openTestFile(t, afero.NewMemMapFs(), opts)
}

func sale(key int32) record.Record {
	return record.Record{key, fmt.Sprintf("product %d", key), key % 7, float64(key) * 10.5, "04/06/2024"}
}

func mustInsert(t *testing.T, f *File, keys ...int32) {
	t.Helper()
	for _, k := range keys {
		require.NoError(t, f.Insert(sale(k)), "insert %d", k)
	}
}

func requireFound(t *testing.T, f *File, key int32) {
	t.Helper()
	got, err := f.Search(key)
	require.NoError(t, err)
	require.True(t, got.IsSome(), "key %d must be found", key)
	require.Equal(t, sale(key), got.Unwrap())
}

func requireMissing(t *testing.T, f *File, key int32) {
	t.Helper()
	got, err := f.Search(key)
	require.NoError(t, err)
	require.True(t, got.IsNone(), "key %d must not be found", key)
}

func scanPages(t *testing.T, f *File) []ScannedPage {
	t.Helper()
	pages, err := utils.Collect(f.ScanAll())
	require.NoError(t, err)
	return pages
}

func pageKeys(f *File, p ScannedPage) []int32 {
	out := make([]int32, 0, len(p.Records))
	for _, r := range p.Records {
		out = append(out, f.layout.Key(r))
	}
	return out
}

// checkInvariants verifies the structural invariants against a fresh scan
// of the data file.
func checkInvariants(t *testing.T, f *File) {
	t.Helper()

	pages := scanPages(t, f)
	byID := make(map[common.PageID]ScannedPage, len(pages))
	linked := make(map[common.PageID]bool)

	for _, p := range pages {
		keys := pageKeys(f, p)
		require.LessOrEqual(t, len(keys), f.layout.BlockFactor(), "page %d over capacity", p.ID)
		require.True(t, slices.IsSorted(keys), "page %d not sorted: %v", p.ID, keys)
		if p.Link == common.Tombstone {
			require.Empty(t, keys, "tombstone %d holds records", p.ID)
		}
		if p.Link >= 0 {
			require.Equal(t, PolicyChain, f.opts.Policy)
			linked[p.Link] = true
		}
		byID[p.ID] = p
	}

	entries := f.IndexEntries()
	require.True(t, slices.IsSortedFunc(entries, func(a, b index.Entry) int { return cmp.Compare(a.Key, b.Key) }), "index not sorted: %v", entries)

	primaries := 0
	for _, p := range pages {
		if len(p.Records) > 0 && !linked[p.ID] {
			primaries++
		}
	}
	require.Equal(t, primaries, len(entries), "one entry per primary page")

	for _, e := range entries {
		p, ok := byID[e.PageID]
		require.True(t, ok)
		require.False(t, linked[e.PageID], "index points at overflow page %d", e.PageID)

		minKey := pageKeys(f, p)[0]
		for id := p.Link; id >= 0; id = byID[id].Link {
			if keys := pageKeys(f, byID[id]); len(keys) > 0 && keys[0] < minKey {
				minKey = keys[0]
			}
		}
		require.Equal(t, minKey, e.Key, "entry key of page %d", e.PageID)
	}
}

func diskOver(f *File, fs afero.Fs) *disk.Manager[*page.Page] {
	return disk.New[*page.Page](f.opts.DataPath, fs, f.layout)
}
