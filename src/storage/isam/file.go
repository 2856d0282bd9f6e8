package isam

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Blackdeer1524/ISAMStore/src"
	"github.com/Blackdeer1524/ISAMStore/src/bufferpool"
	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
	"github.com/Blackdeer1524/ISAMStore/src/storage/catalog"
	"github.com/Blackdeer1524/ISAMStore/src/storage/disk"
	"github.com/Blackdeer1524/ISAMStore/src/storage/index"
	"github.com/Blackdeer1524/ISAMStore/src/storage/page"
	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
)

var ErrPolicyMismatch = errors.New("data file does not match the overflow policy")

type pageStore interface {
	ReadPage(pageID common.PageID) (*page.Page, error)
	WritePage(pageID common.PageID, p *page.Page) error
	AppendPage(p *page.Page) (common.PageID, error)
}

var (
	_ pageStore = &disk.Manager[*page.Page]{}
	_ pageStore = &bufferpool.Manager[*page.Page]{}
)

// File is an indexed sequential file: fixed-capacity pages of one record
// schema plus a sparse index over the primary pages. File owns both the
// data file and the index. All public methods are serialized by one
// mutex; the file handle is opened and closed inside each page access.
type File struct {
	mu sync.Mutex

	opts   Options
	fs     afero.Fs
	log    src.Logger
	tel    telemetry
	layout *page.Layout

	disk  *disk.Manager[*page.Page]
	cache *bufferpool.Manager[*page.Page]
	pages pageStore

	index *index.Sparse

	pageCount    int
	primaryCount int
	tombstones   *roaring.Bitmap
	overflow     *roaring.Bitmap

	// stale is set when an operation failed half way; the next insert
	// rescans the data file before trusting the in-memory state.
	stale bool
}

// Open prepares the data file (creating it if needed), scans it once and
// loads or rebuilds the index.
func Open(opts Options, fs afero.Fs, log src.Logger) (*File, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	codec, err := record.NewCodec(opts.Schema)
	if err != nil {
		return nil, err
	}
	layout, err := page.NewLayout(codec, opts.BlockFactor)
	if err != nil {
		return nil, err
	}

	tel, err := newTelemetry(opts.TracerProvider, opts.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	if opts.CatalogPath != "" {
		want := catalog.NewData(opts.Schema, opts.BlockFactor, string(opts.Policy), layout.Size())
		created, err := catalog.Ensure(fs, opts.CatalogPath, want)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", opts.CatalogPath, err)
		}
		if created {
			log.Debugw("created catalog", "path", opts.CatalogPath)
		}
	}

	f := &File{
		opts:       opts,
		fs:         fs,
		log:        log,
		tel:        tel,
		layout:     layout,
		disk:       disk.New[*page.Page](opts.DataPath, fs, layout),
		index:      index.NewSparse(),
		tombstones: roaring.New(),
		overflow:   roaring.New(),
	}
	f.pages = f.disk

	if opts.CachePages > 0 {
		f.cache, err = bufferpool.New[*page.Page](opts.CachePages, bufferpool.NewLRUReplacer(), f.disk)
		if err != nil {
			return nil, err
		}
		f.pages = f.cache
	}

	if err := f.disk.Create(); err != nil {
		return nil, err
	}

	dir, err := f.scanDirectory()
	if err != nil {
		return nil, err
	}
	f.apply(dir)

	if f.loadIndex(dir) {
		log.Debugw("loaded persisted index", "path", opts.IndexPath, "entries", f.index.Len())
	} else {
		f.index.Rebuild(slices.Values(dir.primaries))
		log.Debugw("built index from data file", "entries", f.index.Len())
	}

	log.Infow(
		"opened sequential file",
		"path", f.disk.Path(),
		"pages", f.pageCount,
		"primary_pages", f.primaryCount,
		"tombstones", f.tombstones.GetCardinality(),
		"policy", opts.Policy,
		"block_factor", opts.BlockFactor,
	)
	return f, nil
}

func (f *File) apply(dir directory) {
	f.pageCount = dir.pageCount
	f.primaryCount = len(dir.primaries)
	f.tombstones = dir.tombstones
	f.overflow = dir.overflow
	f.stale = false
}

// loadIndex adopts the persisted index when its entries match the primary
// pages found by the scan, key for key.
func (f *File) loadIndex(dir directory) bool {
	if f.opts.IndexPath == "" {
		return false
	}

	loaded, err := index.Load(f.fs, f.opts.IndexPath)
	if err != nil {
		f.log.Warnw("ignoring unreadable index file", "path", f.opts.IndexPath, zap.Error(err))
		return false
	}
	idx, ok := loaded.Get()
	if !ok || idx.Len() != len(dir.primaries) {
		return false
	}

	minKeys := make(map[common.PageID]int32, len(dir.primaries))
	for _, p := range dir.primaries {
		minKeys[p.ID] = p.MinKey
	}
	for _, e := range idx.Entries() {
		minKey, ok := minKeys[e.PageID]
		if !ok || minKey != e.Key {
			f.log.Warnw("persisted index disagrees with the data file", "page", e.PageID, "key", e.Key)
			return false
		}
		delete(minKeys, e.PageID)
	}

	f.index = idx
	return true
}

// reload rescans the data file and rebuilds the index from scratch.
func (f *File) reload() error {
	dir, err := f.scanDirectory()
	if err != nil {
		return err
	}
	f.apply(dir)
	f.index.Rebuild(slices.Values(dir.primaries))
	f.log.Infow("rebuilt index", "entries", f.index.Len(), "pages", f.pageCount)
	return nil
}

// Rebuild regenerates the index from the data file.
func (f *File) Rebuild() (err error) {
	span := f.tel.start("Rebuild")
	defer func() { endSpan(span, err) }()

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.reload(); err != nil {
		return err
	}
	f.persistIndex()
	span.SetAttributes(attribute.Int("isam.index.entries", f.index.Len()))
	return nil
}

// ensureFresh reloads after a failed operation left the state unknown.
func (f *File) ensureFresh() error {
	if !f.stale {
		return nil
	}
	return f.reload()
}

func (f *File) indexIsStale() bool {
	return f.stale || f.index.Len() != f.primaryCount
}

// persistIndex saves the index when a path is configured. The data file is
// the durability boundary, so a failure here is only logged.
func (f *File) persistIndex() {
	if f.opts.IndexPath == "" || f.stale {
		return
	}
	if err := f.index.Save(f.fs, f.opts.IndexPath); err != nil {
		f.log.Warnw("failed to persist index", "path", f.opts.IndexPath, zap.Error(err))
	}
}

// mutate runs op under the lock, marks the state stale when op fails and
// persists the index when op reports a change.
func (f *File) mutate(op func() (bool, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	changed, err := op()
	if err != nil {
		f.stale = true
		return err
	}
	if changed {
		f.persistIndex()
	}
	return nil
}

func (f *File) Layout() *page.Layout {
	return f.layout
}

func (f *File) Codec() *record.Codec {
	return f.layout.Codec()
}

func (f *File) Policy() OverflowPolicy {
	return f.opts.Policy
}

// IndexEntries returns a copy of the current index.
func (f *File) IndexEntries() []index.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.index.Entries()
}

type Stats struct {
	PageSize      int
	Pages         int
	PrimaryPages  int
	OverflowPages int
	Tombstones    int
	IndexEntries  int
	Cache         bufferpool.Stats
}

func (f *File) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Stats{
		PageSize:      f.disk.PageSize(),
		Pages:         f.pageCount,
		PrimaryPages:  f.primaryCount,
		OverflowPages: int(f.overflow.GetCardinality()),
		Tombstones:    int(f.tombstones.GetCardinality()),
		IndexEntries:  f.index.Len(),
	}
	if f.cache != nil {
		s.Cache = f.cache.Stats()
	}
	return s
}

// Close persists the index. The data file has no open handle to release.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.opts.IndexPath == "" {
		return nil
	}
	if f.stale {
		if err := f.reload(); err != nil {
			return err
		}
	}
	return f.index.Save(f.fs, f.opts.IndexPath)
}
