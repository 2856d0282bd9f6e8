package isam

import (
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
	"github.com/Blackdeer1524/ISAMStore/src/storage/index"
	"github.com/Blackdeer1524/ISAMStore/src/storage/page"
	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
)

// Insert adds r to the page its key routes to. Keys are not checked for
// uniqueness.
func (f *File) Insert(r record.Record) (err error) {
	span := f.tel.start("Insert")
	defer func() { endSpan(span, err) }()

	if _, err := f.layout.Codec().Encode(r); err != nil {
		return err
	}
	span.SetAttributes(attribute.Int64("isam.key", int64(f.layout.Key(r))))
	r = slices.Clone(r)
	return f.mutate(func() (bool, error) {
		return true, f.insert(r)
	})
}

func (f *File) insert(r record.Record) error {
	key := f.layout.Key(r)

	if f.indexIsStale() {
		if err := f.reload(); err != nil {
			return fmt.Errorf("failed to rebuild stale index: %w", err)
		}
	}

	if f.pageCount == 0 {
		return f.insertFirst(r)
	}

	target, ok := f.index.Predecessor(key).Get()
	if !ok {
		// every page is a tombstone or overflow-only page
		return f.insertNewPrimary(r)
	}

	chain, err := f.readChain(target)
	if err != nil {
		return err
	}

	if !f.tombstones.IsEmpty() && f.canStartPageAt(key, target, chain) {
		return f.insertNewPrimary(r)
	}

	switch f.opts.Policy {
	case PolicyChain:
		return f.insertChained(r, target, chain)
	default:
		return f.insertSplitting(r, target, chain[0])
	}
}

func (f *File) insertFirst(r record.Record) error {
	id, err := f.pages.AppendPage(page.New(r))
	if err != nil {
		return err
	}

	f.pageCount = 1
	f.primaryCount = 1
	f.index.Rebuild(func(yield func(index.PrimaryPage) bool) {
		yield(index.PrimaryPage{ID: id, MinKey: f.layout.Key(r)})
	})
	f.log.Debugw("created first page", "page", id)
	return nil
}

// canStartPageAt reports whether a new primary page keyed at key keeps
// every record of the target chain reachable: key must not fall inside the
// chain's key range.
func (f *File) canStartPageAt(key int32, target common.PageID, chain []chainLink) bool {
	if entryKey, ok := f.index.Lookup(target).Get(); ok && key < entryKey {
		return true
	}
	for _, link := range chain {
		for _, r := range link.page.Records {
			if f.layout.Key(r) >= key {
				return false
			}
		}
	}
	return true
}

// insertNewPrimary writes r alone into a fresh primary page, preferring
// the first reusable page.
func (f *File) insertNewPrimary(r record.Record) error {
	id, reused, err := f.allocate(page.New(r))
	if err != nil {
		return err
	}

	f.index.Insert(f.layout.Key(r), id)
	f.primaryCount++
	f.log.Debugw("started primary page", "page", id, "reused", reused, "key", f.layout.Key(r))
	return nil
}

// allocate stores p in the first tombstoned page, or appends it when there
// is none.
func (f *File) allocate(p *page.Page) (common.PageID, bool, error) {
	if !f.tombstones.IsEmpty() {
		id := common.PageID(f.tombstones.Minimum())
		if err := f.pages.WritePage(id, p); err != nil {
			return 0, false, err
		}
		f.tombstones.Remove(uint32(id))
		count(f.tel.reused)
		return id, true, nil
	}

	id, err := f.pages.AppendPage(p)
	if err != nil {
		return 0, false, err
	}
	f.pageCount++
	return id, false, nil
}

func (f *File) insertSplitting(r record.Record, target common.PageID, link chainLink) error {
	p := link.page
	key := f.layout.Key(r)
	f.layout.Insert(p, r)

	if p.Len() <= f.layout.BlockFactor() {
		if err := f.pages.WritePage(target, p); err != nil {
			return err
		}
		f.lowerEntryKey(target, key)
		return nil
	}

	upper := f.layout.Split(p)

	// the upper half goes first so a failure in between duplicates records
	// instead of losing them
	upperID, reused, err := f.allocate(upper)
	if err != nil {
		return err
	}
	if err := f.pages.WritePage(target, p); err != nil {
		return err
	}

	f.index.UpdateKey(target, f.layout.MinKey(p))
	f.index.Insert(f.layout.MinKey(upper), upperID)
	f.primaryCount++
	count(f.tel.splits)

	f.log.Debugw(
		"split page",
		"page", target,
		"new_page", upperID,
		"reused", reused,
		"lower", p.Len(),
		"upper", upper.Len(),
	)
	return nil
}

func (f *File) insertChained(r record.Record, target common.PageID, chain []chainLink) error {
	key := f.layout.Key(r)

	for _, link := range chain {
		if f.layout.IsFull(link.page) {
			continue
		}
		f.layout.Insert(link.page, r)
		if err := f.pages.WritePage(link.id, link.page); err != nil {
			return err
		}
		f.lowerEntryKey(target, key)
		return nil
	}

	tail := chain[len(chain)-1]
	overflowID, reused, err := f.allocate(page.New(r))
	if err != nil {
		return err
	}

	tail.page.Link = overflowID
	if err := f.pages.WritePage(tail.id, tail.page); err != nil {
		return err
	}
	f.overflow.Add(uint32(overflowID))
	f.lowerEntryKey(target, key)
	count(f.tel.chained)

	f.log.Debugw(
		"chained overflow page",
		"page", tail.id,
		"overflow_page", overflowID,
		"reused", reused,
		"chain_length", len(chain)+1,
	)
	return nil
}

// lowerEntryKey lowers the index key of a primary page when key became
// the smallest key of its chain, so lookups for key still land there.
func (f *File) lowerEntryKey(pageID common.PageID, key int32) {
	entryKey, ok := f.index.Lookup(pageID).Get()
	if ok && key < entryKey {
		f.index.UpdateKey(pageID, key)
	}
}
