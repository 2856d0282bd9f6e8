package isam

import (
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
	"github.com/Blackdeer1524/ISAMStore/src/pkg/optional"
	"github.com/Blackdeer1524/ISAMStore/src/storage/page"
	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
)

type chainLink struct {
	id   common.PageID
	page *page.Page
}

// walkChain visits the primary page and then every overflow page linked
// from it until visit returns false.
func (f *File) walkChain(head common.PageID, visit func(chainLink) bool) error {
	id := head
	for steps := 0; ; steps++ {
		if steps > f.pageCount {
			return fmt.Errorf("%w: overflow chain from page %d loops", page.ErrCorruptPage, head)
		}

		p, err := f.pages.ReadPage(id)
		if err != nil {
			return err
		}
		if p.IsTombstone() {
			return fmt.Errorf("%w: page %d in the chain of %d is a tombstone", page.ErrCorruptPage, id, head)
		}
		if !visit(chainLink{id: id, page: p}) || !p.HasOverflow() {
			return nil
		}
		id = p.Link
	}
}

func (f *File) readChain(head common.PageID) ([]chainLink, error) {
	var chain []chainLink
	err := f.walkChain(head, func(link chainLink) bool {
		chain = append(chain, link)
		return true
	})
	return chain, err
}

// Search returns the record with the key, if any.
func (f *File) Search(key int32) (_ optional.Optional[record.Record], err error) {
	span := f.tel.start("Search", attribute.Int64("isam.key", int64(key)))
	defer func() { endSpan(span, err) }()

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureFresh(); err != nil {
		return optional.None[record.Record](), err
	}

	target, ok := f.index.Predecessor(key).Get()
	if !ok {
		return optional.None[record.Record](), nil
	}

	found := optional.None[record.Record]()
	err = f.walkChain(target, func(link chainLink) bool {
		if i := f.layout.Find(link.page, key); i >= 0 {
			found = optional.Some(slices.Clone(link.page.Records[i]))
			return false
		}
		return true
	})
	if err != nil {
		return optional.None[record.Record](), err
	}
	span.SetAttributes(attribute.Bool("isam.found", found.IsSome()))
	return found, nil
}

// Delete removes the record with the key and returns it. A miss is not an
// error.
func (f *File) Delete(key int32) (optional.Optional[record.Record], error) {
	span := f.tel.start("Delete", attribute.Int64("isam.key", int64(key)))

	deleted := optional.None[record.Record]()
	err := f.mutate(func() (bool, error) {
		r, err := f.delete(key)
		deleted = r
		return r.IsSome(), err
	})

	span.SetAttributes(attribute.Bool("isam.found", deleted.IsSome()))
	endSpan(span, err)
	return deleted, err
}

func (f *File) delete(key int32) (optional.Optional[record.Record], error) {
	if err := f.ensureFresh(); err != nil {
		return optional.None[record.Record](), err
	}

	target, ok := f.index.Predecessor(key).Get()
	if !ok {
		return optional.None[record.Record](), nil
	}

	chain, err := f.readChain(target)
	if err != nil {
		return optional.None[record.Record](), err
	}

	for i, link := range chain {
		r, ok := f.layout.Remove(link.page, key)
		if !ok {
			continue
		}
		if err := f.afterRemove(target, chain, i); err != nil {
			return optional.None[record.Record](), err
		}
		return optional.Some(slices.Clone(r)), nil
	}
	return optional.None[record.Record](), nil
}

func (f *File) afterRemove(target common.PageID, chain []chainLink, i int) error {
	link := chain[i]

	if link.page.Len() > 0 {
		if err := f.pages.WritePage(link.id, link.page); err != nil {
			return err
		}
		f.syncEntryKey(target, chain)
		return nil
	}

	if i > 0 {
		prev := chain[i-1]
		prev.page.Link = link.page.Link
		if err := f.pages.WritePage(prev.id, prev.page); err != nil {
			return err
		}
		if err := f.bury(link.id); err != nil {
			return err
		}
		f.syncEntryKey(target, append(chain[:i:i], chain[i+1:]...))
		return nil
	}

	if !link.page.HasOverflow() {
		if err := f.bury(link.id); err != nil {
			return err
		}
		f.index.RemovePage(link.id)
		f.primaryCount--
		f.log.Debugw("tombstoned empty primary page", "page", link.id)
		return nil
	}

	// the primary page stays the chain head: pull the next page into it
	next := chain[1]
	link.page.Records = next.page.Clone().Records
	link.page.Link = next.page.Link
	if err := f.pages.WritePage(link.id, link.page); err != nil {
		return err
	}
	if err := f.bury(next.id); err != nil {
		return err
	}
	f.syncEntryKey(target, append([]chainLink{link}, chain[2:]...))
	return nil
}

// bury turns a page into a reusable tombstone.
func (f *File) bury(id common.PageID) error {
	if err := f.pages.WritePage(id, page.NewTombstone()); err != nil {
		return err
	}
	f.tombstones.Add(uint32(id))
	f.overflow.Remove(uint32(id))
	count(f.tel.tombstoned)
	f.log.Debugw("page marked reusable", "page", id)
	return nil
}

// syncEntryKey sets the index key of a primary page to the smallest key
// left in its chain.
func (f *File) syncEntryKey(target common.PageID, chain []chainLink) {
	first := true
	var minKey int32
	for _, link := range chain {
		if link.page.Len() == 0 {
			continue
		}
		if k := f.layout.MinKey(link.page); first || k < minKey {
			minKey = k
			first = false
		}
	}
	if first {
		return
	}

	if entryKey, ok := f.index.Lookup(target).Get(); ok && entryKey != minKey {
		f.index.UpdateKey(target, minKey)
	}
}
