package isam

import (
	"iter"
	"slices"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
	"github.com/Blackdeer1524/ISAMStore/src/pkg/utils"
	"github.com/Blackdeer1524/ISAMStore/src/storage/index"
	"github.com/Blackdeer1524/ISAMStore/src/storage/page"
	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
)

// Reorganize rewrites the data file as a dense run of full pages sorted by
// key, followed by one page with the remainder, and rebuilds the index.
// Tombstones and overflow chains disappear. Running it twice without
// mutations in between yields the same bytes.
func (f *File) Reorganize() error {
	span := f.tel.start("Reorganize")
	err := f.mutate(func() (bool, error) {
		return true, f.reorganize()
	})
	endSpan(span, err)
	return err
}

func (f *File) reorganize() error {
	var records []record.Record
	for item := range f.disk.Scan() {
		block, err := item.Destruct()
		if err != nil {
			return err
		}
		records = append(records, block.Page.Records...)
	}

	slices.SortStableFunc(records, func(a, b record.Record) int {
		ka, kb := f.layout.Key(a), f.layout.Key(b)
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		}
		return 0
	})

	bf := f.layout.BlockFactor()
	pages := make([]*page.Page, 0, (len(records)+bf-1)/bf)
	for chunk := range slices.Chunk(records, bf) {
		pages = append(pages, page.New(chunk...))
	}

	if err := f.disk.Replace(pages); err != nil {
		return err
	}
	if f.cache != nil {
		f.cache.Invalidate()
	}

	dir := newDirectory()
	dir.pageCount = len(pages)
	for i, p := range pages {
		dir.primaries = append(dir.primaries, index.PrimaryPage{
			ID:     common.PageID(i),
			MinKey: f.layout.MinKey(p),
		})
	}
	f.apply(dir)
	f.index.Rebuild(slices.Values(dir.primaries))

	f.log.Infow("reorganized data file", "records", len(records), "pages", len(pages))
	return nil
}

// ScannedPage is one page of the data file as seen by ScanAll.
type ScannedPage struct {
	ID      common.PageID
	Link    common.PageID
	Records []record.Record
}

// ScanAll yields every page in file order without consulting the index.
// Each range over the sequence rereads the file. It must not be
// interleaved with mutations of the same File.
func (f *File) ScanAll() iter.Seq[utils.Pair[ScannedPage, error]] {
	return func(yield func(utils.Pair[ScannedPage, error]) bool) {
		for item := range f.disk.Scan() {
			block, err := item.Destruct()
			if err != nil {
				utils.YieldError(err, yield)
				return
			}
			scanned := ScannedPage{
				ID:      block.ID,
				Link:    block.Page.Link,
				Records: block.Page.Records,
			}
			if !yield(utils.Pair[ScannedPage, error]{First: scanned}) {
				return
			}
		}
	}
}

// Records yields every live record in file order.
func (f *File) Records() iter.Seq[utils.Pair[record.Record, error]] {
	return func(yield func(utils.Pair[record.Record, error]) bool) {
		for item := range f.ScanAll() {
			scanned, err := item.Destruct()
			if err != nil {
				utils.YieldError(err, yield)
				return
			}
			for _, r := range scanned.Records {
				if !yield(utils.Pair[record.Record, error]{First: r}) {
					return
				}
			}
		}
	}
}
