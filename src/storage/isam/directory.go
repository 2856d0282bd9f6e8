package isam

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
	"github.com/Blackdeer1524/ISAMStore/src/storage/index"
	"github.com/Blackdeer1524/ISAMStore/src/storage/page"
)

// pageSummary is what one scan of the data file remembers about a page.
type pageSummary struct {
	count  int
	link   common.PageID
	minKey int32
}

// directory is the in-memory picture of the data file that the index and
// the reuse policy are derived from.
type directory struct {
	pageCount  int
	primaries  []index.PrimaryPage
	tombstones *roaring.Bitmap
	overflow   *roaring.Bitmap
}

func newDirectory() directory {
	return directory{
		primaries:  []index.PrimaryPage{},
		tombstones: roaring.New(),
		overflow:   roaring.New(),
	}
}

// scanDirectory reads every page once. A primary page is live, non-empty
// and not the target of any link; its index key is the smallest key of its
// whole chain.
func (f *File) scanDirectory() (directory, error) {
	dir := newDirectory()

	var summaries []pageSummary
	for item := range f.disk.Scan() {
		block, err := item.Destruct()
		if err != nil {
			return directory{}, err
		}

		p := block.Page
		s := pageSummary{count: p.Len(), link: p.Link}
		if p.Len() > 0 {
			s.minKey = f.layout.MinKey(p)
		}
		summaries = append(summaries, s)
	}
	dir.pageCount = len(summaries)

	for i, s := range summaries {
		switch {
		case s.link == common.Tombstone:
			if s.count != 0 {
				return directory{}, fmt.Errorf(
					"%w: tombstoned page %d holds %d records",
					page.ErrCorruptPage,
					i,
					s.count,
				)
			}
			dir.tombstones.Add(uint32(i))
		case s.link >= 0:
			if f.opts.Policy != PolicyChain {
				return directory{}, fmt.Errorf(
					"%w: page %d links to page %d",
					ErrPolicyMismatch,
					i,
					s.link,
				)
			}
			if int(s.link) >= len(summaries) || int(s.link) == i {
				return directory{}, fmt.Errorf(
					"%w: page %d links to page %d of %d",
					page.ErrCorruptPage,
					i,
					s.link,
					len(summaries),
				)
			}
			dir.overflow.Add(uint32(s.link))
		}
	}

	for i, s := range summaries {
		id := common.PageID(i)
		if s.count == 0 || s.link == common.Tombstone || dir.overflow.Contains(uint32(i)) {
			continue
		}

		minKey, err := chainMinKey(summaries, id)
		if err != nil {
			return directory{}, err
		}
		dir.primaries = append(dir.primaries, index.PrimaryPage{ID: id, MinKey: minKey})
	}

	return dir, nil
}

func chainMinKey(summaries []pageSummary, head common.PageID) (int32, error) {
	minKey := summaries[head].minKey
	id := summaries[head].link
	for steps := 0; id >= 0; steps++ {
		if steps > len(summaries) {
			return 0, fmt.Errorf("%w: overflow chain from page %d loops", page.ErrCorruptPage, head)
		}
		s := summaries[id]
		if s.count > 0 && s.minKey < minKey {
			minKey = s.minKey
		}
		id = s.link
	}
	return minKey, nil
}
