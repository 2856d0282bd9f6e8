package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/spf13/afero"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
	"github.com/Blackdeer1524/ISAMStore/src/pkg/optional"
)

// EntrySize is the on-disk size of one (key, page) pair.
const EntrySize = 8

var ErrCorruptIndex = errors.New("corrupt index file")

type Entry struct {
	Key    int32
	PageID common.PageID
}

// Sparse maps the minimum key of every primary page to that page. Entries
// are kept ascending by key. It is a cache derived from the data file and
// can always be rebuilt from it.
type Sparse struct {
	entries []Entry
}

func NewSparse() *Sparse {
	return &Sparse{
		entries: []Entry{},
	}
}

// PrimaryPage describes a page as seen by Rebuild.
type PrimaryPage struct {
	ID     common.PageID
	MinKey int32
}

// Rebuild replaces all entries with one per primary page. Pages come in
// file order, which after splits and page reuse is not key order, so the
// result is sorted here.
func (s *Sparse) Rebuild(pages iter.Seq[PrimaryPage]) {
	entries := []Entry{}
	for p := range pages {
		entries = append(entries, Entry{Key: p.MinKey, PageID: p.ID})
	}
	slices.SortStableFunc(entries, compareEntries)
	s.entries = entries
}

func compareEntries(a, b Entry) int {
	switch {
	case a.Key < b.Key:
		return -1
	case a.Key > b.Key:
		return 1
	}
	return 0
}

func (s *Sparse) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entries in key order.
func (s *Sparse) Entries() []Entry {
	return slices.Clone(s.entries)
}

// Predecessor returns the page of the rightmost entry whose key is <= key.
// Keys below every entry are routed to the first page. None means the
// index is empty.
func (s *Sparse) Predecessor(key int32) optional.Optional[common.PageID] {
	if len(s.entries) == 0 {
		return optional.None[common.PageID]()
	}

	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Key > key
	})
	if i == 0 {
		return optional.Some(s.entries[0].PageID)
	}
	return optional.Some(s.entries[i-1].PageID)
}

// Insert adds an entry after any existing entries with the same key.
func (s *Sparse) Insert(key int32, pageID common.PageID) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Key > key
	})
	s.entries = slices.Insert(s.entries, i, Entry{Key: key, PageID: pageID})
}

// RemovePage drops every entry that points at pageID and reports how many
// there were.
func (s *Sparse) RemovePage(pageID common.PageID) int {
	before := len(s.entries)
	s.entries = slices.DeleteFunc(s.entries, func(e Entry) bool {
		return e.PageID == pageID
	})
	return before - len(s.entries)
}

// UpdateKey moves the entry of pageID to a new key, keeping the order.
// It reports false when the page has no entry.
func (s *Sparse) UpdateKey(pageID common.PageID, key int32) bool {
	if s.RemovePage(pageID) == 0 {
		return false
	}
	s.Insert(key, pageID)
	return true
}

// Lookup returns the key stored for pageID.
func (s *Sparse) Lookup(pageID common.PageID) optional.Optional[int32] {
	for _, e := range s.entries {
		if e.PageID == pageID {
			return optional.Some(e.Key)
		}
	}
	return optional.None[int32]()
}

// MarshalBinary lays entries out as flat little-endian (key, page) pairs.
func (s *Sparse) MarshalBinary() ([]byte, error) {
	buf := make([]byte, len(s.entries)*EntrySize)
	for i, e := range s.entries {
		binary.LittleEndian.PutUint32(buf[i*EntrySize:], uint32(e.Key))
		binary.LittleEndian.PutUint32(buf[i*EntrySize+4:], uint32(e.PageID))
	}
	return buf, nil
}

func (s *Sparse) UnmarshalBinary(data []byte) error {
	if len(data)%EntrySize != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of entries", ErrCorruptIndex, len(data))
	}

	entries := make([]Entry, 0, len(data)/EntrySize)
	for off := 0; off < len(data); off += EntrySize {
		e := Entry{
			Key:    int32(binary.LittleEndian.Uint32(data[off:])),
			PageID: common.PageID(int32(binary.LittleEndian.Uint32(data[off+4:]))),
		}
		if e.PageID < 0 {
			return fmt.Errorf("%w: entry %d points at page %d", ErrCorruptIndex, off/EntrySize, int32(e.PageID))
		}
		if n := len(entries); n > 0 && entries[n-1].Key > e.Key {
			return fmt.Errorf("%w: entry %d is out of order", ErrCorruptIndex, off/EntrySize)
		}
		entries = append(entries, e)
	}
	s.entries = entries
	return nil
}

// Save writes the index to path, replacing any previous content.
func (s *Sparse) Save(fs afero.Fs, path string) error {
	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write index %s: %w", path, err)
	}
	return nil
}

// Load reads an index saved by Save. A missing file yields None.
func Load(fs afero.Fs, path string) (optional.Optional[*Sparse], error) {
	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return optional.None[*Sparse](), nil
	}
	if err != nil {
		return optional.None[*Sparse](), fmt.Errorf("failed to read index %s: %w", path, err)
	}

	s := NewSparse()
	if err := s.UnmarshalBinary(data); err != nil {
		return optional.None[*Sparse](), fmt.Errorf("index %s: %w", path, err)
	}
	return optional.Some(s), nil
}
