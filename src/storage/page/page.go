package page

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/assert"
	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
)

// HeaderSize covers the count and link fields, both int32.
const HeaderSize = 8

var ErrCorruptPage = errors.New("corrupt page")

// Page is an ordered run of at most B records plus a link field that is
// either common.NoLink, common.Tombstone or an overflow page number.
type Page struct {
	Records []record.Record
	Link    common.PageID
}

// New returns a live page holding a copy of records.
func New(records ...record.Record) *Page {
	p := &Page{
		Records: make([]record.Record, 0, len(records)),
		Link:    common.NoLink,
	}
	p.Records = append(p.Records, records...)
	return p
}

func NewTombstone() *Page {
	return &Page{
		Records: []record.Record{},
		Link:    common.Tombstone,
	}
}

func (p *Page) Len() int {
	return len(p.Records)
}

func (p *Page) IsTombstone() bool {
	return p.Link == common.Tombstone
}

// HasOverflow reports whether the page links to an overflow page.
func (p *Page) HasOverflow() bool {
	return !p.Link.IsSentinel()
}

// Layout knows how pages of one schema and block factor look on disk.
type Layout struct {
	codec       *record.Codec
	blockFactor int
}

func NewLayout(codec *record.Codec, blockFactor int) (*Layout, error) {
	if blockFactor <= 0 {
		return nil, fmt.Errorf("block factor must be positive, got %d", blockFactor)
	}
	return &Layout{
		codec:       codec,
		blockFactor: blockFactor,
	}, nil
}

func (l *Layout) Codec() *record.Codec {
	return l.codec
}

func (l *Layout) BlockFactor() int {
	return l.blockFactor
}

// Size is the fixed on-disk size of a page.
func (l *Layout) Size() int {
	return HeaderSize + l.blockFactor*l.codec.Size()
}

func (l *Layout) Key(r record.Record) int32 {
	return l.codec.Key(r)
}

// IsFull reports whether another record would overflow the page.
func (l *Layout) IsFull(p *Page) bool {
	return p.Len() >= l.blockFactor
}

// Marshal lays out the header, the live records and zeroed slots for the
// rest of the block.
func (l *Layout) Marshal(p *Page) ([]byte, error) {
	assert.Assert(
		p.Len() <= l.blockFactor,
		"page holds %d records, block factor is %d",
		p.Len(),
		l.blockFactor,
	)

	buf := make([]byte, l.Size())
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(p.Len())))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.Link))

	recSize := l.codec.Size()
	for i, r := range p.Records {
		offset := HeaderSize + i*recSize
		if err := l.codec.EncodeTo(buf[offset:offset+recSize], r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return buf, nil
}

// Unmarshal decodes exactly count records; padding slots are never read.
func (l *Layout) Unmarshal(data []byte) (*Page, error) {
	if len(data) < l.Size() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrCorruptPage, len(data), l.Size())
	}

	count := int(int32(binary.LittleEndian.Uint32(data[0:4])))
	link := common.PageID(int32(binary.LittleEndian.Uint32(data[4:8])))
	if count < 0 || count > l.blockFactor {
		return nil, fmt.Errorf(
			"%w: count %d outside [0, %d]",
			ErrCorruptPage,
			count,
			l.blockFactor,
		)
	}
	if link < common.Tombstone {
		return nil, fmt.Errorf("%w: invalid link %d", ErrCorruptPage, int32(link))
	}

	p := &Page{
		Records: make([]record.Record, 0, count),
		Link:    link,
	}
	recSize := l.codec.Size()
	for i := range count {
		offset := HeaderSize + i*recSize
		r, err := l.codec.Decode(data[offset : offset+recSize])
		if err != nil {
			return nil, fmt.Errorf("%w: slot %d: %w", ErrCorruptPage, i, err)
		}
		p.Records = append(p.Records, r)
	}
	return p, nil
}

// Insert places r keeping the records ascending by key. Equal keys keep
// their insertion order. It reports whether r became the new minimum.
func (l *Layout) Insert(p *Page, r record.Record) bool {
	key := l.Key(r)
	pos := sort.Search(len(p.Records), func(i int) bool {
		return l.Key(p.Records[i]) > key
	})
	p.Records = append(p.Records, nil)
	copy(p.Records[pos+1:], p.Records[pos:])
	p.Records[pos] = r
	return pos == 0
}

// Find returns the position of the first record with the key, or -1.
func (l *Layout) Find(p *Page, key int32) int {
	for i, r := range p.Records {
		if l.Key(r) == key {
			return i
		}
	}
	return -1
}

// Remove deletes the first record with the key.
func (l *Layout) Remove(p *Page, key int32) (record.Record, bool) {
	i := l.Find(p, key)
	if i < 0 {
		return nil, false
	}
	r := p.Records[i]
	p.Records = append(p.Records[:i], p.Records[i+1:]...)
	return r, true
}

// MinKey returns the key of the first record. The page must not be empty.
func (l *Layout) MinKey(p *Page) int32 {
	assert.Assert(p.Len() > 0, "min key of an empty page")
	return l.Key(p.Records[0])
}

// Split keeps the lower half of p's records in p and returns a new page
// with the upper half.
func (l *Layout) Split(p *Page) *Page {
	mid := p.Len() / 2
	upper := New(p.Records[mid:]...)
	lower := make([]record.Record, mid)
	copy(lower, p.Records[:mid])
	p.Records = lower
	return upper
}

// Clone copies the record slice so that mutations of the copy never reach p.
// Record values themselves are immutable once built and are shared.
func (p *Page) Clone() *Page {
	c := &Page{
		Records: make([]record.Record, len(p.Records)),
		Link:    p.Link,
	}
	copy(c.Records, p.Records)
	return c
}
