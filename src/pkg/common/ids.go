package common

import "fmt"

// PageID is the position of a page inside the data file. Link fields reuse
// the same type, so the negative values are reserved as sentinels.
type PageID int32

const (
	// NoLink marks a live page without an overflow successor.
	NoLink PageID = -1
	// Tombstone marks an empty page that may be reused by the next insert.
	Tombstone PageID = -2
)

func (p PageID) IsSentinel() bool {
	return p < 0
}

func (p PageID) String() string {
	switch p {
	case NoLink:
		return "none"
	case Tombstone:
		return "tombstone"
	}
	return fmt.Sprintf("#%d", int32(p))
}

// Offset returns the byte offset of the page in a file of pageSize blocks.
func (p PageID) Offset(pageSize int) int64 {
	return int64(p) * int64(pageSize)
}
