package bufferpool

import (
	"container/list"
	"errors"
	"sync"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
)

var ErrNoVictim = errors.New("no victim available")

type LRUReplacer struct {
	mu     sync.Mutex
	lru    *list.List
	frames map[common.PageID]*list.Element
}

var (
	_ Replacer = &LRUReplacer{}
)

func NewLRUReplacer() *LRUReplacer {
	return &LRUReplacer{
		lru:    list.New(),
		frames: make(map[common.PageID]*list.Element),
	}
}

// Pin takes the page out of the eviction candidates.
func (l *LRUReplacer) Pin(pageID common.PageID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.frames[pageID]; ok {
		l.lru.Remove(elem)
		delete(l.frames, pageID)
	}
}

// Unpin makes the page the most recently used eviction candidate.
func (l *LRUReplacer) Unpin(pageID common.PageID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.frames[pageID]; ok {
		l.lru.MoveToFront(elem)
		return
	}

	l.frames[pageID] = l.lru.PushFront(pageID)
}

func (l *LRUReplacer) ChooseVictim() (common.PageID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	elem := l.lru.Back()
	if elem == nil {
		return 0, ErrNoVictim
	}

	pageID := elem.Value.(common.PageID)

	l.lru.Remove(elem)
	delete(l.frames, pageID)

	return pageID, nil
}

func (l *LRUReplacer) GetSize() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return uint64(len(l.frames))
}

func (l *LRUReplacer) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lru.Init()
	clear(l.frames)
}
