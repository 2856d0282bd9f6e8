package bufferpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
)

// Replacer manages what page is evicted next when the pool is full.
type Replacer interface {
	Pin(pageID common.PageID)
	Unpin(pageID common.PageID)
	ChooseVictim() (common.PageID, error)
	GetSize() uint64
	Reset()
}

// Page is anything the pool can hand out without sharing its own copy.
type Page[T any] interface {
	Clone() T
}

type DiskManager[T any] interface {
	ReadPage(pageID common.PageID) (T, error)
	WritePage(pageID common.PageID, page T) error
	AppendPage(page T) (common.PageID, error)
}

type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Resident  int
}

// Manager is a write-through page cache in front of a DiskManager. Writes
// reach the disk before the cached copy is updated, so the pool never
// holds dirty pages and eviction is free.
type Manager[T Page[T]] struct {
	poolSize int
	frames   map[common.PageID]T

	replacer    Replacer
	diskManager DiskManager[T]

	stats Stats
	mu    sync.Mutex
}

// New creates a pool of poolSize pages.
func New[T Page[T]](poolSize int, replacer Replacer, diskManager DiskManager[T]) (*Manager[T], error) {
	if poolSize <= 0 {
		return nil, errors.New("pool size must be greater than zero")
	}

	return &Manager[T]{
		poolSize:    poolSize,
		frames:      make(map[common.PageID]T, poolSize),
		replacer:    replacer,
		diskManager: diskManager,
	}, nil
}

// ReadPage returns a private copy of the page, loading it on a miss.
func (m *Manager[T]) ReadPage(pageID common.PageID) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if page, ok := m.frames[pageID]; ok {
		m.stats.Hits++
		m.touch(pageID)
		return page.Clone(), nil
	}

	m.stats.Misses++
	page, err := m.diskManager.ReadPage(pageID)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := m.put(pageID, page); err != nil {
		var zero T
		return zero, err
	}
	return page.Clone(), nil
}

func (m *Manager[T]) WritePage(pageID common.PageID, page T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.diskManager.WritePage(pageID, page); err != nil {
		m.drop(pageID)
		return err
	}
	return m.put(pageID, page.Clone())
}

func (m *Manager[T]) AppendPage(page T) (common.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pageID, err := m.diskManager.AppendPage(page)
	if err != nil {
		return 0, err
	}
	return pageID, m.put(pageID, page.Clone())
}

// Invalidate forgets every cached page. Used after the file is rewritten
// behind the pool's back.
func (m *Manager[T]) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.frames)
	m.replacer.Reset()
}

func (m *Manager[T]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Resident = len(m.frames)
	return s
}

func (m *Manager[T]) touch(pageID common.PageID) {
	m.replacer.Pin(pageID)
	m.replacer.Unpin(pageID)
}

func (m *Manager[T]) put(pageID common.PageID, page T) error {
	if _, ok := m.frames[pageID]; !ok && len(m.frames) >= m.poolSize {
		victim, err := m.replacer.ChooseVictim()
		if err != nil {
			return fmt.Errorf("failed to evict a page: %w", err)
		}
		delete(m.frames, victim)
		m.stats.Evictions++
	}

	m.frames[pageID] = page
	m.touch(pageID)
	return nil
}

func (m *Manager[T]) drop(pageID common.PageID) {
	if _, ok := m.frames[pageID]; ok {
		delete(m.frames, pageID)
		m.replacer.Pin(pageID)
	}
}
