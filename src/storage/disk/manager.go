package disk

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
	"github.com/Blackdeer1524/ISAMStore/src/pkg/utils"
)

var (
	ErrOutOfRange  = errors.New("page number out of range")
	ErrPartialPage = errors.New("file size is not a multiple of the page size")
)

// PageCodec converts pages to and from fixed-size blocks.
type PageCodec[T any] interface {
	Size() int
	Marshal(page T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

// Block is a decoded page together with its position in the file.
type Block[T any] struct {
	ID   common.PageID
	Page T
}

// Manager addresses a single flat file as an array of equal-size pages.
// Every call opens the file and closes it before returning.
type Manager[T any] struct {
	path  string
	fs    afero.Fs
	codec PageCodec[T]
}

func New[T any](path string, fs afero.Fs, codec PageCodec[T]) *Manager[T] {
	return &Manager[T]{
		path:  filepath.Clean(path),
		fs:    fs,
		codec: codec,
	}
}

func (m *Manager[T]) Path() string {
	return m.path
}

func (m *Manager[T]) PageSize() int {
	return m.codec.Size()
}

// Create makes an empty data file unless one already exists.
func (m *Manager[T]) Create() (err error) {
	exists, err := utils.IsFileExists(m.fs, m.path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", m.path, err)
	}
	if exists {
		return nil
	}

	if dir := filepath.Dir(m.path); dir != "." {
		if err := m.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	file, err := m.fs.OpenFile(m.path, os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create data file %s: %w", m.path, err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()
	return nil
}

func (m *Manager[T]) PageCount() (int, error) {
	info, err := m.fs.Stat(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", m.path, err)
	}
	return m.pagesIn(info.Size())
}

func (m *Manager[T]) pagesIn(size int64) (int, error) {
	pageSize := int64(m.codec.Size())
	if size%pageSize != 0 {
		return 0, fmt.Errorf("%w: %s has %d bytes, page size %d", ErrPartialPage, m.path, size, pageSize)
	}
	return int(size / pageSize), nil
}

func (m *Manager[T]) countOpen(file afero.File) (int, error) {
	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", m.path, err)
	}
	return m.pagesIn(info.Size())
}

func (m *Manager[T]) ReadPage(pageID common.PageID) (page T, err error) {
	file, err := m.fs.Open(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return page, fmt.Errorf("%w: read page %d of an empty store", ErrOutOfRange, pageID)
	}
	if err != nil {
		return page, fmt.Errorf("failed to open %s: %w", m.path, err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	count, err := m.countOpen(file)
	if err != nil {
		return page, err
	}
	if pageID < 0 || int(pageID) >= count {
		return page, fmt.Errorf("%w: read page %d of %d", ErrOutOfRange, pageID, count)
	}

	return m.readAt(file, pageID)
}

func (m *Manager[T]) readAt(file afero.File, pageID common.PageID) (T, error) {
	var zero T

	data := make([]byte, m.codec.Size())
	if _, err := file.ReadAt(data, pageID.Offset(len(data))); err != nil {
		return zero, fmt.Errorf("failed to read page %d: %w", pageID, err)
	}

	page, err := m.codec.Unmarshal(data)
	if err != nil {
		return zero, fmt.Errorf("page %d: %w", pageID, err)
	}
	return page, nil
}

// WritePage overwrites an existing page in place.
func (m *Manager[T]) WritePage(pageID common.PageID, page T) (err error) {
	data, err := m.codec.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal page %d: %w", pageID, err)
	}

	file, err := m.fs.OpenFile(m.path, os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", m.path, err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	count, err := m.countOpen(file)
	if err != nil {
		return err
	}
	if pageID < 0 || int(pageID) >= count {
		return fmt.Errorf("%w: write page %d of %d", ErrOutOfRange, pageID, count)
	}

	if _, err := file.WriteAt(data, pageID.Offset(len(data))); err != nil {
		return fmt.Errorf("failed to write page %d: %w", pageID, err)
	}
	return nil
}

// AppendPage writes page after the last one and returns its number.
func (m *Manager[T]) AppendPage(page T) (pageID common.PageID, err error) {
	data, err := m.codec.Marshal(page)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal page: %w", err)
	}

	file, err := m.fs.OpenFile(m.path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", m.path, err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	count, err := m.countOpen(file)
	if err != nil {
		return 0, err
	}

	pageID = common.PageID(count)
	if _, err := file.WriteAt(data, pageID.Offset(len(data))); err != nil {
		return 0, fmt.Errorf("failed to append page %d: %w", pageID, err)
	}
	return pageID, nil
}

// Scan yields every page in file order. The file stays open for the
// duration of one iteration; ranging again rereads from disk.
func (m *Manager[T]) Scan() iter.Seq[utils.Pair[Block[T], error]] {
	return func(yield func(utils.Pair[Block[T], error]) bool) {
		file, err := m.fs.Open(m.path)
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if err != nil {
			utils.YieldError(fmt.Errorf("failed to open %s: %w", m.path, err), yield)
			return
		}
		defer file.Close()

		count, err := m.countOpen(file)
		if err != nil {
			utils.YieldError(err, yield)
			return
		}

		for i := range count {
			pageID := common.PageID(i)
			page, err := m.readAt(file, pageID)
			if err != nil {
				utils.YieldError(err, yield)
				return
			}
			if !yield(utils.Pair[Block[T], error]{First: Block[T]{ID: pageID, Page: page}}) {
				return
			}
		}
	}
}

// Replace rewrites the whole file with pages, numbered from zero. The new
// content goes to a temporary file that is renamed over the data file.
func (m *Manager[T]) Replace(pages []T) (err error) {
	tmpPath := fmt.Sprintf("%s.%s.tmp", m.path, uuid.NewString())

	if err := m.writeAll(tmpPath, pages); err != nil {
		return errors.Join(err, m.fs.Remove(tmpPath))
	}

	if err := m.fs.Rename(tmpPath, m.path); err != nil {
		return errors.Join(
			fmt.Errorf("failed to replace %s: %w", m.path, err),
			m.fs.Remove(tmpPath),
		)
	}
	return nil
}

func (m *Manager[T]) writeAll(path string, pages []T) (err error) {
	file, err := m.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	for i, page := range pages {
		data, err := m.codec.Marshal(page)
		if err != nil {
			return fmt.Errorf("failed to marshal page %d: %w", i, err)
		}
		if _, err := file.Write(data); err != nil {
			return fmt.Errorf("failed to write page %d: %w", i, err)
		}
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return nil
}
