package bufferpool

import (
	"github.com/stretchr/testify/mock"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/common"
)

type MockDiskManager[T any] struct {
	mock.Mock
}

func (m *MockDiskManager[T]) ReadPage(pageID common.PageID) (T, error) {
	args := m.Called(pageID)
	return args.Get(0).(T), args.Error(1)
}

func (m *MockDiskManager[T]) WritePage(pageID common.PageID, page T) error {
	args := m.Called(pageID, page)
	return args.Error(0)
}

func (m *MockDiskManager[T]) AppendPage(page T) (common.PageID, error) {
	args := m.Called(page)
	return args.Get(0).(common.PageID), args.Error(1)
}

type MockReplacer struct {
	mock.Mock
}

func (m *MockReplacer) Pin(pageID common.PageID) {
	m.Called(pageID)
}

func (m *MockReplacer) Unpin(pageID common.PageID) {
	m.Called(pageID)
}

func (m *MockReplacer) ChooseVictim() (common.PageID, error) {
	args := m.Called()
	return args.Get(0).(common.PageID), args.Error(1)
}

func (m *MockReplacer) GetSize() uint64 {
	args := m.Called()
	return args.Get(0).(uint64)
}

func (m *MockReplacer) Reset() {
	m.Called()
}
