package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetObject(ctx context.Context, calendarID, objectID string) (*Object, error) {
	args := m.Called(ctx, calendarID, objectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Object), args.Error(1)
}

func (m *MockStorage) ListObjects(ctx context.Context, calendarID string, opts *ListOptions) ([]*Object, error) {
	args := m.Called(ctx, calendarID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Object), args.Error(1)
}

func (m *MockStorage) CreateObject(ctx context.Context, obj *Object) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *MockStorage) UpdateObject(ctx context.Context, obj *Object) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *MockStorage) DeleteObject(ctx context.Context, calendarID, objectID string) error {
	args := m.Called(ctx, calendarID, objectID)
	return args.Error(0)
}
