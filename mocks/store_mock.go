package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cancoktug/ginovainno-replit-sub001/storage"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, data []byte, opts storage.PutOptions) (*storage.Object, error) {
	args := m.Called(ctx, data, opts)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*storage.Object), args.Error(1)
}

func (m *MockStore) PutKey(ctx context.Context, key string, data []byte, contentType string) (*storage.Object, error) {
	args := m.Called(ctx, key, data, contentType)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*storage.Object), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, *storage.Object, error) {
	args := m.Called(ctx, key)

	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}

	obj, _ := args.Get(1).(*storage.Object)
	return args.Get(0).([]byte), obj, args.Error(2)
}

func (m *MockStore) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)

	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)

	return args.Error(0)
}
