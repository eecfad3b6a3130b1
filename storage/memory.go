package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data []byte
	meta Object
}

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	prefix string
	now    func() time.Time

	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore(prefix string) *MemoryStore {
	return &MemoryStore{
		prefix:  strings.Trim(prefix, "/"),
		now:     time.Now,
		objects: make(map[string]memoryObject),
	}
}

func (s *MemoryStore) Put(ctx context.Context, data []byte, opts PutOptions) (*Object, error) {
	key, err := NewKey(s.prefix, opts, s.now())
	if err != nil {
		return nil, err
	}
	return s.PutKey(ctx, key, data, opts.ContentType)
}

func (s *MemoryStore) PutKey(ctx context.Context, key string, data []byte, contentType string) (*Object, error) {
	if err := ValidateKey(s.prefix, key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	meta := Object{Key: key, Size: int64(len(buf)), ContentType: contentType, CreatedAt: s.now().UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; ok {
		return nil, ErrExists
	}
	s.objects[key] = memoryObject{data: buf, meta: meta}

	out := meta
	return &out, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, *Object, error) {
	if err := ValidateKey(s.prefix, key); err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	meta := obj.meta
	return out, &meta, nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(s.prefix, key); err != nil {
		return false, err
	}
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	return ok, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(s.prefix, key); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
