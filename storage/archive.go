// Package storage хранит архивы завершённых турниров.
package storage

import (
	"context"
	"errors"
	"sync"
)

var ErrObjectNotFound = errors.New("archive object not found")

// Archive is an object store for tournament snapshots.
type Archive interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
}

type memoryObject struct {
	body        []byte
	contentType string
}

// MemoryArchive держит объекты в памяти. Используется симулятором и при запуске без R2.
type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: make(map[string]memoryObject)}
}

func (a *MemoryArchive) PutObject(_ context.Context, key string, body []byte, contentType string) error {
	if key == "" {
		return errors.New("archive key is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = memoryObject{body: append([]byte(nil), body...), contentType: contentType}
	return nil
}

func (a *MemoryArchive) GetObject(_ context.Context, key string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	obj, ok := a.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return append([]byte(nil), obj.body...), nil
}

func (a *MemoryArchive) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.objects))
	for k := range a.objects {
		keys = append(keys, k)
	}
	return keys
}
