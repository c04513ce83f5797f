package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Memory is an in-process Store for tests and local development without a
// bucket. Presigned URLs point at a fake host and cannot be used.
type Memory struct {
	mu      sync.Mutex
	objects map[string]Object
	ttl     time.Duration
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{objects: make(map[string]Object), ttl: ttl}
}

// Put stores an object as if a client had uploaded it.
func (m *Memory) Put(key string, size int64, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Key: key, Size: size, ContentType: contentType}
}

func (m *Memory) PresignPut(ctx context.Context, key, contentType string) (string, time.Time, error) {
	return m.url("PUT", key), time.Now().Add(m.ttl), nil
}

func (m *Memory) PresignGet(ctx context.Context, key string) (string, time.Time, error) {
	return m.url("GET", key), time.Now().Add(m.ttl), nil
}

func (m *Memory) url(method, key string) string {
	return fmt.Sprintf("memory://objects/%s?method=%s", url.PathEscape(key), method)
}

func (m *Memory) Exists(ctx context.Context, key string) (Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return Object{}, ErrObjectNotFound
	}
	return obj, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}
