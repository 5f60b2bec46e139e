package session

import (
	"context"
	"sync"
)

// Memory：进程内实现，Redis 未启用时使用
// 约束：仅适合单实例部署；不做过期清理。
type Memory struct {
	mu sync.RWMutex
	m  map[string]map[string][]byte
}

func NewMemory() *Memory { return &Memory{m: make(map[string]map[string][]byte)} }

func (s *Memory) Get(_ context.Context, sid, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[sid][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Memory) Set(_ context.Context, sid, key string, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.m[sid]
	if !ok {
		bucket = make(map[string][]byte)
		s.m[sid] = bucket
	}
	bucket[key] = append([]byte(nil), val...)
	return nil
}

func (s *Memory) Delete(_ context.Context, sid, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bucket, ok := s.m[sid]; ok {
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(s.m, sid)
		}
	}
	return nil
}
