package session

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStore 进程内会话存储，Redis不可用时的降级方案，也用于测试
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryStore 创建内存会话存储
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

// Get 实现 Store 接口
func (s *InMemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	// 返回副本，避免调用方与存储共享可变状态
	cpy := *sess
	return &cpy, nil
}

// Save 实现 Store 接口
func (s *InMemoryStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("会话或会话ID不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cpy := *sess
	s.sessions[sess.ID] = &cpy
	return nil
}

// Delete 实现 Store 接口
func (s *InMemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

var _ Store = (*InMemoryStore)(nil)
