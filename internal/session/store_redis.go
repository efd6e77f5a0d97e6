package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/qween-beth/careerstack/internal/constants"
)

// RedisStore 用Redis持久化会话状态，整个会话序列化为单个JSON字符串
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 创建Redis会话存储
// ttl 为会话过期时间，0表示不过期
func NewRedisStore(client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis客户端不能为nil")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) buildKey(sessionID string) string {
	return fmt.Sprintf(constants.KeySessionState, sessionID)
}

// Get 实现 Store 接口
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.client.Get(ctx, s.buildKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("从redis读取会话 %s 失败: %w", sessionID, err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("反序列化会话 %s 失败: %w", sessionID, err)
	}
	return &sess, nil
}

// Save 实现 Store 接口
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("会话或会话ID不能为空")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("序列化会话 %s 失败: %w", sess.ID, err)
	}

	if err := s.client.Set(ctx, s.buildKey(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("向redis写入会话 %s 失败: %w", sess.ID, err)
	}
	return nil
}

// Delete 实现 Store 接口
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.buildKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("从redis删除会话 %s 失败: %w", sessionID, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
