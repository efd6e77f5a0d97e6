package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/qween-beth/careerstack/internal/constants"
)

// RedisChatMemory 实现了 ChatMemory 接口，使用 Redis List 作为持久化存储。
type RedisChatMemory struct {
	redisClient *redis.Client
	ttl         time.Duration // 可选：为聊天记录设置过期时间，0表示不过期
}

// NewRedisChatMemory 创建一个新的 RedisChatMemory 实例。
// redisClient: 一个已连接和配置好的 go-redis 客户端实例。
// ttl: 聊天记录在 Redis 中的可选过期时间。如果为0，则不过期。
func NewRedisChatMemory(redisClient *redis.Client, ttl time.Duration) (*RedisChatMemory, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis客户端不能为nil")
	}

	// 启动时探活一次
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis失败: %w", err)
	}

	return &RedisChatMemory{
		redisClient: redisClient,
		ttl:         ttl,
	}, nil
}

// buildKey 为给定的 sessionID 构建 Redis 键。
func (rcm *RedisChatMemory) buildKey(sessionID string) string {
	return fmt.Sprintf(constants.KeyChatHistory, sessionID)
}

// GetHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) GetHistory(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	key := rcm.buildKey(sessionID)

	serializedMessages, err := rcm.redisClient.LRange(ctx, key, 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []*schema.Message{}, nil // Key 不存在，返回空历史
	}
	if err != nil {
		return nil, fmt.Errorf("从redis获取会话 %s 的消息失败: %w", sessionID, err)
	}

	messages := make([]*schema.Message, 0, len(serializedMessages))
	for _, sm := range serializedMessages {
		var msg schema.Message
		if err := json.Unmarshal([]byte(sm), &msg); err != nil {
			return nil, fmt.Errorf("反序列化会话 %s 的消息失败: %w", sessionID, err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

// AddMessage 实现 ChatMemory 接口
func (rcm *RedisChatMemory) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	if message == nil {
		return fmt.Errorf("不能向会话 %s 的聊天历史中添加 nil 消息", sessionID)
	}
	return rcm.AddMessages(ctx, sessionID, []*schema.Message{message})
}

// AddMessages 实现 ChatMemory 接口
func (rcm *RedisChatMemory) AddMessages(ctx context.Context, sessionID string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	key := rcm.buildKey(sessionID)

	// 使用事务Pipeline保证RPush和Expire的原子性
	pipe := rcm.redisClient.TxPipeline()
	for _, message := range messages {
		if message == nil {
			return fmt.Errorf("不能向会话 %s 的聊天历史中批量添加 nil 消息", sessionID)
		}
		serializedMessage, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("序列化会话 %s 的消息失败: %w", sessionID, err)
		}
		pipe.RPush(ctx, key, serializedMessage)
	}

	if rcm.ttl > 0 {
		pipe.Expire(ctx, key, rcm.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("向redis写入会话 %s 的消息失败: %w", sessionID, err)
	}
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) ClearHistory(ctx context.Context, sessionID string) error {
	key := rcm.buildKey(sessionID)

	if err := rcm.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("清除redis中会话 %s 的聊天历史失败: %w", sessionID, err)
	}
	return nil
}

var _ ChatMemory = (*RedisChatMemory)(nil)
