package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"neobot/internal/domain"
)

// RedisAuditQueue реализует очередь аудита на базе Redis lists.
type RedisAuditQueue struct {
	client *redis.Client
	key    string
}

// NewRedisAuditQueue создаёт очередь по указанному ключу.
func NewRedisAuditQueue(client *redis.Client, key string) *RedisAuditQueue {
	return &RedisAuditQueue{client: client, key: key}
}

// Publish публикует запись в очередь.
func (q *RedisAuditQueue) Publish(ctx context.Context, e domain.AuditEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push entry: %w", err)
	}
	return nil
}

// Pop блокирующе читает запись из очереди.
func (q *RedisAuditQueue) Pop(ctx context.Context) (domain.AuditEntry, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.AuditEntry{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.AuditEntry{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.AuditEntry{}, err
		}
		if len(res) != 2 {
			return domain.AuditEntry{}, errors.New("redis queue: unexpected response")
		}
		var entry domain.AuditEntry
		if err := json.Unmarshal([]byte(res[1]), &entry); err != nil {
			return domain.AuditEntry{}, fmt.Errorf("decode entry: %w", err)
		}
		return entry, nil
	}
}
