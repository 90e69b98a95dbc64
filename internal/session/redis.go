package session

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const activeCodeKey = "attendmark:active_code"

// RedisManager stores the active code in Redis so multiple instances agree
// on the current session. Unlike Memory, the code survives a process
// restart; a deployment that wants restart-clears-session semantics should
// use the memory backend.
type RedisManager struct {
	client *redis.Client
}

// NewRedis builds a manager on an existing client.
func NewRedis(client *redis.Client) *RedisManager {
	return &RedisManager{client: client}
}

// Start activates the given code.
func (r *RedisManager) Start(ctx context.Context, code string) error {
	if code == "" {
		return ErrEmptyCode
	}
	return r.client.Set(ctx, activeCodeKey, code, 0).Err()
}

// Stop clears the active code.
func (r *RedisManager) Stop(ctx context.Context) error {
	return r.client.Del(ctx, activeCodeKey).Err()
}

// Active reports the current code.
func (r *RedisManager) Active(ctx context.Context) (string, bool, error) {
	code, err := r.client.Get(ctx, activeCodeKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return code, code != "", nil
}
