package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// AnswerCache stores generated answers in redis, keyed by a digest that
// includes a per-user library version. Bumping the version on ingest or
// delete makes every cached answer unreachable without scanning keys.
type AnswerCache struct {
	client    *redisv9.Client
	answerTTL time.Duration
}

func NewAnswerCache(client *redisv9.Client, answerTTL time.Duration) *AnswerCache {
	if answerTTL <= 0 {
		answerTTL = 5 * time.Minute
	}
	return &AnswerCache{
		client:    client,
		answerTTL: answerTTL,
	}
}

// Version returns the user's current library version, 0 when unset.
func (c *AnswerCache) Version(ctx context.Context, userID uint) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey(userID)).Int64()
	if err == redisv9.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get library version failed: %w", err)
	}
	return v, nil
}

// BumpVersion invalidates all cached answers for the user.
func (c *AnswerCache) BumpVersion(ctx context.Context, userID uint) error {
	if err := c.client.Incr(ctx, c.versionKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis bump library version failed: %w", err)
	}
	return nil
}

func (c *AnswerCache) GetAnswer(ctx context.Context, key string) (string, bool, error) {
	answer, err := c.client.Get(ctx, c.answerKey(key)).Result()
	if err == redisv9.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get answer failed: %w", err)
	}
	return answer, true, nil
}

func (c *AnswerCache) SetAnswer(ctx context.Context, key, answer string) error {
	if err := c.client.Set(ctx, c.answerKey(key), answer, c.answerTTL).Err(); err != nil {
		return fmt.Errorf("redis set answer failed: %w", err)
	}
	return nil
}

func (c *AnswerCache) versionKey(userID uint) string {
	return fmt.Sprintf("qa:library:version:%d", userID)
}

func (c *AnswerCache) answerKey(key string) string {
	return "qa:answer:" + key
}
