package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultRedisKey = "curator:ledger"

// RedisLedger stores identities in a sorted set scored by append time. ZADD NX
// is a single atomic insert, so concurrent runs can never double-record an id.
type RedisLedger struct {
	client goredis.UniversalClient
	key    string
	now    func() time.Time
}

// NewRedis wraps an existing client. An empty key uses "curator:ledger".
func NewRedis(client goredis.UniversalClient, key string) *RedisLedger {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisLedger{client: client, key: key, now: time.Now}
}

func (l *RedisLedger) Contains(ctx context.Context, id string) (bool, error) {
	_, err := l.client.ZScore(ctx, l.key, strings.TrimSpace(id)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, &LoadError{Backend: BackendRedis, Message: "membership check failed", Cause: err}
	}
	return true, nil
}

func (l *RedisLedger) Append(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &WriteError{Backend: BackendRedis, ID: id, Message: "identity must not be empty"}
	}
	err := l.client.ZAddNX(ctx, l.key, goredis.Z{
		Score:  float64(l.now().UnixNano()),
		Member: id,
	}).Err()
	if err != nil {
		return &WriteError{Backend: BackendRedis, ID: id, Message: "ZADD failed", Cause: err}
	}
	return nil
}

func (l *RedisLedger) Entries(ctx context.Context) ([]string, error) {
	members, err := l.client.ZRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, &LoadError{Backend: BackendRedis, Message: "failed to list entries", Cause: err}
	}
	return members, nil
}

func (l *RedisLedger) Len(ctx context.Context) (int, error) {
	n, err := l.client.ZCard(ctx, l.key).Result()
	if err != nil {
		return 0, &LoadError{Backend: BackendRedis, Message: "failed to count entries", Cause: err}
	}
	return int(n), nil
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}
