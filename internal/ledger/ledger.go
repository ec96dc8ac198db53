// Package ledger records the identities of items the pipeline has already acted
// on. Every backend is append-only: entries are never updated or removed, and
// appending an identity that is already present is a no-op.
package ledger

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
)

// Ledger is a durable, append-only set of processed identities.
type Ledger interface {
	// Contains reports whether id has been appended before.
	Contains(ctx context.Context, id string) (bool, error)
	// Append durably records id. It returns only after the write is confirmed.
	Append(ctx context.Context, id string) error
	// Entries returns all identities in append order.
	Entries(ctx context.Context) ([]string, error)
	// Len returns the number of recorded identities.
	Len(ctx context.Context) (int, error)
	Close() error
}

// Backend names a ledger implementation.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Backend     Backend
	Path        string // file backend
	RedisURL    string // redis backend
	RedisKey    string
	DatabaseURL string // postgres backend
	Table       string
}

// Open constructs the ledger described by opts.
func Open(ctx context.Context, opts Options) (Ledger, error) {
	switch opts.Backend {
	case BackendFile, "":
		return OpenFile(opts.Path)
	case BackendRedis:
		redisOpts, err := goredis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, &LoadError{Backend: BackendRedis, Message: "invalid redis url", Cause: err}
		}
		client := goredis.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, &LoadError{Backend: BackendRedis, Message: "redis unreachable", Cause: err}
		}
		return NewRedis(client, opts.RedisKey), nil
	case BackendPostgres:
		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, &LoadError{Backend: BackendPostgres, Message: "failed to create pool", Cause: err}
		}
		l, err := NewPostgres(ctx, pool, opts.Table)
		if err != nil {
			pool.Close()
			return nil, err
		}
		l.ownsPool = true
		return l, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", opts.Backend)
	}
}

// DefaultPath is the file ledger location used when none is configured.
func DefaultPath() string {
	if p := os.Getenv("CURATOR_LEDGER_PATH"); p != "" {
		return p
	}
	return "data/processed.txt"
}
