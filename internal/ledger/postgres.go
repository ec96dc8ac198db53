package ledger

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultTable = "processed_items"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresLedger records identities in a table keyed by identity. The table is
// read into memory at open; appends use INSERT ... ON CONFLICT DO NOTHING.
type PostgresLedger struct {
	pool     *pgxpool.Pool
	table    string
	ownsPool bool

	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewPostgres ensures the table exists and loads its contents.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool, table string) (*PostgresLedger, error) {
	if table == "" {
		table = defaultTable
	}
	if !tableName.MatchString(table) {
		return nil, &LoadError{Backend: BackendPostgres, Message: fmt.Sprintf("invalid table name %q", table)}
	}

	l := &PostgresLedger{pool: pool, table: table, seen: make(map[string]struct{})}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		seq BIGSERIAL,
		identity TEXT PRIMARY KEY,
		appended_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, table)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, &LoadError{Backend: BackendPostgres, Message: "failed to ensure table", Cause: err}
	}

	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		l.seen[e] = struct{}{}
	}
	return l, nil
}

func (l *PostgresLedger) Contains(_ context.Context, id string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[strings.TrimSpace(id)]
	return ok, nil
}

func (l *PostgresLedger) Append(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &WriteError{Backend: BackendPostgres, ID: id, Message: "identity must not be empty"}
	}
	query := fmt.Sprintf(`INSERT INTO %s (identity) VALUES ($1) ON CONFLICT (identity) DO NOTHING`, l.table)
	if _, err := l.pool.Exec(ctx, query, id); err != nil {
		return &WriteError{Backend: BackendPostgres, ID: id, Message: "insert failed", Cause: err}
	}

	l.mu.Lock()
	l.seen[id] = struct{}{}
	l.mu.Unlock()
	return nil
}

func (l *PostgresLedger) Entries(ctx context.Context) ([]string, error) {
	rows, err := l.pool.Query(ctx, fmt.Sprintf(`SELECT identity FROM %s ORDER BY seq`, l.table))
	if err != nil {
		return nil, &LoadError{Backend: BackendPostgres, Message: "failed to list entries", Cause: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &LoadError{Backend: BackendPostgres, Message: "failed to scan entry", Cause: err}
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{Backend: BackendPostgres, Message: "failed to read entries", Cause: err}
	}
	return out, nil
}

func (l *PostgresLedger) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.seen), nil
}

func (l *PostgresLedger) Close() error {
	if l.ownsPool {
		l.pool.Close()
	}
	return nil
}
