package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/calenhart/lorecrawl/internal/types"
)

// PostgresBackend stores records as jsonb documents, one table per
// collection with the id lifted into the primary key.
type PostgresBackend struct {
	db     *sqlx.DB
	mu     sync.Mutex
	tables map[string]bool
	logger *slog.Logger
}

var identifierRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// NewPostgresBackend connects to Postgres and verifies the server is
// reachable.
func NewPostgresBackend(dsn string, logger *slog.Logger) (*PostgresBackend, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	db.SetMaxOpenConns(8)

	return &PostgresBackend{
		db:     db,
		tables: make(map[string]bool),
		logger: logger.With("component", "postgres_storage"),
	}, nil
}

func (b *PostgresBackend) Name() string { return "postgres" }

func (b *PostgresBackend) Save(ctx context.Context, collection string, rec Record) error {
	return b.SaveBatch(ctx, collection, []Record{rec})
}

func (b *PostgresBackend) SaveBatch(ctx context.Context, collection string, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	table, err := b.ensureTable(ctx, collection)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Collection: collection, Err: err}
	}

	err = withRetry(func() error {
		tx, err := b.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt := fmt.Sprintf(
			`INSERT INTO %s (id, data) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`, table)
		for _, rec := range recs {
			doc := rec.Doc()
			id, ok := docID(doc)
			if !ok {
				return fmt.Errorf("record without id")
			}
			data, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, stmt, id, data); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return &types.StorageError{Backend: "postgres", Collection: collection, Err: err}
	}

	b.logger.Debug("records saved", "collection", collection, "count", len(recs))
	return nil
}

func (b *PostgresBackend) Query(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	table, err := b.ensureTable(ctx, collection)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Collection: collection, Err: err}
	}

	query, args, err := buildSelect(table, filter)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Collection: collection, Err: err}
	}

	rows, err := b.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Collection: collection, Err: err}
	}
	defer rows.Close()

	var docs []map[string]any
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, &types.StorageError{Backend: "postgres", Collection: collection, Err: err}
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, &types.StorageError{Backend: "postgres", Collection: collection, Err: err}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StorageError{Backend: "postgres", Collection: collection, Err: err}
	}
	return docs, nil
}

func (b *PostgresBackend) Close() error {
	b.logger.Info("postgres storage closing")
	return b.db.Close()
}

// buildSelect renders the SELECT for a collection table and filter. Strings
// compare through ->> (text), everything else through -> against a jsonb
// literal. Filter keys are walked in sorted order so the statement is stable.
func buildSelect(table string, filter map[string]any) (string, []any, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		conds []string
		args  []any
	)
	for _, k := range keys {
		switch val := filter[k].(type) {
		case string:
			args = append(args, k, val)
			conds = append(conds, fmt.Sprintf("data->>$%d = $%d", len(args)-1, len(args)))
		default:
			enc, err := json.Marshal(val)
			if err != nil {
				return "", nil, err
			}
			args = append(args, k, string(enc))
			conds = append(conds, fmt.Sprintf("data->$%d = $%d::jsonb", len(args)-1, len(args)))
		}
	}

	query := fmt.Sprintf("SELECT data FROM %s", table)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return query + " ORDER BY id", args, nil
}

// tableName validates the collection name and maps it to its table.
// Collection names come from the closed entity kind set, never from user
// input, but the identifier check keeps interpolation safe anyway.
func tableName(collection string) (string, error) {
	if !identifierRe.MatchString(collection) {
		return "", fmt.Errorf("invalid collection name: %q", collection)
	}
	return "lorecrawl_" + collection, nil
}

// ensureTable creates a collection's table on first use.
func (b *PostgresBackend) ensureTable(ctx context.Context, collection string) (string, error) {
	table, err := tableName(collection)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tables[table] {
		return table, nil
	}

	ddl := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, data JSONB NOT NULL)`, table)
	if _, err := b.db.ExecContext(ctx, ddl); err != nil {
		return "", fmt.Errorf("create table %s: %w", table, err)
	}
	b.tables[table] = true
	return table, nil
}
