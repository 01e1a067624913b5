package userdict

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the SQL DDL for the user_words table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS user_words (
    word       TEXT PRIMARY KEY,
    frequency  BIGINT NOT NULL DEFAULT 0,
    custom     BOOLEAN NOT NULL DEFAULT false,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by the user_words table. Custom words
// and frequencies share one row per word.
type PostgresStore struct {
	db DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store over db. The caller is responsible for
// calling [PostgresStore.Migrate] before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPool parses dsn, connects and pings. The caller owns the returned pool.
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("userdict: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("userdict: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("userdict: ping: %w", err)
	}
	return pool, nil
}

// Migrate executes the [Schema] DDL.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("userdict: migrate: %w", err)
	}
	return nil
}

// Ping checks that the database answers a trivial query.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("userdict: ping postgres: %w", err)
	}
	return nil
}

// Load implements [Store].
func (s *PostgresStore) Load(ctx context.Context) (*UserDictionary, error) {
	const query = `SELECT word, frequency, custom FROM user_words ORDER BY word`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("userdict: load: %w", err)
	}
	defer rows.Close()

	d := New()
	for rows.Next() {
		var (
			word   string
			freq   int64
			custom bool
		)
		if err := rows.Scan(&word, &freq, &custom); err != nil {
			return nil, fmt.Errorf("userdict: load scan: %w", err)
		}
		if custom {
			d.Words = append(d.Words, word)
		}
		if freq > 0 {
			d.Frequencies[word] = int(freq)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userdict: load: %w", err)
	}
	return d, nil
}

type wordRow struct {
	freq   int64
	custom bool
}

// Save implements [Store]. Rows are upserted in a single statement; stored
// frequencies never decrease and a word once marked custom stays custom.
func (s *PostgresStore) Save(ctx context.Context, d *UserDictionary) error {
	rows := make(map[string]*wordRow)
	row := func(w string) *wordRow {
		r, ok := rows[w]
		if !ok {
			r = &wordRow{}
			rows[w] = r
		}
		return r
	}
	for _, w := range d.Words {
		row(w).custom = true
	}
	for w, n := range d.Frequencies {
		row(w).freq = int64(n)
	}
	if len(rows) == 0 {
		return nil
	}

	words := make([]string, 0, len(rows))
	freqs := make([]int64, 0, len(rows))
	custom := make([]bool, 0, len(rows))
	for w, r := range rows {
		words = append(words, w)
		freqs = append(freqs, r.freq)
		custom = append(custom, r.custom)
	}

	const query = `
		INSERT INTO user_words (word, frequency, custom)
		SELECT * FROM unnest($1::text[], $2::bigint[], $3::boolean[])
		ON CONFLICT (word) DO UPDATE SET
			frequency  = GREATEST(user_words.frequency, EXCLUDED.frequency),
			custom     = user_words.custom OR EXCLUDED.custom,
			updated_at = now()`

	if _, err := s.db.Exec(ctx, query, words, freqs, custom); err != nil {
		return fmt.Errorf("userdict: save: %w", err)
	}
	return nil
}
