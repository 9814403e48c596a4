// Package postgres is the Master's durable write-through persistence
// store, backed by PostgreSQL: two token tables (current_tokens,
// archived_tokens) mutated in one transaction per batch, and a
// version_counter row supplying fresh, monotonic versions across
// restarts.
package postgres

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"

	"github.com/pinball-run/pinball/pkg/persistence"
	"github.com/pinball-run/pinball/pkg/token"
)

// Store implements persistence.Store against a PostgreSQL database.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn, applies pending migrations, and returns a ready
// Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence/postgres: connect: %w", err)
	}
	if err := Migrate(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewFromDB wraps an already-open *sqlx.DB, used by tests against
// go-sqlmock where Open's real dial-and-migrate path doesn't apply.
func NewFromDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) AllocateVersions(ctx context.Context, n int) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("persistence/postgres: n must be positive, got %d", n)
	}
	var start int64
	row := s.db.QueryRowContext(ctx,
		`UPDATE version_counter SET next = next + $1 WHERE id = 1 RETURNING next - $1`, n)
	if err := row.Scan(&start); err != nil {
		return 0, fmt.Errorf("persistence/postgres: allocate versions: %w", err)
	}
	return start, nil
}

func (s *Store) Persist(ctx context.Context, batch persistence.Batch) error {
	if batch.Empty() {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persistence/postgres: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const upsertCurrent = `
		INSERT INTO current_tokens (name, version, owner, expiration, priority, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			version = EXCLUDED.version,
			owner = EXCLUDED.owner,
			expiration = EXCLUDED.expiration,
			priority = EXCLUDED.priority,
			data = EXCLUDED.data`
	for _, t := range batch.CurrentUpserts {
		if _, err := tx.ExecContext(ctx, upsertCurrent, t.Name, t.Version, t.Owner, t.ExpirationTime, t.Priority, t.Data); err != nil {
			return fmt.Errorf("persistence/postgres: upsert current %q: %w", t.Name, err)
		}
	}

	const deleteCurrent = `DELETE FROM current_tokens WHERE name = $1`
	for _, name := range batch.CurrentDeletes {
		if _, err := tx.ExecContext(ctx, deleteCurrent, name); err != nil {
			return fmt.Errorf("persistence/postgres: delete current %q: %w", name, err)
		}
	}

	const insertArchive = `
		INSERT INTO archived_tokens (name, version, owner, expiration, priority, data)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, t := range batch.ArchiveInserts {
		if _, err := tx.ExecContext(ctx, insertArchive, t.Name, t.Version, t.Owner, t.ExpirationTime, t.Priority, t.Data); err != nil {
			return fmt.Errorf("persistence/postgres: insert archive %q: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persistence/postgres: commit: %w", err)
	}
	return nil
}

type tokenRow struct {
	Name       string  `db:"name"`
	Version    int64   `db:"version"`
	Owner      string  `db:"owner"`
	Expiration int64   `db:"expiration"`
	Priority   float64 `db:"priority"`
	Data       []byte  `db:"data"`
}

func (r tokenRow) toToken() token.Token {
	return token.Token{
		Version:        r.Version,
		Name:           r.Name,
		Owner:          r.Owner,
		ExpirationTime: r.Expiration,
		Priority:       r.Priority,
		Data:           r.Data,
	}
}

func (s *Store) LoadAll(ctx context.Context) ([]token.Token, error) {
	var rows []tokenRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT name, version, owner, expiration, priority, data FROM current_tokens ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("persistence/postgres: load all: %w", err)
	}
	out := make([]token.Token, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toToken())
	}
	return out, nil
}

func (s *Store) ReadArchive(ctx context.Context, namePrefix string) ([]token.Token, error) {
	var rows []tokenRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT name, version, owner, expiration, priority, data FROM archived_tokens WHERE name LIKE $1 ORDER BY name`,
		escapeLikePrefix(namePrefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("persistence/postgres: read archive: %w", err)
	}
	out := make([]token.Token, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toToken())
	}
	return out, nil
}

// escapeLikePrefix escapes LIKE metacharacters in a literal prefix so a
// name such as "/workflow/my_job%/I" is matched literally, not as a
// wildcard pattern.
func escapeLikePrefix(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '%', '_':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

var _ persistence.Store = (*Store)(nil)
