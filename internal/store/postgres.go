package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/vinous-app/vinous-api/internal/db"
	"github.com/vinous-app/vinous-api/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool creates a PostgresStore over an existing pool,
// used by tests with a pgxmock pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS wines (
	id              TEXT PRIMARY KEY,
	name            TEXT,
	winery          TEXT,
	vintage         TEXT,
	region          TEXT,
	country         TEXT,
	grape_variety   TEXT,
	alcohol_content TEXT,
	wine_type       TEXT,
	description     TEXT,
	confidence      DOUBLE PRECISION,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_wines_created_at ON wines(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_wines_name ON wines(name);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListWines(ctx context.Context) ([]model.WineRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+wineColumns+` FROM wines ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list wines")
	}
	defer rows.Close()

	var wines []model.WineRecord
	for rows.Next() {
		rec, err := scanWine(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan wine")
		}
		wines = append(wines, rec)
	}
	return wines, eris.Wrap(rows.Err(), "postgres: list wines iterate")
}

func (s *PostgresStore) SaveWine(ctx context.Context, rec model.WineRecord) ([]model.WineRecord, error) {
	cols, args := insertColumns(rec)

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		`INSERT INTO wines (%s) VALUES (%s) RETURNING %s`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "), wineColumns,
	)

	inserted, err := scanWine(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert wine")
	}
	return []model.WineRecord{inserted}, nil
}

// insertColumns maps a record to its insert column list and argument
// values: a generated id plus the record's non-nil fields in sorted
// order. Nil attributes are simply not inserted.
func insertColumns(rec model.WineRecord) (cols []string, args []any) {
	fields := rec.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols = append(cols, "id")
	args = append(args, uuid.New().String())
	for _, k := range keys {
		cols = append(cols, k)
		args = append(args, fields[k])
	}
	return cols, args
}

// scanWine reads one wines row in wineColumns order.
func scanWine(row pgx.Row) (model.WineRecord, error) {
	var rec model.WineRecord
	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Winery,
		&rec.Vintage,
		&rec.Region,
		&rec.Country,
		&rec.GrapeVariety,
		&rec.AlcoholContent,
		&rec.WineType,
		&rec.Description,
		&rec.Confidence,
	)
	return rec, err
}
