package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/vinous-app/vinous-api/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local
// development without a Postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	confidence      REAL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_wines_created_at ON wines(created_at);
CREATE INDEX IF NOT EXISTS idx_wines_name ON wines(name);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListWines(ctx context.Context) ([]model.WineRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+wineColumns+` FROM wines ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list wines")
	}
	defer rows.Close()

	var wines []model.WineRecord
	for rows.Next() {
		var rec model.WineRecord
		if err := rows.Scan(
			&rec.ID, &rec.Name, &rec.Winery, &rec.Vintage, &rec.Region,
			&rec.Country, &rec.GrapeVariety, &rec.AlcoholContent,
			&rec.WineType, &rec.Description, &rec.Confidence,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan wine")
		}
		wines = append(wines, rec)
	}
	return wines, eris.Wrap(rows.Err(), "sqlite: list wines iterate")
}

func (s *SQLiteStore) SaveWine(ctx context.Context, rec model.WineRecord) ([]model.WineRecord, error) {
	cols, args := insertColumns(rec)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	query := fmt.Sprintf(
		`INSERT INTO wines (%s) VALUES (%s)`,
		strings.Join(cols, ", "), placeholders,
	)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert wine")
	}

	var inserted model.WineRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT `+wineColumns+` FROM wines WHERE id = ?`, args[0],
	).Scan(
		&inserted.ID, &inserted.Name, &inserted.Winery, &inserted.Vintage,
		&inserted.Region, &inserted.Country, &inserted.GrapeVariety,
		&inserted.AlcoholContent, &inserted.WineType, &inserted.Description,
		&inserted.Confidence,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read back wine")
	}
	return []model.WineRecord{inserted}, nil
}

// compile-time interface checks
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
