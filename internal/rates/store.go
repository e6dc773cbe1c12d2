package rates

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store is a SQLite-backed quote store. A Portfolio Performance export is
// imported once and the store then serves GetRate on later runs without the
// export file at hand. It implements Provider.
type Store struct {
	db   *sql.DB
	path string
	fiat string
}

const schema = `
CREATE TABLE IF NOT EXISTS rates (
	day   TEXT NOT NULL,
	asset TEXT NOT NULL,
	fiat  TEXT NOT NULL,
	rate  TEXT NOT NULL,
	PRIMARY KEY (day, asset, fiat)
);`

// OpenStore opens (creating if needed) the quote store at dbPath, quoted in
// the given fiat currency.
func OpenStore(dbPath, fiat string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("rate store path must not be empty")
	}
	if fiat == "" {
		fiat = "EUR"
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create rate store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open rate store: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping rate store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize rate store schema: %w", err)
	}

	return &Store{db: db, path: dbPath, fiat: fiat}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ImportQuotes upserts quotes in a single transaction and returns the
// number written.
func (s *Store) ImportQuotes(ctx context.Context, quotes []Quote) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin rate import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rates (day, asset, fiat, rate) VALUES (?, ?, ?, ?)
		 ON CONFLICT(day, asset, fiat) DO UPDATE SET rate = excluded.rate`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare rate insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, q := range quotes {
		if _, err := stmt.ExecContext(ctx, q.Day, q.Asset, s.fiat, q.Rate.String()); err != nil {
			return 0, fmt.Errorf("failed to store rate %s/%s: %w", q.Asset, q.Day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rate import: %w", err)
	}
	return len(quotes), nil
}

// GetRate implements Provider.
func (s *Store) GetRate(ctx context.Context, asset string, day time.Time) (decimal.Decimal, error) {
	key := day.Format(dayKey)

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT rate FROM rates WHERE day = ? AND asset = ? AND fiat = ?`,
		key, asset, s.fiat).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Zero, fmt.Errorf("no quote for %s-%s on %s in %s: %w", asset, s.fiat, key, s.path, ErrRateUnavailable)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query rate store: %w", err)
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt rate %q for %s on %s: %w", raw, asset, key, err)
	}
	return rate, nil
}

// Stats summarizes the store contents for the CLI.
type Stats struct {
	Quotes  int
	Assets  []string
	FromDay string
	ToDay   string
}

// Stats reports quote count, covered assets and the covered date range.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MIN(day), ''), COALESCE(MAX(day), '') FROM rates WHERE fiat = ?`, s.fiat)
	if err := row.Scan(&stats.Quotes, &stats.FromDay, &stats.ToDay); err != nil {
		return nil, fmt.Errorf("failed to read rate store stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT asset FROM rates WHERE fiat = ? ORDER BY asset`, s.fiat)
	if err != nil {
		return nil, fmt.Errorf("failed to list rate store assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var asset string
		if err := rows.Scan(&asset); err != nil {
			return nil, fmt.Errorf("failed to scan rate store asset: %w", err)
		}
		stats.Assets = append(stats.Assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rate store assets: %w", err)
	}

	return stats, nil
}
