package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"movers/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RecordStore = (*SQLiteStore)(nil)

// SQLiteStore implements RecordStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS passes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source      TEXT    NOT NULL,
	captured_at INTEGER NOT NULL,
	row_count   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passes_source ON passes(source, captured_at);

CREATE TABLE IF NOT EXISTS records (
	pass_id          INTEGER NOT NULL REFERENCES passes(id),
	row_index        INTEGER NOT NULL,
	symbol           TEXT    NOT NULL,
	name             TEXT    NOT NULL,
	price            REAL    NOT NULL,
	change           REAL    NOT NULL,
	pct_change       REAL    NOT NULL,
	volume           REAL    NOT NULL,
	avg_volume       REAL    NOT NULL,
	market_cap       REAL    NOT NULL,
	market_cap_scale TEXT    NOT NULL,
	pe_ratio         REAL,
	PRIMARY KEY (pass_id, row_index)
);
CREATE INDEX IF NOT EXISTS idx_records_symbol ON records(symbol);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies
// the schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer at a time; the driver serialises anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// RecordStore implementation
// ---------------------------------------------------------------------------

// SaveTable inserts table as a new pass in one transaction. The pass time
// is taken from the first record; an empty table records an empty pass at
// the current time.
func (s *SQLiteStore) SaveTable(ctx context.Context, source string, table domain.Table) error {
	capturedAt := time.Now()
	if len(table) > 0 {
		capturedAt = table[0].CapturedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO passes (source, captured_at, row_count) VALUES (?, ?, ?)`,
		source, capturedAt.UnixMilli(), len(table))
	if err != nil {
		return fmt.Errorf("inserting pass: %w", err)
	}
	passID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (
		pass_id, row_index, symbol, name, price, change, pct_change,
		volume, avg_volume, market_cap, market_cap_scale, pe_ratio
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range table {
		var pe sql.NullFloat64
		if r.PERatio != nil {
			pe = sql.NullFloat64{Float64: *r.PERatio, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			passID, r.RowIndex, r.Symbol, r.Name, r.Price, r.Change, r.PctChange,
			r.Volume, r.AvgVolume, r.MarketCap, string(r.MarketCapScale), pe,
		); err != nil {
			return fmt.Errorf("inserting %s row %d: %w", r.Symbol, r.RowIndex, err)
		}
	}
	return tx.Commit()
}

// LatestTable returns the most recent pass for source ordered by row index.
func (s *SQLiteStore) LatestTable(ctx context.Context, source string) (domain.Table, error) {
	var passID, capturedMs int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, captured_at FROM passes WHERE source = ? ORDER BY captured_at DESC, id DESC LIMIT 1`,
		source).Scan(&passID, &capturedMs)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM records
		WHERE pass_id = ? ORDER BY row_index`, passID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	capturedAt := time.UnixMilli(capturedMs)
	table := domain.Table{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		r.CapturedAt = capturedAt
		table = append(table, r)
	}
	return table, rows.Err()
}

// SymbolRecords returns every stored record for symbol, newest pass first.
func (s *SQLiteStore) SymbolRecords(ctx context.Context, symbol string, limit int) ([]SourcedRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT p.source, p.captured_at, `+recordColumns+`
		FROM records r JOIN passes p ON p.id = r.pass_id
		WHERE r.symbol = ?
		ORDER BY p.captured_at DESC, p.id DESC
		LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourcedRecord
	for rows.Next() {
		var source string
		var capturedMs int64
		r, err := scanRecord(rows, &source, &capturedMs)
		if err != nil {
			return nil, err
		}
		r.CapturedAt = time.UnixMilli(capturedMs)
		out = append(out, SourcedRecord{Source: source, Record: r})
	}
	return out, rows.Err()
}

const recordColumns = `row_index, symbol, name, price, change, pct_change,
	volume, avg_volume, market_cap, market_cap_scale, pe_ratio`

// scanRecord scans recordColumns, preceded by any extra destinations.
func scanRecord(rows *sql.Rows, leading ...any) (domain.Record, error) {
	var r domain.Record
	var scale string
	var pe sql.NullFloat64

	dest := append(leading,
		&r.RowIndex, &r.Symbol, &r.Name, &r.Price, &r.Change, &r.PctChange,
		&r.Volume, &r.AvgVolume, &r.MarketCap, &scale, &pe,
	)
	if err := rows.Scan(dest...); err != nil {
		return r, err
	}
	r.MarketCapScale = domain.ParseScale(scale)
	if pe.Valid {
		v := pe.Float64
		r.PERatio = &v
	}
	return r, nil
}
