/*
Package sqlite provides a SQLite-backed implementation of the tariff repository.

PURPOSE:
  Implements the pricing storage interfaces (TariffRepository, TariffWriter)
  and the quote archive using SQLite. In production, the same patterns apply
  to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  pricing.ZoneSource:   Department -> zone resolution
  pricing.TariffSource: Batched tariff row lookup
  pricing.TariffWriter: Grid and zone table imports

KEY TABLES:
  tariff_rows:      One row per (line, product, zone, role, bracket), option
                    prices as nullable TEXT decimals
  zone_departments: Department tables per product line
  quotes:           Computed quotes kept for later retrieval

NULL CONTRACT:
  A NULL option column is read back as an invalid decimal.NullDecimal.
  pricing.TariffRow.Entry() turns it into a zero price.

INDEXES:
  - PRIMARY KEY on tariff_rows: the quote hot path (one query per quote)
  - idx_quotes_created_at: Most recent quotes first

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/premium.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  calc := pricing.NewCalculator(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - pricing/store.go: Interface definitions
  - pricing/store/memory.go: In-memory implementation for testing
  - factory/tariff.go: Grid files loaded through PutTariffs
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/premium-engine/pricing"
	"github.com/warp/premium-engine/pricing/store"
)

// Store implements the tariff repository and quote archive using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ pricing.TariffRepository = (*Store)(nil)
	_ pricing.TariffWriter     = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := store.seedDefaultZones(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed zone tables: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Tariff grid rows. A NULL price means "not defined" and is priced 0.
	CREATE TABLE IF NOT EXISTS tariff_rows (
		product_line TEXT NOT NULL,
		product_name TEXT NOT NULL,
		zone TEXT NOT NULL,
		role TEXT NOT NULL,
		bracket TEXT NOT NULL,
		base_1 TEXT,
		base_2 TEXT,
		base_3 TEXT,
		base_4 TEXT,
		base_5 TEXT,
		base_6 TEXT,
		surcharge_3 TEXT,
		surcharge_4 TEXT,
		surcharge_5 TEXT,
		surcharge_6 TEXT,
		hospital_reinforcement TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (product_line, product_name, zone, role, bracket)
	);

	-- Department -> zone tables, one per product line
	CREATE TABLE IF NOT EXISTS zone_departments (
		product_line TEXT NOT NULL,
		department TEXT NOT NULL,
		zone TEXT NOT NULL,
		PRIMARY KEY (product_line, department)
	);

	-- Quote archive
	CREATE TABLE IF NOT EXISTS quotes (
		id TEXT PRIMARY KEY,
		product_line TEXT NOT NULL,
		product_name TEXT NOT NULL,
		zone TEXT NOT NULL,
		monthly_premium TEXT NOT NULL,
		request_json TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_quotes_created_at
		ON quotes(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// seedDefaultZones installs the reference self-employed table on a fresh database.
func (s *Store) seedDefaultZones(ctx context.Context) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM zone_departments WHERE product_line = ?",
		pricing.LineSelfEmployed,
	).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.PutZones(ctx, pricing.LineSelfEmployed, pricing.DefaultSelfEmployedZones())
}

// =============================================================================
// ZONES
// =============================================================================

// ResolveZone maps a postal code to its zone using the stored department
// table of line, falling back to the fixed senior rules.
func (s *Store) ResolveZone(ctx context.Context, postalCode string, line pricing.ProductLine) (pricing.Zone, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dept := pricing.Department(postalCode)
	table := pricing.ZoneTable{}

	var zone string
	err := s.db.QueryRowContext(ctx,
		"SELECT zone FROM zone_departments WHERE product_line = ? AND department = ?",
		line, dept,
	).Scan(&zone)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return "", false, fmt.Errorf("failed to query zone: %w", err)
	default:
		table[dept] = pricing.Zone(zone)
	}

	z, ok := pricing.ResolveZone(postalCode, line, table)
	return z, ok, nil
}

// PutZones replaces the department table of line.
func (s *Store) PutZones(ctx context.Context, line pricing.ProductLine, table pricing.ZoneTable) error {
	if !line.Valid() {
		return fmt.Errorf("unknown product line %q", line)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM zone_departments WHERE product_line = ?", line); err != nil {
		return fmt.Errorf("failed to clear zone table: %w", err)
	}
	for dept, zone := range table {
		if _, err := sqlTx.ExecContext(ctx,
			"INSERT INTO zone_departments (product_line, department, zone) VALUES (?, ?, ?)",
			line, dept, zone,
		); err != nil {
			return fmt.Errorf("failed to insert department %s: %w", dept, err)
		}
	}

	return sqlTx.Commit()
}

// ZoneTable returns the stored department table of line.
func (s *Store) ZoneTable(ctx context.Context, line pricing.ProductLine) (pricing.ZoneTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT department, zone FROM zone_departments WHERE product_line = ?", line,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query zone table: %w", err)
	}
	defer rows.Close()

	table := make(pricing.ZoneTable)
	for rows.Next() {
		var dept, zone string
		if err := rows.Scan(&dept, &zone); err != nil {
			return nil, err
		}
		table[dept] = pricing.Zone(zone)
	}
	return table, rows.Err()
}

// =============================================================================
// TARIFF ROWS
// =============================================================================

const tariffColumns = `role, bracket,
	base_1, base_2, base_3, base_4, base_5, base_6,
	surcharge_3, surcharge_4, surcharge_5, surcharge_6,
	hospital_reinforcement`

// FetchTariffEntries returns every requested row of one grid in a single
// query. Keys without a row are omitted.
func (s *Store) FetchTariffEntries(ctx context.Context, q pricing.TariffQuery) ([]pricing.TariffRow, error) {
	if len(q.Keys) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pairs := make([]string, len(q.Keys))
	args := []any{q.ProductLine, q.ProductName, q.Zone}
	for i, k := range q.Keys {
		pairs[i] = "(role = ? AND bracket = ?)"
		args = append(args, k.Role, k.Bracket)
	}

	query := `
		SELECT ` + tariffColumns + `
		FROM tariff_rows
		WHERE product_line = ? AND product_name = ? AND zone = ?
		  AND (` + strings.Join(pairs, " OR ") + `)
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tariff rows: %w", err)
	}
	defer rows.Close()

	var out []pricing.TariffRow
	for rows.Next() {
		row, err := scanTariffRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// PutTariffs inserts or replaces records atomically. Nothing is written if
// any record is invalid.
func (s *Store) PutTariffs(ctx context.Context, records []pricing.TariffRecord) error {
	for _, rec := range records {
		if err := store.CheckRecord(rec); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO tariff_rows
		(product_line, product_name, zone, `+tariffColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_line, product_name, zone, role, bracket) DO UPDATE SET
			base_1 = excluded.base_1,
			base_2 = excluded.base_2,
			base_3 = excluded.base_3,
			base_4 = excluded.base_4,
			base_5 = excluded.base_5,
			base_6 = excluded.base_6,
			surcharge_3 = excluded.surcharge_3,
			surcharge_4 = excluded.surcharge_4,
			surcharge_5 = excluded.surcharge_5,
			surcharge_6 = excluded.surcharge_6,
			hospital_reinforcement = excluded.hospital_reinforcement,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		r := rec.Row
		args := []any{rec.ProductLine, rec.ProductName, rec.Zone, r.Role, r.Bracket}
		for _, p := range r.Base {
			args = append(args, p)
		}
		for _, p := range r.Surcharge {
			args = append(args, p)
		}
		args = append(args, r.HospitalReinforcement, now)

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to write tariff row %s %s %s: %w", rec.ProductName, rec.Zone, r.Key(), err)
		}
	}

	return sqlTx.Commit()
}

// TariffFilter narrows ListTariffs. Empty fields match everything.
type TariffFilter struct {
	ProductLine pricing.ProductLine
	ProductName string
	Zone        pricing.Zone
	Limit       int
}

// ListTariffs returns stored records in catalog order.
func (s *Store) ListTariffs(ctx context.Context, f TariffFilter) ([]pricing.TariffRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if f.ProductLine != "" {
		where = append(where, "product_line = ?")
		args = append(args, f.ProductLine)
	}
	if f.ProductName != "" {
		where = append(where, "product_name = ?")
		args = append(args, f.ProductName)
	}
	if f.Zone != "" {
		where = append(where, "zone = ?")
		args = append(args, f.Zone)
	}

	query := "SELECT product_line, product_name, zone, " + tariffColumns + " FROM tariff_rows"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tariff rows: %w", err)
	}
	defer rows.Close()

	var out []pricing.TariffRecord
	for rows.Next() {
		var rec pricing.TariffRecord
		var line, zone string
		dest := []any{&line, &rec.ProductName, &zone}
		dest = append(dest, rowDest(&rec.Row)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rec.ProductLine = pricing.ProductLine(line)
		rec.Zone = pricing.Zone(zone)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Bracket order is numeric-aware, which SQL collation is not.
	store.SortRecords(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// CountTariffs returns the number of stored tariff rows.
func (s *Store) CountTariffs(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tariff_rows").Scan(&count)
	return count, err
}

func scanTariffRow(rows *sql.Rows) (pricing.TariffRow, error) {
	var row pricing.TariffRow
	if err := rows.Scan(rowDest(&row)...); err != nil {
		return pricing.TariffRow{}, fmt.Errorf("failed to scan tariff row: %w", err)
	}
	return row, nil
}

// rowDest lists scan targets in tariffColumns order.
func rowDest(row *pricing.TariffRow) []any {
	dest := []any{&row.Role, &row.Bracket}
	for i := range row.Base {
		dest = append(dest, &row.Base[i])
	}
	for i := range row.Surcharge {
		dest = append(dest, &row.Surcharge[i])
	}
	return append(dest, &row.HospitalReinforcement)
}

// =============================================================================
// QUOTES
// =============================================================================

// QuoteRecord is an archived quote with its request and result as JSON.
type QuoteRecord struct {
	ID             string
	ProductLine    pricing.ProductLine
	ProductName    string
	Zone           pricing.Zone
	MonthlyPremium decimal.Decimal
	RequestJSON    string
	ResultJSON     string
	CreatedAt      time.Time
}

// SaveQuote archives a quote. An empty ID is filled with a new UUID.
func (s *Store) SaveQuote(ctx context.Context, q *QuoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (id, product_line, product_name, zone, monthly_premium, request_json, result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		q.ID, q.ProductLine, q.ProductName, q.Zone, q.MonthlyPremium.String(),
		q.RequestJSON, q.ResultJSON, q.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}
	return nil
}

// GetQuote retrieves a quote by ID. Returns nil if not found.
func (s *Store) GetQuote(ctx context.Context, id string) (*QuoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, product_line, product_name, zone, monthly_premium, request_json, result_json, created_at
		FROM quotes WHERE id = ?
	`, id)

	q, err := scanQuote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListQuotes returns the most recent quotes first.
func (s *Store) ListQuotes(ctx context.Context, limit int) ([]QuoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_line, product_name, zone, monthly_premium, request_json, result_json, created_at
		FROM quotes
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	var quotes []QuoteRecord
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuote(sc scanner) (*QuoteRecord, error) {
	var q QuoteRecord
	var line, zone, premium, createdAt string

	if err := sc.Scan(&q.ID, &line, &q.ProductName, &zone, &premium, &q.RequestJSON, &q.ResultJSON, &createdAt); err != nil {
		return nil, err
	}

	q.ProductLine = pricing.ProductLine(line)
	q.Zone = pricing.Zone(zone)
	q.MonthlyPremium, _ = decimal.NewFromString(premium)
	q.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &q, nil
}
