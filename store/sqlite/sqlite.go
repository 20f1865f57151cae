/*
Package sqlite provides a SQLite-backed implementation of the register ports.

PURPOSE:
  Implements the catalog and the sales journal using SQLite. In production
  the same patterns apply to PostgreSQL with only minor dialect changes.

INTERFACES IMPLEMENTED:
  pos.Catalog:       Product lookup and current stock
  pos.ProductLister: Search/category listing
  pos.SaleRecorder:  Finalized sales + stock deduction

KEY TABLES:
  products:   Catalog, prices stored as decimal strings
  sales:      One row per finalized sale
  sale_lines: Lines of each sale with the unit price that was charged

STOCK DEDUCTION:
  RecordSale writes the sale, its lines and the stock decrement in a single
  database transaction. Stock is clamped at zero.

MONEY:
  Amounts are stored as TEXT produced by decimal.Decimal.String() and parsed
  back with decimal.NewFromString, so nothing passes through float64.

CONCURRENCY:
  Uses sync.RWMutex plus a single pooled connection, which also keeps
  ":memory:" databases on one connection.

USAGE:
  store, err := sqlite.New("./data/pos.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  session := pos.NewSession(store, billing)
  coordinator.Recorder = store

SEE ALSO:
  - pos/catalog.go: Interface definitions
  - pos/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
)

// saleTimeLayout has fixed width so created_at sorts lexically.
const saleTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements the register ports using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
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
	-- Catalog
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price_value TEXT NOT NULL,
		currency TEXT NOT NULL,
		stock INTEGER NOT NULL CHECK (stock >= 0),
		category TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_category
		ON products(category);

	-- Sales journal
	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		tender TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax TEXT NOT NULL,
		total TEXT NOT NULL,
		currency TEXT NOT NULL,
		authorization_code TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sales_created_at
		ON sales(created_at DESC);

	CREATE TABLE IF NOT EXISTS sale_lines (
		sale_id TEXT NOT NULL REFERENCES sales(id),
		position INTEGER NOT NULL,
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (sale_id, position)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CATALOG
// =============================================================================

// SaveProduct inserts or updates a product.
func (s *Store) SaveProduct(ctx context.Context, p pos.Product) error {
	return s.SaveProducts(ctx, []pos.Product{p})
}

// SaveProducts upserts products atomically, keeping first-insert order.
func (s *Store) SaveProducts(ctx context.Context, products []pos.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := upsertProducts(ctx, sqlTx, products); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// ReplaceCatalog deletes every product and loads products in their place.
func (s *Store) ReplaceCatalog(ctx context.Context, products []pos.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM products"); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}
	if err := upsertProducts(ctx, sqlTx, products); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func upsertProducts(ctx context.Context, tx *sql.Tx, products []pos.Product) error {
	query := `
		INSERT INTO products (id, name, price_value, currency, stock, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			price_value = excluded.price_value,
			currency = excluded.currency,
			stock = excluded.stock,
			category = excluded.category,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	for _, p := range products {
		_, err := tx.ExecContext(ctx, query,
			p.ID, p.Name, p.UnitPrice.Value.String(), p.UnitPrice.Currency,
			p.Stock, p.Category, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to save product %s: %w", p.ID, err)
		}
	}
	return nil
}

// Lookup returns a product or pos.ErrProductNotFound.
func (s *Store) Lookup(ctx context.Context, id pos.ProductID) (pos.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, price_value, currency, stock, category FROM products WHERE id = ?",
		id,
	)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return pos.Product{}, fmt.Errorf("%w: %s", pos.ErrProductNotFound, id)
	}
	return p, err
}

// CurrentStock returns the stock of a product or pos.ErrProductNotFound.
func (s *Store) CurrentStock(ctx context.Context, id pos.ProductID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stock int
	err := s.db.QueryRowContext(ctx, "SELECT stock FROM products WHERE id = ?", id).Scan(&stock)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: %s", pos.ErrProductNotFound, id)
	}
	return stock, err
}

// List returns products in insertion order filtered by name and category.
func (s *Store) List(ctx context.Context, filter pos.ProductFilter) ([]pos.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, name, price_value, currency, stock, category FROM products WHERE 1 = 1"
	var args []any
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		query += " AND LOWER(name) LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Search))+"%")
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []pos.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (pos.Product, error) {
	var (
		p        pos.Product
		price    string
		currency string
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &currency, &p.Stock, &p.Category); err != nil {
		return pos.Product{}, err
	}
	money, err := parseMoney(price, currency)
	if err != nil {
		return pos.Product{}, fmt.Errorf("product %s: %w", p.ID, err)
	}
	p.UnitPrice = money
	return p, nil
}

// =============================================================================
// SALES JOURNAL
// =============================================================================

// RecordSale stores a finalized sale and deducts its quantities from stock.
func (s *Store) RecordSale(ctx context.Context, sale pos.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO sales (id, mode, tender, subtotal, tax, total, currency, authorization_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.Mode, sale.Tender,
		sale.Subtotal.Value.String(), sale.Tax.Value.String(), sale.Total.Value.String(),
		sale.Total.Currency, nullString(sale.AuthorizationCode),
		sale.CreatedAt.UTC().Format(saleTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale %s: %w", sale.ID, err)
	}

	for i, line := range sale.Lines {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO sale_lines (sale_id, position, product_id, name, unit_price, quantity)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sale.ID, i, line.ProductID, line.Name, line.UnitPrice.Value.String(), line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sale line: %w", err)
		}
		_, err = sqlTx.ExecContext(ctx,
			"UPDATE products SET stock = MAX(stock - ?, 0), updated_at = ? WHERE id = ?",
			line.Quantity, time.Now().UTC().Format(time.RFC3339), line.ProductID,
		)
		if err != nil {
			return fmt.Errorf("failed to deduct stock for %s: %w", line.ProductID, err)
		}
	}

	return sqlTx.Commit()
}

// GetSale returns a sale by ID, or nil if it doesn't exist.
func (s *Store) GetSale(ctx context.Context, id string) (*pos.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales, err := s.querySales(ctx, `
		SELECT id, mode, tender, subtotal, tax, total, currency, authorization_code, created_at
		FROM sales WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, nil
	}
	return &sales[0], nil
}

// ListSales returns the most recent sales, newest first.
func (s *Store) ListSales(ctx context.Context, limit int) ([]pos.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySales(ctx, `
		SELECT id, mode, tender, subtotal, tax, total, currency, authorization_code, created_at
		FROM sales ORDER BY created_at DESC LIMIT ?`, limit)
}

func (s *Store) querySales(ctx context.Context, query string, args ...any) ([]pos.Sale, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}

	var sales []pos.Sale
	for rows.Next() {
		var (
			sale                 pos.Sale
			subtotal, tax, total string
			currency, createdAt  string
			authorizationCode    sql.NullString
		)
		if err := rows.Scan(&sale.ID, &sale.Mode, &sale.Tender, &subtotal, &tax, &total,
			&currency, &authorizationCode, &createdAt); err != nil {
			rows.Close()
			return nil, err
		}
		if sale.Subtotal, err = parseMoney(subtotal, currency); err != nil {
			rows.Close()
			return nil, err
		}
		if sale.Tax, err = parseMoney(tax, currency); err != nil {
			rows.Close()
			return nil, err
		}
		if sale.Total, err = parseMoney(total, currency); err != nil {
			rows.Close()
			return nil, err
		}
		sale.AuthorizationCode = authorizationCode.String
		sale.CreatedAt, _ = time.Parse(saleTimeLayout, createdAt)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Release the single connection before loading lines.
	rows.Close()

	for i := range sales {
		lines, err := s.saleLines(ctx, sales[i].ID, sales[i].Total.Currency)
		if err != nil {
			return nil, err
		}
		sales[i].Lines = lines
	}
	return sales, nil
}

func (s *Store) saleLines(ctx context.Context, saleID string, currency pos.Currency) ([]pos.CartLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, unit_price, quantity
		FROM sale_lines WHERE sale_id = ? ORDER BY position`, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale lines: %w", err)
	}
	defer rows.Close()

	var lines []pos.CartLine
	for rows.Next() {
		var (
			line  pos.CartLine
			price string
		)
		if err := rows.Scan(&line.ProductID, &line.Name, &price, &line.Quantity); err != nil {
			return nil, err
		}
		if line.UnitPrice, err = parseMoney(price, string(currency)); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"sale_lines", "sales", "products"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseMoney(value, currency string) (pos.Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return pos.Money{}, fmt.Errorf("invalid stored amount %q: %w", value, err)
	}
	return pos.NewMoneyFromDecimal(d, pos.Currency(currency)), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
