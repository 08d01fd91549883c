package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/stocksense/pantry/internal/model"
	"github.com/stocksense/pantry/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// querier abstracts *sql.DB and *sql.Tx so every query runs identically
// inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqliteTransaction{tx: tx}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction. All
// Storage methods run against the wrapped transaction.
type sqliteTransaction struct {
	tx *sql.Tx
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTransaction) UpsertProduct(ctx context.Context, rawName string) (*model.Product, error) {
	return upsertProduct(ctx, t.tx, rawName)
}

func (t *sqliteTransaction) GetProductByRawName(ctx context.Context, rawName string) (*model.Product, error) {
	return getProductByRawName(ctx, t.tx, rawName)
}

func (t *sqliteTransaction) GetUnclassifiedProducts(ctx context.Context) ([]model.Product, error) {
	return getUnclassifiedProducts(ctx, t.tx)
}

func (t *sqliteTransaction) UpdateProductClassification(ctx context.Context, productID int64, canonicalName string, category model.Category) error {
	return updateProductClassification(ctx, t.tx, productID, canonicalName, category)
}

func (t *sqliteTransaction) SetStockMarker(ctx context.Context, productID int64, marker model.StockMarker) error {
	return setStockMarker(ctx, t.tx, productID, marker)
}

func (t *sqliteTransaction) InsertPurchase(ctx context.Context, purchase *model.Purchase) error {
	return insertPurchase(ctx, t.tx, purchase)
}

func (t *sqliteTransaction) GetPurchases(ctx context.Context, filter service.PurchaseFilter) ([]model.Purchase, error) {
	return getPurchases(ctx, t.tx, filter)
}

func (t *sqliteTransaction) GetProductHistories(ctx context.Context) ([]service.ProductHistory, error) {
	return getProductHistories(ctx, t.tx)
}

func (t *sqliteTransaction) SourceSeen(ctx context.Context, sourceID string) (bool, error) {
	return sourceSeen(ctx, t.tx, sourceID)
}

func (t *sqliteTransaction) CreateReceipt(ctx context.Context, receipt *model.Receipt) (int64, error) {
	return createReceipt(ctx, t.tx, receipt)
}

func (t *sqliteTransaction) UpdateReceipt(ctx context.Context, receipt *model.Receipt) error {
	return updateReceipt(ctx, t.tx, receipt)
}

func (t *sqliteTransaction) ListReceipts(ctx context.Context, limit int) ([]model.Receipt, error) {
	return listReceipts(ctx, t.tx, limit)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}

// nullTime converts an optional time for storage.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullFloat converts an optional float for storage.
func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
