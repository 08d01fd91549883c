package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stocksense/pantry/internal/common"
	"github.com/stocksense/pantry/internal/model"
)

// UpsertProduct finds or creates the product identified by rawName.
func (s *SQLiteStorage) UpsertProduct(ctx context.Context, rawName string) (*model.Product, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return upsertProduct(ctx, s.db, rawName)
}

// GetProductByRawName looks up a product by its natural key.
func (s *SQLiteStorage) GetProductByRawName(ctx context.Context, rawName string) (*model.Product, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getProductByRawName(ctx, s.db, rawName)
}

// GetUnclassifiedProducts lists products still in the Unknown category.
func (s *SQLiteStorage) GetUnclassifiedProducts(ctx context.Context) ([]model.Product, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getUnclassifiedProducts(ctx, s.db)
}

// UpdateProductClassification records a classification result.
func (s *SQLiteStorage) UpdateProductClassification(ctx context.Context, productID int64, canonicalName string, category model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return updateProductClassification(ctx, s.db, productID, canonicalName, category)
}

// SetStockMarker records an explicit inventory override.
func (s *SQLiteStorage) SetStockMarker(ctx context.Context, productID int64, marker model.StockMarker) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return setStockMarker(ctx, s.db, productID, marker)
}

const productColumns = `id, raw_name, canonical_name, category, stock_marker, created_at`

func upsertProduct(ctx context.Context, q querier, rawName string) (*model.Product, error) {
	if err := validateString(rawName, "rawName"); err != nil {
		return nil, err
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO products (raw_name) VALUES (?)
		ON CONFLICT(raw_name) DO NOTHING
	`, rawName)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert product: %w", err)
	}

	return getProductByRawName(ctx, q, rawName)
}

func getProductByRawName(ctx context.Context, q querier, rawName string) (*model.Product, error) {
	if err := validateString(rawName, "rawName"); err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products WHERE raw_name = ?
	`, rawName)

	product, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %q", common.ErrNotFound, rawName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func getUnclassifiedProducts(ctx context.Context, q querier) ([]model.Product, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products WHERE category = ? ORDER BY raw_name
	`, string(model.CategoryUnknown))
	if err != nil {
		return nil, fmt.Errorf("failed to query unclassified products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []model.Product
	for rows.Next() {
		product, scanErr := scanProduct(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan product: %w", scanErr)
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func updateProductClassification(ctx context.Context, q querier, productID int64, canonicalName string, category model.Category) error {
	result, err := q.ExecContext(ctx, `
		UPDATE products SET canonical_name = ?, category = ? WHERE id = ?
	`, canonicalName, string(category), productID)
	if err != nil {
		return fmt.Errorf("failed to update classification: %w", err)
	}
	return requireRow(result, productID)
}

func setStockMarker(ctx context.Context, q querier, productID int64, marker model.StockMarker) error {
	switch marker {
	case model.MarkerInStock, model.MarkerOut:
	default:
		return fmt.Errorf("%w: unknown stock marker %q", common.ErrInvalidConfig, marker)
	}

	result, err := q.ExecContext(ctx, `
		UPDATE products SET stock_marker = ? WHERE id = ?
	`, string(marker), productID)
	if err != nil {
		return fmt.Errorf("failed to set stock marker: %w", err)
	}
	return requireRow(result, productID)
}

func requireRow(result sql.Result, productID int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: product %d", common.ErrNotFound, productID)
	}
	return nil
}

// scannable covers *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanProduct(row scannable) (*model.Product, error) {
	var product model.Product
	var category, marker string
	if err := row.Scan(
		&product.ID,
		&product.RawName,
		&product.CanonicalName,
		&category,
		&marker,
		&product.CreatedAt,
	); err != nil {
		return nil, err
	}
	product.Category = model.Category(category)
	product.Profile = product.Category.Profile()
	product.StockMarker = model.StockMarker(marker)
	return &product, nil
}
