package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/stocksense/pantry/internal/model"
	"github.com/stocksense/pantry/internal/service"
)

// InsertPurchase appends one buying event to the ledger.
func (s *SQLiteStorage) InsertPurchase(ctx context.Context, purchase *model.Purchase) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return insertPurchase(ctx, s.db, purchase)
}

// GetPurchases lists ledger entries, newest first.
func (s *SQLiteStorage) GetPurchases(ctx context.Context, filter service.PurchaseFilter) ([]model.Purchase, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getPurchases(ctx, s.db, filter)
}

// GetProductHistories returns every product with its ascending purchase
// dates, the snapshot unit the velocity engine consumes.
func (s *SQLiteStorage) GetProductHistories(ctx context.Context) ([]service.ProductHistory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getProductHistories(ctx, s.db)
}

// SourceSeen reports whether a source document was already ingested.
func (s *SQLiteStorage) SourceSeen(ctx context.Context, sourceID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	return sourceSeen(ctx, s.db, sourceID)
}

func insertPurchase(ctx context.Context, q querier, purchase *model.Purchase) error {
	if err := validatePurchase(purchase); err != nil {
		return err
	}

	var receiptID any
	if purchase.ReceiptID != 0 {
		receiptID = purchase.ReceiptID
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO purchases (product_id, receipt_id, source_id, purchase_date, quantity, unit_price, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		purchase.ProductID,
		receiptID,
		purchase.SourceID,
		purchase.PurchaseDate,
		purchase.Quantity,
		purchase.UnitPrice,
		purchase.Confidence,
	)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get purchase ID: %w", err)
	}
	purchase.ID = id
	return nil
}

func getPurchases(ctx context.Context, q querier, filter service.PurchaseFilter) ([]model.Purchase, error) {
	query := `
		SELECT id, product_id, COALESCE(receipt_id, 0), source_id, purchase_date, quantity, unit_price, confidence
		FROM purchases
	`
	var args []any
	if filter.ProductID != 0 {
		query += ` WHERE product_id = ?`
		args = append(args, filter.ProductID)
	}
	query += ` ORDER BY purchase_date DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var purchases []model.Purchase
	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(
			&p.ID,
			&p.ProductID,
			&p.ReceiptID,
			&p.SourceID,
			&p.PurchaseDate,
			&p.Quantity,
			&p.UnitPrice,
			&p.Confidence,
		); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func getProductHistories(ctx context.Context, q querier) ([]service.ProductHistory, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.id, p.raw_name, p.canonical_name, p.category, p.stock_marker, p.created_at, pu.purchase_date
		FROM products p
		JOIN purchases pu ON pu.product_id = p.id
		ORDER BY p.id, pu.purchase_date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query product histories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var histories []service.ProductHistory
	var current *service.ProductHistory
	for rows.Next() {
		var product model.Product
		var category, marker string
		var purchaseDate time.Time
		if err := rows.Scan(
			&product.ID,
			&product.RawName,
			&product.CanonicalName,
			&category,
			&marker,
			&product.CreatedAt,
			&purchaseDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		product.Category = model.Category(category)
		product.Profile = product.Category.Profile()
		product.StockMarker = model.StockMarker(marker)

		if current == nil || current.Product.ID != product.ID {
			histories = append(histories, service.ProductHistory{Product: product})
			current = &histories[len(histories)-1]
		}
		current.Dates = append(current.Dates, purchaseDate)
	}
	return histories, rows.Err()
}

func sourceSeen(ctx context.Context, q querier, sourceID string) (bool, error) {
	if err := validateString(sourceID, "sourceID"); err != nil {
		return false, err
	}

	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM receipts WHERE source_id = ?
	`, sourceID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check source: %w", err)
	}
	return count > 0, nil
}
