package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/stocksense/pantry/internal/common"
	"github.com/stocksense/pantry/internal/model"
)

// CreateReceipt inserts a receipt header. A duplicate source ID returns
// common.ErrDuplicateSource so callers can skip already-ingested
// documents.
func (s *SQLiteStorage) CreateReceipt(ctx context.Context, receipt *model.Receipt) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return createReceipt(ctx, s.db, receipt)
}

// UpdateReceipt rewrites a receipt header, typically to move it from
// processing into a terminal state.
func (s *SQLiteStorage) UpdateReceipt(ctx context.Context, receipt *model.Receipt) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return updateReceipt(ctx, s.db, receipt)
}

// ListReceipts lists receipt headers, newest first.
func (s *SQLiteStorage) ListReceipts(ctx context.Context, limit int) ([]model.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listReceipts(ctx, s.db, limit)
}

func createReceipt(ctx context.Context, q querier, receipt *model.Receipt) (int64, error) {
	if err := validateReceipt(receipt); err != nil {
		return 0, err
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO receipts (source_id, store_name, receipt_date, total, status)
		VALUES (?, ?, ?, ?, ?)
	`,
		receipt.SourceID,
		receipt.StoreName,
		nullTime(receipt.ReceiptDate),
		nullFloat(receipt.Total),
		string(receipt.Status),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: source %s", common.ErrDuplicateSource, receipt.SourceID)
		}
		return 0, fmt.Errorf("failed to create receipt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get receipt ID: %w", err)
	}
	receipt.ID = id
	return id, nil
}

func updateReceipt(ctx context.Context, q querier, receipt *model.Receipt) error {
	if err := validateReceipt(receipt); err != nil {
		return err
	}
	if receipt.ID <= 0 {
		return fmt.Errorf("%w: missing receipt ID", ErrInvalidReceipt)
	}

	result, err := q.ExecContext(ctx, `
		UPDATE receipts SET store_name = ?, receipt_date = ?, total = ?, status = ?
		WHERE id = ?
	`,
		receipt.StoreName,
		nullTime(receipt.ReceiptDate),
		nullFloat(receipt.Total),
		string(receipt.Status),
		receipt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update receipt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: receipt %d", common.ErrNotFound, receipt.ID)
	}
	return nil
}

func listReceipts(ctx context.Context, q querier, limit int) ([]model.Receipt, error) {
	query := `
		SELECT id, source_id, store_name, receipt_date, total, status, created_at
		FROM receipts ORDER BY created_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var receipts []model.Receipt
	for rows.Next() {
		var r model.Receipt
		var status string
		var receiptDate sql.NullTime
		var total sql.NullFloat64
		if err := rows.Scan(
			&r.ID,
			&r.SourceID,
			&r.StoreName,
			&receiptDate,
			&total,
			&status,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		r.Status = model.ReceiptStatus(status)
		if receiptDate.Valid {
			d := receiptDate.Time
			r.ReceiptDate = &d
		}
		if total.Valid {
			v := total.Float64
			r.Total = &v
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}
