// Package storage provides the SQLite persistence layer for the pantry
// ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stocksense/pantry/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidPurchase = errors.New("invalid purchase")
	ErrInvalidReceipt  = errors.New("invalid receipt")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePurchase validates a purchase before insert.
func validatePurchase(purchase *model.Purchase) error {
	if purchase == nil {
		return fmt.Errorf("%w: purchase", ErrNilParameter)
	}
	if purchase.ProductID <= 0 {
		return fmt.Errorf("%w: missing product ID", ErrInvalidPurchase)
	}
	if purchase.PurchaseDate.IsZero() {
		return fmt.Errorf("%w: missing purchase date", ErrInvalidPurchase)
	}
	if purchase.Quantity <= 0 {
		return fmt.Errorf("%w: non-positive quantity", ErrInvalidPurchase)
	}
	if purchase.UnitPrice <= 0 {
		return fmt.Errorf("%w: non-positive unit price", ErrInvalidPurchase)
	}
	return nil
}

// validateReceipt validates a receipt header.
func validateReceipt(receipt *model.Receipt) error {
	if receipt == nil {
		return fmt.Errorf("%w: receipt", ErrNilParameter)
	}
	if strings.TrimSpace(receipt.SourceID) == "" {
		return fmt.Errorf("%w: missing source ID", ErrInvalidReceipt)
	}
	switch receipt.Status {
	case model.ReceiptProcessing, model.ReceiptReady, model.ReceiptFailed:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidReceipt, receipt.Status)
	}
	return nil
}
