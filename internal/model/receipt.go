package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ReceiptStatus tracks a receipt record through extraction.
type ReceiptStatus string

// Receipt status constants. A receipt must always land in ready or failed;
// processing is transient and never a terminal state.
const (
	ReceiptProcessing ReceiptStatus = "processing"
	ReceiptReady      ReceiptStatus = "ready"
	ReceiptFailed     ReceiptStatus = "failed"
)

// Receipt is the header row for one ingested source document.
type Receipt struct {
	CreatedAt   time.Time
	ReceiptDate *time.Time
	Total       *float64
	StoreName   string
	SourceID    string
	Status      ReceiptStatus
	ID          int64
}

// Line item validation errors.
var (
	ErrEmptyItemName    = errors.New("line item name is empty")
	ErrNonPositivePrice = errors.New("line item price is not positive")
)

// LineItem is a normalized receipt line produced by the extraction
// pipeline. Never persisted directly; the ingestion reconciler maps it
// into a product and purchase.
type LineItem struct {
	Name       string
	Quantity   float64
	UnitPrice  float64
	TotalPrice float64
}

// NewLineItem builds a validated line item. Invalid or missing quantity
// defaults to 1 and missing total price to round(unit*quantity, 2). A
// non-positive resolved price is an error so callers can skip the item.
func NewLineItem(name string, quantity, unitPrice, totalPrice float64) (LineItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return LineItem{}, ErrEmptyItemName
	}
	if quantity <= 0 || math.IsNaN(quantity) {
		quantity = 1
	}
	if unitPrice < 0 || math.IsNaN(unitPrice) {
		unitPrice = 0
	}
	if totalPrice <= 0 || math.IsNaN(totalPrice) {
		totalPrice = Round2(unitPrice * quantity)
	}
	if unitPrice <= 0 {
		return LineItem{}, fmt.Errorf("%w: %q", ErrNonPositivePrice, name)
	}
	return LineItem{
		Name:       name,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: totalPrice,
	}, nil
}

// Round2 rounds to two decimal places, matching price arithmetic
// everywhere in the pipeline.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
