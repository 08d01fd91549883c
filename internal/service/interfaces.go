// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/stocksense/pantry/internal/model"
)

// ProductHistory pairs a product with its ascending purchase dates. It is
// the ledger snapshot unit consumed by the velocity engine and the
// meal-inventory estimator.
type ProductHistory struct {
	Product model.Product
	Dates   []time.Time
}

// PurchaseFilter defines filtering options for purchase queries.
type PurchaseFilter struct {
	ProductID int64 // 0 means all products
	Limit     int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Product operations
	UpsertProduct(ctx context.Context, rawName string) (*model.Product, error)
	GetProductByRawName(ctx context.Context, rawName string) (*model.Product, error)
	GetUnclassifiedProducts(ctx context.Context) ([]model.Product, error)
	UpdateProductClassification(ctx context.Context, productID int64, canonicalName string, category model.Category) error
	SetStockMarker(ctx context.Context, productID int64, marker model.StockMarker) error

	// Purchase ledger operations
	InsertPurchase(ctx context.Context, purchase *model.Purchase) error
	GetPurchases(ctx context.Context, filter PurchaseFilter) ([]model.Purchase, error)
	GetProductHistories(ctx context.Context) ([]ProductHistory, error)
	SourceSeen(ctx context.Context, sourceID string) (bool, error)

	// Receipt operations
	CreateReceipt(ctx context.Context, receipt *model.Receipt) (int64, error)
	UpdateReceipt(ctx context.Context, receipt *model.Receipt) error
	ListReceipts(ctx context.Context, limit int) ([]model.Receipt, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// ClassifyResult is the classification capability's answer for one
// product name. On capability failure, callers fall back to
// {CleanName: rawName, Category: Unknown}.
type ClassifyResult struct {
	CleanName  string
	Category   model.Category
	Confidence float64
}

// Classifier is the language-model-backed product classification
// capability consumed by the ingestion reconciler.
type Classifier interface {
	Classify(ctx context.Context, rawName string) (ClassifyResult, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
