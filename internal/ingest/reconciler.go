// Package ingest reconciles extracted receipts into the purchase
// ledger. The reconciler owns the receipt lifecycle: every ingested
// document lands in a terminal ready or failed state, and a source
// document is never processed twice.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stocksense/pantry/internal/common"
	"github.com/stocksense/pantry/internal/extract"
	"github.com/stocksense/pantry/internal/model"
	"github.com/stocksense/pantry/internal/service"
)

// Document is one receipt source submitted for ingestion. SourceID is
// derived from the raw document when empty.
type Document struct {
	Source   extract.Source
	SourceID string
	// FallbackDate is used as the purchase date when extraction finds
	// no date on the receipt itself, typically the email or file date.
	FallbackDate *time.Time
}

// Result summarizes one ingestion run.
type Result struct {
	SourceID     string
	Status       model.ReceiptStatus
	ReceiptID    int64
	ItemsFound   int
	ItemsStored  int
	ItemsSkipped int
	Duplicate    bool
}

// Reconciler drives documents through extraction, classification, and
// ledger writes.
type Reconciler struct {
	store      service.Storage
	pipeline   *extract.Pipeline
	classifier service.Classifier
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClassifier attaches the product classification capability. Without
// one, every product keeps its raw name and the Unknown category.
func WithClassifier(classifier service.Classifier) Option {
	return func(r *Reconciler) { r.classifier = classifier }
}

// WithClock overrides the reconciler's time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler creates an ingestion reconciler.
func NewReconciler(store service.Storage, pipeline *extract.Pipeline, logger *slog.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reconciler{
		store:    store,
		pipeline: pipeline,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ingest processes one document end to end. A duplicate source returns
// early with Duplicate set and no error. Extraction failure records a
// failed receipt and returns the extraction error; per-item failures
// inside a successful extraction are skipped, never fatal.
func (r *Reconciler) Ingest(ctx context.Context, doc Document) (Result, error) {
	sourceID := doc.SourceID
	if sourceID == "" {
		sourceID = deriveSourceID(doc.Source)
	}
	result := Result{SourceID: sourceID}

	seen, err := r.store.SourceSeen(ctx, sourceID)
	if err != nil {
		return result, fmt.Errorf("source lookup: %w", err)
	}
	if seen {
		r.logger.Info("skipping already-ingested source", "source_id", sourceID)
		result.Duplicate = true
		return result, nil
	}

	// The header is created before extraction so a crash mid-extraction
	// leaves a visible processing row instead of silence.
	receipt := &model.Receipt{
		SourceID:  sourceID,
		Status:    model.ReceiptProcessing,
		CreatedAt: r.now(),
	}
	receiptID, err := r.store.CreateReceipt(ctx, receipt)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateSource) {
			result.Duplicate = true
			return result, nil
		}
		return result, fmt.Errorf("create receipt: %w", err)
	}
	receipt.ID = receiptID
	result.ReceiptID = receiptID

	extraction, err := r.pipeline.Extract(ctx, doc.Source)
	if err != nil {
		receipt.Status = model.ReceiptFailed
		if updateErr := r.store.UpdateReceipt(ctx, receipt); updateErr != nil {
			r.logger.Error("failed to mark receipt failed",
				"receipt_id", receiptID, "error", updateErr)
		}
		result.Status = model.ReceiptFailed
		return result, fmt.Errorf("extract %s: %w", sourceID, err)
	}

	purchaseDate := r.resolvePurchaseDate(extraction.Date, doc.FallbackDate)
	result.ItemsFound = len(extraction.Items)

	stored, err := r.storeItems(ctx, receipt, extraction, purchaseDate)
	if err != nil {
		receipt.Status = model.ReceiptFailed
		if updateErr := r.store.UpdateReceipt(ctx, receipt); updateErr != nil {
			r.logger.Error("failed to mark receipt failed",
				"receipt_id", receiptID, "error", updateErr)
		}
		result.Status = model.ReceiptFailed
		return result, err
	}
	result.ItemsStored = stored
	result.ItemsSkipped = result.ItemsFound - stored

	receipt.Status = model.ReceiptReady
	receipt.StoreName = extraction.StoreName
	receipt.ReceiptDate = extraction.Date
	receipt.Total = extraction.Total
	if err := r.store.UpdateReceipt(ctx, receipt); err != nil {
		return result, fmt.Errorf("finalize receipt: %w", err)
	}
	result.Status = model.ReceiptReady

	r.logger.Info("ingested receipt",
		"source_id", sourceID,
		"store", extraction.StoreName,
		"items_found", result.ItemsFound,
		"items_stored", result.ItemsStored)
	return result, nil
}

// storeItems writes all line items of one extraction in a single
// transaction. Individual item failures are skipped; the transaction
// only fails on storage-level errors.
func (r *Reconciler) storeItems(ctx context.Context, receipt *model.Receipt, extraction extract.Extraction, purchaseDate time.Time) (int, error) {
	if len(extraction.Items) == 0 {
		return 0, nil
	}

	// Classification goes to an external model with retries and rate
	// limiting; it never runs while the write transaction is open.
	classified := make([]service.ClassifyResult, len(extraction.Items))
	for i, item := range extraction.Items {
		classified[i] = r.classify(ctx, item.Name)
	}

	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored := 0
	for i, item := range extraction.Items {
		product, err := tx.UpsertProduct(ctx, item.Name)
		if err != nil {
			r.logger.Warn("skipping item, product upsert failed",
				"name", item.Name, "error", err)
			continue
		}

		if product.Category == model.CategoryUnknown && classified[i].Category != model.CategoryUnknown {
			if err := tx.UpdateProductClassification(ctx, product.ID, classified[i].CleanName, classified[i].Category); err != nil {
				r.logger.Warn("product classification not saved",
					"name", item.Name, "error", err)
			}
		}

		purchase := &model.Purchase{
			ProductID:    product.ID,
			ReceiptID:    receipt.ID,
			SourceID:     receipt.SourceID,
			PurchaseDate: purchaseDate,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Confidence:   extraction.Confidence,
		}
		if err := tx.InsertPurchase(ctx, purchase); err != nil {
			r.logger.Warn("skipping item, purchase insert failed",
				"name", item.Name, "error", err)
			continue
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit purchases: %w", err)
	}
	return stored, nil
}

// classify resolves a raw name through the classifier, falling back to
// the raw name and Unknown category on any failure.
func (r *Reconciler) classify(ctx context.Context, rawName string) service.ClassifyResult {
	fallback := service.ClassifyResult{
		CleanName: rawName,
		Category:  model.CategoryUnknown,
	}
	if r.classifier == nil {
		return fallback
	}

	result, err := r.classifier.Classify(ctx, rawName)
	if err != nil {
		r.logger.Warn("classification failed, keeping raw name",
			"raw_name", rawName, "error", err)
		return fallback
	}
	return result
}

func (r *Reconciler) resolvePurchaseDate(extracted, fallback *time.Time) time.Time {
	switch {
	case extracted != nil:
		return *extracted
	case fallback != nil:
		return *fallback
	default:
		return r.now()
	}
}

func deriveSourceID(source extract.Source) string {
	if source.Kind == extract.SourceHTML {
		return model.SourceIDFromDocument([]byte(source.HTML))
	}
	return model.SourceIDFromDocument(source.Image)
}
