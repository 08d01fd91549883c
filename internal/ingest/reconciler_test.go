package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksense/pantry/internal/common"
	"github.com/stocksense/pantry/internal/extract"
	"github.com/stocksense/pantry/internal/model"
	"github.com/stocksense/pantry/internal/service"
)

// fakeStore is an in-memory service.Storage for reconciler tests. It
// also serves as its own transaction; commit tracking is enough here.
type fakeStore struct {
	products       map[string]*model.Product
	receipts       map[int64]*model.Receipt
	purchases      []model.Purchase
	seen           map[string]bool
	nextID         int64
	commits        int
	rollbacks      int
	txOpen         bool
	failInsertName string
	failUpsertName string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: make(map[string]*model.Product),
		receipts: make(map[int64]*model.Receipt),
		seen:     make(map[string]bool),
	}
}

func (f *fakeStore) UpsertProduct(_ context.Context, rawName string) (*model.Product, error) {
	if f.failUpsertName != "" && rawName == f.failUpsertName {
		return nil, fmt.Errorf("upsert refused")
	}
	if p, ok := f.products[rawName]; ok {
		return p, nil
	}
	f.nextID++
	p := &model.Product{
		ID:       f.nextID,
		RawName:  rawName,
		Category: model.CategoryUnknown,
	}
	f.products[rawName] = p
	return p, nil
}

func (f *fakeStore) GetProductByRawName(_ context.Context, rawName string) (*model.Product, error) {
	if p, ok := f.products[rawName]; ok {
		return p, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeStore) GetUnclassifiedProducts(_ context.Context) ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.products {
		if p.Category == model.CategoryUnknown {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateProductClassification(_ context.Context, productID int64, canonicalName string, category model.Category) error {
	for _, p := range f.products {
		if p.ID == productID {
			p.CanonicalName = canonicalName
			p.Category = category
			p.Profile = category.Profile()
			return nil
		}
	}
	return common.ErrNotFound
}

func (f *fakeStore) SetStockMarker(_ context.Context, productID int64, marker model.StockMarker) error {
	for _, p := range f.products {
		if p.ID == productID {
			p.StockMarker = marker
			return nil
		}
	}
	return common.ErrNotFound
}

func (f *fakeStore) InsertPurchase(_ context.Context, purchase *model.Purchase) error {
	for _, p := range f.products {
		if p.ID == purchase.ProductID && f.failInsertName != "" && p.RawName == f.failInsertName {
			return fmt.Errorf("insert refused")
		}
	}
	f.nextID++
	purchase.ID = f.nextID
	f.purchases = append(f.purchases, *purchase)
	return nil
}

func (f *fakeStore) GetPurchases(_ context.Context, _ service.PurchaseFilter) ([]model.Purchase, error) {
	return f.purchases, nil
}

func (f *fakeStore) GetProductHistories(_ context.Context) ([]service.ProductHistory, error) {
	return nil, nil
}

func (f *fakeStore) SourceSeen(_ context.Context, sourceID string) (bool, error) {
	return f.seen[sourceID], nil
}

func (f *fakeStore) CreateReceipt(_ context.Context, receipt *model.Receipt) (int64, error) {
	if f.seen[receipt.SourceID] {
		return 0, common.ErrDuplicateSource
	}
	f.nextID++
	receipt.ID = f.nextID
	stored := *receipt
	f.receipts[receipt.ID] = &stored
	f.seen[receipt.SourceID] = true
	return receipt.ID, nil
}

func (f *fakeStore) UpdateReceipt(_ context.Context, receipt *model.Receipt) error {
	if _, ok := f.receipts[receipt.ID]; !ok {
		return common.ErrNotFound
	}
	stored := *receipt
	f.receipts[receipt.ID] = &stored
	return nil
}

func (f *fakeStore) ListReceipts(_ context.Context, _ int) ([]model.Receipt, error) {
	var out []model.Receipt
	for _, r := range f.receipts {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) Migrate(_ context.Context) error { return nil }

func (f *fakeStore) BeginTx(_ context.Context) (service.Transaction, error) {
	f.txOpen = true
	return &fakeTx{fakeStore: f}, nil
}

func (f *fakeStore) Close() error { return nil }

type fakeTx struct {
	*fakeStore
	done bool
}

func (t *fakeTx) Commit() error {
	t.done = true
	t.commits++
	t.txOpen = false
	return nil
}

func (t *fakeTx) Rollback() error {
	if !t.done {
		t.rollbacks++
		t.txOpen = false
	}
	return nil
}

type mapClassifier struct {
	results map[string]service.ClassifyResult
	err     error
}

func (m *mapClassifier) Classify(_ context.Context, rawName string) (service.ClassifyResult, error) {
	if m.err != nil {
		return service.ClassifyResult{}, m.err
	}
	if r, ok := m.results[rawName]; ok {
		return r, nil
	}
	return service.ClassifyResult{}, fmt.Errorf("%w: no answer", common.ErrClassificationFailed)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const groceryEmail = `
<html><body>
<div class="item-name">Whole Milk</div>
<div class="item-price"><div class="total">$4.29</div></div>
<div class="item-name">Bananas<small class="muted">2 x $0.79</small></div>
<div class="item-price"><div class="total">$0.79</div></div>
</body></html>`

func htmlDoc(html string) Document {
	return Document{Source: extract.Source{
		Kind:     extract.SourceHTML,
		Retailer: extract.DeliveryProfile(),
		HTML:     html,
	}}
}

func TestReconciler_IngestHTMLReceipt(t *testing.T) {
	store := newFakeStore()
	classifier := &mapClassifier{results: map[string]service.ClassifyResult{
		"Whole Milk": {CleanName: "Whole Milk", Category: model.CategoryDairy, Confidence: 0.95},
		"Bananas":    {CleanName: "Bananas", Category: model.CategoryProduce, Confidence: 0.97},
	}}
	fallback := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	reconciler := NewReconciler(store, extract.NewPipeline(extract.Config{Logger: testLogger()}), testLogger(),
		WithClassifier(classifier))

	doc := htmlDoc(groceryEmail)
	doc.FallbackDate = &fallback

	result, err := reconciler.Ingest(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, model.ReceiptReady, result.Status)
	assert.Equal(t, 2, result.ItemsFound)
	assert.Equal(t, 2, result.ItemsStored)
	assert.False(t, result.Duplicate)

	require.Len(t, store.purchases, 2)
	assert.Equal(t, fallback, store.purchases[0].PurchaseDate)
	assert.Equal(t, result.ReceiptID, store.purchases[0].ReceiptID)

	milk := store.products["Whole Milk"]
	require.NotNil(t, milk)
	assert.Equal(t, model.CategoryDairy, milk.Category)

	receipt := store.receipts[result.ReceiptID]
	require.NotNil(t, receipt)
	assert.Equal(t, model.ReceiptReady, receipt.Status)
	assert.Equal(t, "delivery", receipt.StoreName)
	assert.Equal(t, 1, store.commits)
}

func TestReconciler_DuplicateSourceSkipped(t *testing.T) {
	store := newFakeStore()
	reconciler := NewReconciler(store, extract.NewPipeline(extract.Config{Logger: testLogger()}), testLogger())

	first, err := reconciler.Ingest(context.Background(), htmlDoc(groceryEmail))
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := reconciler.Ingest(context.Background(), htmlDoc(groceryEmail))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Len(t, store.purchases, 2)
	assert.Len(t, store.receipts, 1)
}

func TestReconciler_ExtractionFailureMarksReceiptFailed(t *testing.T) {
	store := newFakeStore()
	reconciler := NewReconciler(store, extract.NewPipeline(extract.Config{Logger: testLogger()}), testLogger())

	// No OCR reader configured, so the image path fails terminally.
	result, err := reconciler.Ingest(context.Background(), Document{
		Source:   extract.Source{Kind: extract.SourceImageOCR, Image: []byte("scan")},
		SourceID: "scan-1",
	})
	require.Error(t, err)
	assert.Equal(t, model.ReceiptFailed, result.Status)

	receipt := store.receipts[result.ReceiptID]
	require.NotNil(t, receipt)
	assert.Equal(t, model.ReceiptFailed, receipt.Status)
	assert.Empty(t, store.purchases)
}

func TestReconciler_ClassifierFailureKeepsRawName(t *testing.T) {
	store := newFakeStore()
	classifier := &mapClassifier{err: fmt.Errorf("%w: provider down", common.ErrClassificationFailed)}
	reconciler := NewReconciler(store, extract.NewPipeline(extract.Config{Logger: testLogger()}), testLogger(),
		WithClassifier(classifier))

	result, err := reconciler.Ingest(context.Background(), htmlDoc(groceryEmail))
	require.NoError(t, err)
	assert.Equal(t, 2, result.ItemsStored)

	milk := store.products["Whole Milk"]
	require.NotNil(t, milk)
	assert.Equal(t, model.CategoryUnknown, milk.Category)
	assert.Empty(t, milk.CanonicalName)
}

func TestReconciler_NoClassifierStillStores(t *testing.T) {
	store := newFakeStore()
	reconciler := NewReconciler(store, extract.NewPipeline(extract.Config{Logger: testLogger()}), testLogger())

	result, err := reconciler.Ingest(context.Background(), htmlDoc(groceryEmail))
	require.NoError(t, err)
	assert.Equal(t, 2, result.ItemsStored)
}

func TestReconciler_ItemFailureSkippedNotFatal(t *testing.T) {
	store := newFakeStore()
	store.failUpsertName = "Whole Milk"
	reconciler := NewReconciler(store, extract.NewPipeline(extract.Config{Logger: testLogger()}), testLogger())

	result, err := reconciler.Ingest(context.Background(), htmlDoc(groceryEmail))
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptReady, result.Status)
	assert.Equal(t, 1, result.ItemsStored)
	assert.Equal(t, 1, result.ItemsSkipped)
	require.Len(t, store.purchases, 1)
}

func TestReconciler_InsertFailureSkippedNotFatal(t *testing.T) {
	store := newFakeStore()
	store.failInsertName = "Bananas"
	reconciler := NewReconciler(store, extract.NewPipeline(extract.Config{Logger: testLogger()}), testLogger())

	result, err := reconciler.Ingest(context.Background(), htmlDoc(groceryEmail))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsStored)
	assert.Equal(t, 1, result.ItemsSkipped)
}

func TestReconciler_ZeroItemReceiptIsReady(t *testing.T) {
	store := newFakeStore()
	reconciler := NewReconciler(store, extract.NewPipeline(extract.Config{Logger: testLogger()}), testLogger())

	result, err := reconciler.Ingest(context.Background(), htmlDoc("<html><body><p>Thanks!</p></body></html>"))
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptReady, result.Status)
	assert.Zero(t, result.ItemsFound)
	assert.Empty(t, store.purchases)
	// No transaction is opened for an empty extraction.
	assert.Zero(t, store.commits)
}

// txAwareClassifier records whether the store had a write transaction
// open at the moment of each classification call.
type txAwareClassifier struct {
	store         *fakeStore
	calls         int
	callsInsideTx int
}

func (c *txAwareClassifier) Classify(_ context.Context, rawName string) (service.ClassifyResult, error) {
	c.calls++
	if c.store.txOpen {
		c.callsInsideTx++
	}
	return service.ClassifyResult{CleanName: rawName, Category: model.CategoryPantry, Confidence: 0.9}, nil
}

func TestReconciler_ClassificationRunsOutsideWriteTx(t *testing.T) {
	store := newFakeStore()
	classifier := &txAwareClassifier{store: store}
	reconciler := NewReconciler(store, extract.NewPipeline(extract.Config{Logger: testLogger()}), testLogger(),
		WithClassifier(classifier))

	result, err := reconciler.Ingest(context.Background(), htmlDoc(groceryEmail))
	require.NoError(t, err)
	require.Equal(t, 2, result.ItemsStored)

	assert.Equal(t, 2, classifier.calls)
	assert.Zero(t, classifier.callsInsideTx)
	assert.Equal(t, 1, store.commits)
}

func TestReconciler_DerivedSourceIDIsStable(t *testing.T) {
	a := deriveSourceID(extract.Source{Kind: extract.SourceHTML, HTML: groceryEmail})
	b := deriveSourceID(extract.Source{Kind: extract.SourceHTML, HTML: groceryEmail})
	c := deriveSourceID(extract.Source{Kind: extract.SourceHTML, HTML: strings.ToUpper(groceryEmail)})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestReconciler_ExtractedDateWinsOverFallback(t *testing.T) {
	store := newFakeStore()
	vision := staticVision(`{"store_name":"Acme","date":"2026-02-01","items":[{"name":"Milk","quantity":1,"unit_price":4.29}]}`)
	pipeline := extract.NewPipeline(extract.Config{Vision: vision, Logger: testLogger()})
	reconciler := NewReconciler(store, pipeline, testLogger())

	fallback := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	result, err := reconciler.Ingest(context.Background(), Document{
		Source:       extract.Source{Kind: extract.SourceImageVision, Image: []byte("photo")},
		FallbackDate: &fallback,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.ItemsStored)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), store.purchases[0].PurchaseDate)

	receipt := store.receipts[result.ReceiptID]
	require.NotNil(t, receipt)
	assert.Equal(t, "Acme", receipt.StoreName)
	require.NotNil(t, receipt.ReceiptDate)
}

type staticVision string

func (s staticVision) ExtractText(_ context.Context, _ []byte) (string, error) {
	return string(s), nil
}
