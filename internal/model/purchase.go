package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Purchase is one observed buying event for a product. Purchases are
// immutable once created; deletion only happens via cascading receipt
// deletion, which is outside this core.
type Purchase struct {
	PurchaseDate time.Time
	SourceID     string
	ID           int64
	ProductID    int64
	ReceiptID    int64 // 0 when the purchase has no receipt back-reference
	Quantity     float64
	UnitPrice    float64
	Confidence   float64 // OCR confidence, 0 when not applicable
}

// SourceIDFromDocument derives a stable dedup key from a source document's
// raw bytes. One receipt may legitimately list an item twice, but a source
// document must never be reprocessed.
func SourceIDFromDocument(doc []byte) string {
	hash := sha256.Sum256(doc)
	return fmt.Sprintf("%x", hash[:8])
}

// SourceIDFromSubject derives a dedup key for email-originated receipts
// where only subject and date identify the document.
func SourceIDFromSubject(subject, date string) string {
	hash := sha256.Sum256([]byte(subject + "|" + date))
	return fmt.Sprintf("%x", hash[:8])
}
