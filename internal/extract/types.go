// Package extract normalizes heterogeneous receipt sources into line
// items. Each source kind gets its own strategy; all of them share the
// same output validation and the same failure semantics: a malformed line
// is skipped, a document that yields neither a store identity nor any
// item is a terminal extraction failure.
package extract

import (
	"context"
	"time"

	"github.com/stocksense/pantry/internal/model"
)

// SourceKind routes a document to its parsing strategy. Routing is by
// origin, never by content sniffing.
type SourceKind string

// Source kind constants.
const (
	SourceHTML        SourceKind = "html"
	SourceImageVision SourceKind = "image-vision"
	SourceImageOCR    SourceKind = "image-ocr"
)

// Source is one receipt document awaiting extraction.
type Source struct {
	Kind     SourceKind
	Retailer RetailerProfile // HTML sources only
	HTML     string
	Image    []byte
}

// Extraction is the pipeline's normalized output for one document.
// Confidence is only populated by the traditional OCR path, as the mean
// engine confidence across accepted product rows.
type Extraction struct {
	Date       *time.Time
	Total      *float64
	StoreName  string
	Items      []model.LineItem
	Confidence float64
}

// VisionClient is the vision-capable model capability. It returns the
// model's raw text; the pipeline owns all parsing of that text.
type VisionClient interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Fragment is one positioned text fragment from a traditional OCR engine.
type Fragment struct {
	Text       string
	X          int
	Y          int
	Width      int
	Height     int
	Confidence float64
}

// OCRResult is a full OCR read of one image. Width and Height describe
// the scanned image, which the geometric reconstruction needs to locate
// the price column.
type OCRResult struct {
	Fragments []Fragment
	Width     int
	Height    int
}

// OCRReader is the traditional OCR capability.
type OCRReader interface {
	Read(ctx context.Context, image []byte) (OCRResult, error)
}
