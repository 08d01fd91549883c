package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stocksense/pantry/internal/common"
)

// DefaultCallTimeout bounds each external model/OCR call. Local vision
// models can take minutes on large receipts.
const DefaultCallTimeout = 300 * time.Second

// Config holds configuration for the extraction pipeline.
type Config struct {
	Vision      VisionClient
	OCR         OCRReader
	Logger      *slog.Logger
	CallTimeout time.Duration
}

// Pipeline routes receipt sources to their parsing strategy. It holds no
// shared mutable state between calls; the injected clients may be reused
// stateless handles, so extractions for different receipts can run
// concurrently from the caller's side.
type Pipeline struct {
	vision      VisionClient
	ocr         OCRReader
	logger      *slog.Logger
	callTimeout time.Duration
}

// NewPipeline creates an extraction pipeline.
func NewPipeline(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Pipeline{
		vision:      cfg.Vision,
		ocr:         cfg.OCR,
		logger:      logger,
		callTimeout: timeout,
	}
}

// Extract normalizes one receipt source. Individual malformed items never
// fail the document; the error is terminal for this receipt only when the
// whole document yields neither a store identity nor any item, or when
// the external capability call itself fails.
func (p *Pipeline) Extract(ctx context.Context, source Source) (Extraction, error) {
	switch source.Kind {
	case SourceHTML:
		return p.extractHTML(source)
	case SourceImageVision:
		return p.extractImageVision(ctx, source.Image)
	case SourceImageOCR:
		return p.extractImageOCR(ctx, source.Image)
	default:
		return Extraction{}, fmt.Errorf("unsupported source kind: %s", source.Kind)
	}
}

func (p *Pipeline) extractHTML(source Source) (Extraction, error) {
	profile := source.Retailer
	if profile.Name == "" {
		profile = DeliveryProfile()
	}

	items, err := parseHTML(source.HTML, profile)
	if err != nil {
		return Extraction{}, fmt.Errorf("html parse: %w", err)
	}

	// The retailer profile supplies the store identity for email
	// receipts, so an item-less document is "ready with zero items",
	// not a terminal failure.
	result := Extraction{
		StoreName: profile.Name,
		Items:     items,
	}

	p.logger.Debug("html extraction complete",
		"retailer", profile.Name,
		"items", len(items))
	return result, nil
}

func (p *Pipeline) extractImageVision(ctx context.Context, image []byte) (Extraction, error) {
	if p.vision == nil {
		return Extraction{}, fmt.Errorf("%w: vision client", common.ErrMissingConfig)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	text, err := p.vision.ExtractText(callCtx, image)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Extraction{}, fmt.Errorf("%w: %v", common.ErrExtractionTimeout, err)
		}
		return Extraction{}, fmt.Errorf("vision call: %w", err)
	}

	return parseVisionText(text, p.logger)
}

func (p *Pipeline) extractImageOCR(ctx context.Context, image []byte) (Extraction, error) {
	if p.ocr == nil {
		return Extraction{}, fmt.Errorf("%w: ocr reader", common.ErrMissingConfig)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	read, err := p.ocr.Read(callCtx, image)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Extraction{}, fmt.Errorf("%w: %v", common.ErrExtractionTimeout, err)
		}
		return Extraction{}, fmt.Errorf("ocr call: %w", err)
	}

	result := parseOCR(read)
	if result.StoreName == "" && len(result.Items) == 0 {
		return Extraction{}, fmt.Errorf("ocr output: %w", common.ErrUnparseableDocument)
	}

	p.logger.Debug("ocr extraction complete",
		"store", result.StoreName,
		"items", len(result.Items))
	return result, nil
}
