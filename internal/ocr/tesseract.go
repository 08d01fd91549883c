// Package ocr adapts a local tesseract binary into the positioned
// text-fragment reads the extraction pipeline consumes.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/stocksense/pantry/internal/extract"
)

// DefaultBinary is the tesseract executable looked up on PATH when no
// explicit path is configured.
const DefaultBinary = "tesseract"

// TesseractReader runs tesseract in TSV mode and converts its word
// boxes into fragments.
type TesseractReader struct {
	binary string
}

// NewTesseractReader creates a reader. An empty binary path falls back
// to looking up "tesseract" on PATH.
func NewTesseractReader(binary string) *TesseractReader {
	if binary == "" {
		binary = DefaultBinary
	}
	return &TesseractReader{binary: binary}
}

// Read OCRs one image. The image is written to a temp file because
// tesseract's stdin handling varies across builds.
func (r *TesseractReader) Read(ctx context.Context, image []byte) (extract.OCRResult, error) {
	if len(image) == 0 {
		return extract.OCRResult{}, fmt.Errorf("empty image")
	}

	dir, err := os.MkdirTemp("", "pantry-ocr-")
	if err != nil {
		return extract.OCRResult{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	imagePath := filepath.Join(dir, "scan")
	if err := os.WriteFile(imagePath, image, 0600); err != nil {
		return extract.OCRResult{}, fmt.Errorf("failed to write image: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.binary, imagePath, "stdout", "tsv")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return extract.OCRResult{}, ctx.Err()
		}
		return extract.OCRResult{}, fmt.Errorf("tesseract failed: %w: %s", err, stderr.String())
	}

	return parseTSV(stdout.String())
}

// TSV column indexes, per tesseract's fixed 12-column layout.
const (
	colLevel  = 0
	colLeft   = 6
	colTop    = 7
	colWidth  = 8
	colHeight = 9
	colConf   = 10
	colText   = 11
	colCount  = 12
)

// parseTSV converts tesseract TSV output into an OCR result. Level 1
// rows describe the page, level 5 rows are recognized words; everything
// else is grouping structure we do not need.
func parseTSV(output string) (extract.OCRResult, error) {
	var result extract.OCRResult

	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			// Header row.
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < colCount {
			continue
		}

		level, err := strconv.Atoi(fields[colLevel])
		if err != nil {
			continue
		}

		switch level {
		case 1:
			result.Width, _ = strconv.Atoi(fields[colWidth])
			result.Height, _ = strconv.Atoi(fields[colHeight])
		case 5:
			text := strings.TrimSpace(fields[colText])
			if text == "" {
				continue
			}
			conf, err := strconv.ParseFloat(fields[colConf], 64)
			if err != nil || conf < 0 {
				// Confidence -1 marks non-text rows.
				continue
			}
			x, _ := strconv.Atoi(fields[colLeft])
			y, _ := strconv.Atoi(fields[colTop])
			w, _ := strconv.Atoi(fields[colWidth])
			h, _ := strconv.Atoi(fields[colHeight])
			result.Fragments = append(result.Fragments, extract.Fragment{
				Text:       text,
				X:          x,
				Y:          y,
				Width:      w,
				Height:     h,
				Confidence: conf / 100,
			})
		}
	}

	if result.Width == 0 {
		return result, fmt.Errorf("no page metadata in tesseract output")
	}
	return result, nil
}
