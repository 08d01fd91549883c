package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/stocksense/pantry/internal/common"
	"github.com/stocksense/pantry/internal/model"
)

// visionDoc mirrors the JSON shape the vision prompt demands.
type visionDoc struct {
	StoreName json.RawMessage   `json:"store_name"`
	Date      json.RawMessage   `json:"date"`
	Total     json.RawMessage   `json:"total"`
	Items     []json.RawMessage `json:"items"`
}

type visionItem struct {
	Name       any `json:"name"`
	Quantity   any `json:"quantity"`
	UnitPrice  any `json:"unit_price"`
	TotalPrice any `json:"total_price"`
}

// parseVisionText turns raw vision-model output into an extraction.
// Stages run in order: JSON decode of the outermost object (with
// truncation repair) first, markdown fallback second, terminal failure
// last. Each stage returns its outcome explicitly; no stage panics or
// aborts on a single malformed item.
func parseVisionText(content string, logger *slog.Logger) (Extraction, error) {
	if result, ok := parseVisionJSON(content, logger); ok {
		return result, nil
	}

	if result, ok := parseVisionMarkdown(content); ok {
		logger.Info("parsed via markdown fallback",
			"store", result.StoreName,
			"items", len(result.Items))
		return result, nil
	}

	logger.Error("all vision parsers failed", "head", head(content, 500))
	return Extraction{}, fmt.Errorf("vision response: %w", common.ErrUnparseableDocument)
}

func parseVisionJSON(content string, logger *slog.Logger) (Extraction, bool) {
	candidate := extractJSONObject(content)
	if !strings.Contains(candidate, "{") {
		return Extraction{}, false
	}

	var doc visionDoc
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		logger.Warn("vision JSON decode failed, trying markdown fallback", "error", err)
		return Extraction{}, false
	}

	result := Extraction{
		StoreName: rawString(doc.StoreName),
		Date:      parseReceiptDate(rawString(doc.Date)),
		Total:     rawFloat(doc.Total),
	}

	for _, rawItem := range doc.Items {
		var entry visionItem
		if err := json.Unmarshal(rawItem, &entry); err != nil {
			continue
		}
		name, _ := entry.Name.(string)
		item, err := model.NewLineItem(
			name,
			coerceFloat(entry.Quantity),
			coerceFloat(entry.UnitPrice),
			coerceFloat(entry.TotalPrice),
		)
		if err != nil {
			continue
		}
		result.Items = append(result.Items, item)
	}

	// A decoded but empty document is not a success; give the markdown
	// fallback a chance.
	if result.StoreName == "" && len(result.Items) == 0 {
		logger.Warn("vision JSON parsed but empty, trying markdown fallback")
		return Extraction{}, false
	}

	return result, true
}

// extractJSONObject pulls the outermost {...} span out of model output,
// stripping markdown fences first. Brace depth scanning ignores braces
// inside quoted strings. When the object is truncated, missing closing
// brackets and braces are synthesized as a best-effort repair, not a
// guarantee.
func extractJSONObject(text string) string {
	candidate := strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	start := strings.IndexByte(candidate, '{')
	if start == -1 {
		return candidate
	}

	// Track open containers on a stack so truncated output can be closed
	// in correct nesting order.
	var stack []byte
	inString := false
	escaped := false
	for i := start; i < len(candidate); i++ {
		ch := candidate[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{' || ch == '[':
			stack = append(stack, ch)
		case ch == '}' || ch == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return candidate[start : i+1]
			}
		}
	}

	// Truncated. Close an open string first, then the open containers
	// innermost-out, so the decoder has a chance at the prefix that
	// survived. Best effort: a cut mid-key still fails.
	fragment := strings.TrimRight(candidate[start:], ", \t\n")
	var suffix strings.Builder
	if inString {
		suffix.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			suffix.WriteByte('}')
		} else {
			suffix.WriteByte(']')
		}
	}
	return fragment + suffix.String()
}

var (
	fenceRe      = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	storeLineRe  = regexp.MustCompile(`(?i)\*{0,2}Store\s*Name\*{0,2}:\s*(.+)`)
	dateLineRe   = regexp.MustCompile(`(?i)\*{0,2}Date\*{0,2}:\s*(.+)`)
	totalLineRe  = regexp.MustCompile(`(?i)\*{0,2}Total\*{0,2}:\s*\$?([\d,.]+)`)
	bulletRe     = regexp.MustCompile(`(?m)^[ \t]*[*\-]\s+(.+)`)
	headerLineRe = regexp.MustCompile(`(?i)^\*{0,2}(Items|Total|Date|Store)\*{0,2}\s*:?\s*$`)
	priceAtEndRe = regexp.MustCompile(`[-–,:\s]+\$?([\d,.]+)\s*$`)
	qtySuffixRe  = regexp.MustCompile(`^(.+?):\s*(\d+)\s*$`)
	boldRe       = regexp.MustCompile(`\*{1,2}`)
)

// parseVisionMarkdown recovers receipts from models that ignore the JSON
// instruction and answer with a labeled markdown summary plus a bullet
// list of items.
func parseVisionMarkdown(content string) (Extraction, bool) {
	var result Extraction

	if m := storeLineRe.FindStringSubmatch(content); m != nil {
		result.StoreName = strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*"))
	}
	if m := dateLineRe.FindStringSubmatch(content); m != nil {
		result.Date = parseReceiptDate(strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*")))
	}
	if m := totalLineRe.FindStringSubmatch(content); m != nil {
		if total, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			result.Total = &total
		}
	}

	for _, m := range bulletRe.FindAllStringSubmatch(content, -1) {
		line := strings.TrimSpace(m[1])
		if headerLineRe.MatchString(line) {
			continue
		}

		pm := priceAtEndRe.FindStringSubmatchIndex(line)
		if pm == nil {
			continue
		}
		price, err := strconv.ParseFloat(strings.ReplaceAll(line[pm[2]:pm[3]], ",", ""), 64)
		if err != nil {
			continue
		}

		namePart := strings.TrimSpace(boldRe.ReplaceAllString(line[:pm[0]], ""))
		quantity := 1.0
		if qm := qtySuffixRe.FindStringSubmatch(namePart); qm != nil {
			namePart = strings.TrimSpace(qm[1])
			if q, qerr := strconv.ParseFloat(qm[2], 64); qerr == nil {
				quantity = q
			}
		}
		namePart = strings.TrimSpace(strings.TrimRight(namePart, ":- "))

		item, err := model.NewLineItem(namePart, quantity, price, 0)
		if err != nil {
			continue
		}
		result.Items = append(result.Items, item)
	}

	if result.StoreName == "" && len(result.Items) == 0 {
		return Extraction{}, false
	}
	return result, true
}

// receiptDateFormats covers the date shapes models actually return.
var receiptDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"01-02-2006",
	"02/01/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

func parseReceiptDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, format := range receiptDateFormats {
		if parsed, err := time.Parse(format, s); err == nil {
			return &parsed
		}
	}
	return nil
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

func rawFloat(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, ferr := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(s), "$"), 64); ferr == nil {
			return &f
		}
	}
	return nil
}

// coerceFloat accepts the number, string, and null shapes models emit for
// numeric fields. Invalid values become 0 and are resolved by line item
// defaulting.
func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(val), "$"), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
