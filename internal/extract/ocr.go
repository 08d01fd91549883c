package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/stocksense/pantry/internal/model"
)

// Geometric reconstruction parameters. Fragments within rowYTolerance
// pixels vertically belong to the same printed row; fragments starting
// right of priceColumnRatio of the image width sit in the price column.
const (
	rowYTolerance     = 14
	priceColumnRatio  = 0.85
	quantityLookahead = 3
)

var (
	quantityLabelRe = regexp.MustCompile(`(?i)(?:quantity|qty)[:\s]+(\d+)`)
	loneDigitRe     = regexp.MustCompile(`^\d$`)
)

type ocrRow struct {
	nameParts  []string
	priceTexts []string
	y          int
	confidence float64
}

// reconstructRows groups OCR fragments into printed rows by Y proximity,
// splitting each row into name fragments and price-column fragments.
// Rows come back top-to-bottom with fragments left-to-right.
func reconstructRows(result OCRResult) []ocrRow {
	fragments := make([]Fragment, 0, len(result.Fragments))
	for _, f := range result.Fragments {
		if strings.TrimSpace(f.Text) != "" {
			fragments = append(fragments, f)
		}
	}
	sort.Slice(fragments, func(i, j int) bool {
		if fragments[i].Y != fragments[j].Y {
			return fragments[i].Y < fragments[j].Y
		}
		return fragments[i].X < fragments[j].X
	})

	var grouped [][]Fragment
	for _, f := range fragments {
		if len(grouped) == 0 || f.Y-grouped[len(grouped)-1][0].Y > rowYTolerance {
			grouped = append(grouped, []Fragment{f})
			continue
		}
		grouped[len(grouped)-1] = append(grouped[len(grouped)-1], f)
	}

	priceColumnX := int(float64(result.Width) * priceColumnRatio)

	rows := make([]ocrRow, 0, len(grouped))
	for _, group := range grouped {
		sort.Slice(group, func(i, j int) bool { return group[i].X < group[j].X })

		row := ocrRow{y: group[0].Y}
		for _, f := range group {
			if f.X > priceColumnX {
				row.priceTexts = append(row.priceTexts, f.Text)
			} else {
				row.nameParts = append(row.nameParts, strings.TrimSpace(f.Text))
			}
			row.confidence += f.Confidence
		}
		row.confidence /= float64(len(group))
		rows = append(rows, row)
	}
	return rows
}

func (r ocrRow) name() string {
	return strings.TrimSpace(strings.Join(r.nameParts, " "))
}

// parseOCR runs geometric line reconstruction over a traditional OCR
// read. A row is a product line only when it carries a price-column
// fragment; quantity comes from a label or lone digit in the next few
// rows, defaulting to 1.
func parseOCR(result OCRResult) Extraction {
	rows := reconstructRows(result)

	var extraction Extraction
	for i, row := range rows {
		name := row.name()

		if len(row.priceTexts) == 0 {
			// The topmost text row on a receipt is almost always the
			// store header.
			if extraction.StoreName == "" && name != "" && !matchesSkipKeyword(name) {
				extraction.StoreName = name
			}
			continue
		}

		if name == "" || matchesSkipKeyword(name) {
			continue
		}

		total, ok := parseOCRPrice(row.priceTexts[len(row.priceTexts)-1], ocrPriceCeiling)
		if !ok {
			continue
		}

		quantity := lookAheadQuantity(rows, i)
		item, err := model.NewLineItem(name, quantity, model.Round2(total/quantity), total)
		if err != nil {
			continue
		}
		extraction.Items = append(extraction.Items, item)
		extraction.Confidence += row.confidence
	}

	if len(extraction.Items) > 0 {
		extraction.Confidence /= float64(len(extraction.Items))
	}
	return extraction
}

// lookAheadQuantity scans the rows below a product line for a
// "Quantity: N" label or a lone single-digit token. The scan stops at the
// next priced row since that starts a new product.
func lookAheadQuantity(rows []ocrRow, index int) float64 {
	for offset := 1; offset <= quantityLookahead && index+offset < len(rows); offset++ {
		next := rows[index+offset]
		if len(next.priceTexts) > 0 {
			break
		}
		text := next.name()
		if m := quantityLabelRe.FindStringSubmatch(text); m != nil {
			if q, err := strconv.Atoi(m[1]); err == nil && q > 0 {
				return float64(q)
			}
		}
		if loneDigitRe.MatchString(text) {
			if q, err := strconv.Atoi(text); err == nil && q > 0 {
				return float64(q)
			}
		}
	}
	return 1
}
