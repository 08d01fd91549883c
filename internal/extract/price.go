package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// ocrPriceCeiling is the grocery-item sanity ceiling for OCR-recovered
// prices. Readings above it are assumed to be a misread or a captured
// total.
const ocrPriceCeiling = 200.0

var ocrPriceRe = regexp.MustCompile(`[Ss$]?\d*\.?\d+`)

// parseOCRPrice recovers a price from OCR'd text, tolerating the common
// confusions where "$" is misread as "5", "8", or "S". Candidate readings
// are tried in order and the first one under the sanity ceiling wins:
// "54.99" is preferred as $4.99 over $54.99 only when the direct reading
// is implausible.
func parseOCRPrice(text string, ceiling float64) (float64, bool) {
	if ceiling <= 0 {
		ceiling = ocrPriceCeiling
	}

	match := ocrPriceRe.FindString(strings.ReplaceAll(text, ",", ""))
	if match == "" {
		return 0, false
	}

	var candidates []float64
	cleaned := strings.TrimLeft(match, "Ss$")
	if direct, err := strconv.ParseFloat(cleaned, 64); err == nil {
		candidates = append(candidates, direct)
	}
	// A leading 5 or 8 on an implausible reading is likely a misread
	// dollar sign.
	if len(cleaned) > 1 && (cleaned[0] == '5' || cleaned[0] == '8') {
		if stripped, err := strconv.ParseFloat(cleaned[1:], 64); err == nil {
			candidates = append(candidates, stripped)
		}
	}

	for _, candidate := range candidates {
		if candidate > 0 && candidate <= ceiling {
			return candidate, true
		}
	}
	return 0, false
}
