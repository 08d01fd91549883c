package llm

import (
	"fmt"
	"strings"

	"github.com/stocksense/pantry/internal/model"
	"github.com/stocksense/pantry/internal/service"
)

// defaultConfidence is used when the model omits or mangles the
// CONFIDENCE line; the rest of the answer is still usable.
const defaultConfidence = 0.5

// parseLabeledResponse extracts a classification from the model's
// labeled-line output:
//
//	CATEGORY: Dairy
//	CLEAN_NAME: Whole Milk
//	CONFIDENCE: 0.92
//
// Lines may arrive in any order, wrapped in markdown bold, or with
// extra chatter around them. A missing CATEGORY line is an error;
// everything else degrades gracefully.
func parseLabeledResponse(rawName, content string) (service.ClassifyResult, error) {
	result := service.ClassifyResult{
		CleanName:  rawName,
		Category:   model.CategoryUnknown,
		Confidence: defaultConfidence,
	}
	sawCategory := false

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "**", ""))
		line = strings.TrimPrefix(line, "- ")

		label, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToUpper(strings.TrimSpace(label)) {
		case "CATEGORY":
			result.Category = model.ParseCategory(value)
			sawCategory = true
		case "CLEAN_NAME":
			if value != "" {
				result.CleanName = value
			}
		case "CONFIDENCE":
			if c, err := parseConfidence(value); err == nil {
				result.Confidence = c
			}
		}
	}

	if !sawCategory {
		return service.ClassifyResult{}, fmt.Errorf("no CATEGORY line in response")
	}
	return result, nil
}

func parseConfidence(value string) (float64, error) {
	value = strings.TrimSuffix(value, "%")
	var c float64
	if _, err := fmt.Sscanf(value, "%f", &c); err != nil {
		return 0, err
	}
	if c > 1 {
		c /= 100
	}
	if c < 0 || c > 1 {
		return 0, fmt.Errorf("confidence %f out of range", c)
	}
	return c, nil
}
