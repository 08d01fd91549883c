// Package shelflife holds the category-indexed threshold tables shared by
// the velocity engine and the meal-inventory estimator. The two tunings
// are deliberately distinct: reorder is aggressive because shopping
// suggestions favor false positives over missed restocks, cooking is
// lenient because failing to suggest a usable ingredient is worse than
// over-suggesting.
package shelflife

import "github.com/stocksense/pantry/internal/model"

// Policy maps categories to an interval multiplier and an absolute
// default shelf life for products with insufficient history. It is a pure
// configuration table.
type Policy struct {
	multipliers      map[model.Category]float64
	defaultLives     map[model.Category]int
	fallbackMult     float64
	fallbackLifeDays int
	name             string
}

// Name identifies the tuning ("reorder" or "cooking").
func (p Policy) Name() string {
	return p.name
}

// Multiplier returns the category's threshold multiplier, applied to a
// product's average inter-purchase interval.
func (p Policy) Multiplier(category model.Category) float64 {
	if m, ok := p.multipliers[category]; ok {
		return m
	}
	return p.fallbackMult
}

// DefaultShelfLifeDays returns the category's absolute shelf life in
// days, used when a product has fewer than three purchases.
func (p Policy) DefaultShelfLifeDays(category model.Category) int {
	if d, ok := p.defaultLives[category]; ok {
		return d
	}
	return p.fallbackLifeDays
}

// EffectiveThresholdDays applies the tuning to a product's velocity
// statistics: velocity-based when the average interval is known,
// category default otherwise.
func (p Policy) EffectiveThresholdDays(category model.Category, avgIntervalDays *float64) float64 {
	if avgIntervalDays != nil {
		return *avgIntervalDays * p.Multiplier(category)
	}
	return float64(p.DefaultShelfLifeDays(category))
}

// Reorder returns the aggressive tuning used for shopping suggestions.
// Perishables trip "low" before the average cycle completes, shelf-stable
// goods after it.
func Reorder() Policy {
	return Policy{
		name: "reorder",
		multipliers: map[model.Category]float64{
			model.CategoryProduce:   0.8,
			model.CategoryDairy:     0.9,
			model.CategoryMeat:      0.85,
			model.CategoryFrozen:    1.1,
			model.CategoryPantry:    1.2,
			model.CategoryHousehold: 1.5,
		},
		defaultLives: map[model.Category]int{
			model.CategoryProduce:   5,
			model.CategoryDairy:     7,
			model.CategoryMeat:      5,
			model.CategoryFrozen:    30,
			model.CategoryPantry:    45,
			model.CategoryHousehold: 60,
		},
		fallbackMult:     1.0,
		fallbackLifeDays: 14,
	}
}

// Cooking returns the lenient tuning used for meal planning.
func Cooking() Policy {
	return Policy{
		name: "cooking",
		multipliers: map[model.Category]float64{
			model.CategoryProduce:   1.2,
			model.CategoryDairy:     1.5,
			model.CategoryMeat:      1.5,
			model.CategoryFrozen:    2.0,
			model.CategoryPantry:    2.0,
			model.CategoryHousehold: 3.0,
		},
		defaultLives: map[model.Category]int{
			model.CategoryProduce:   21,
			model.CategoryDairy:     45,
			model.CategoryMeat:      30,
			model.CategoryFrozen:    180,
			model.CategoryPantry:    365,
			model.CategoryHousehold: 365,
		},
		fallbackMult:     1.5,
		fallbackLifeDays: 60,
	}
}
