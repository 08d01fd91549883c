// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"
	"time"
)

// Category is the fixed grocery category enumeration.
type Category string

// Category constants.
const (
	CategoryProduce   Category = "Produce"
	CategoryDairy     Category = "Dairy"
	CategoryMeat      Category = "Meat"
	CategoryFrozen    Category = "Frozen"
	CategoryPantry    Category = "Pantry"
	CategoryHousehold Category = "Household"
	CategoryUnknown   Category = "Unknown"
)

// Categories lists every known category in display order.
func Categories() []Category {
	return []Category{
		CategoryProduce,
		CategoryDairy,
		CategoryMeat,
		CategoryFrozen,
		CategoryPantry,
		CategoryHousehold,
	}
}

// ParseCategory maps free-form text onto the category enumeration.
// Unrecognized values become CategoryUnknown rather than an error since
// category labels frequently come back from an LLM.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "produce":
		return CategoryProduce
	case "dairy":
		return CategoryDairy
	case "meat":
		return CategoryMeat
	case "frozen":
		return CategoryFrozen
	case "pantry":
		return CategoryPantry
	case "household":
		return CategoryHousehold
	default:
		return CategoryUnknown
	}
}

// ConsumptionProfile is a coarse storage-behavior tag derived from category.
type ConsumptionProfile string

// Consumption profile constants.
const (
	ProfilePerishable ConsumptionProfile = "perishable"
	ProfileFrozen     ConsumptionProfile = "frozen"
	ProfilePantry     ConsumptionProfile = "pantry"
	ProfileHousehold  ConsumptionProfile = "household"
)

// Profile derives the consumption profile for a category.
func (c Category) Profile() ConsumptionProfile {
	switch c {
	case CategoryProduce, CategoryDairy, CategoryMeat:
		return ProfilePerishable
	case CategoryFrozen:
		return ProfileFrozen
	case CategoryHousehold:
		return ProfileHousehold
	default:
		return ProfilePantry
	}
}

// StockMarker is an explicit inventory override recorded on a product.
// MarkerOut takes precedence over any velocity-computed status.
type StockMarker string

// Stock marker constants.
const (
	MarkerInStock StockMarker = "IN_STOCK"
	MarkerOut     StockMarker = "OUT"
)

// Product is the identity for a grocery good. RawName is the natural key
// for deduplication across ingestion sources; CanonicalName defaults to
// RawName until classification runs.
type Product struct {
	CreatedAt     time.Time
	RawName       string
	CanonicalName string
	Category      Category
	Profile       ConsumptionProfile
	StockMarker   StockMarker
	ID            int64
}

// DisplayName returns the canonical name when classified, raw name otherwise.
func (p *Product) DisplayName() string {
	if p.CanonicalName != "" {
		return p.CanonicalName
	}
	return p.RawName
}
