package model

import "time"

// StockStatus is the reorder signal computed by the velocity engine.
type StockStatus string

// Stock status constants. Calibrating means a recently-bought product with
// too little history to predict from; it is never "low".
const (
	StatusStocked     StockStatus = "stocked"
	StatusLow         StockStatus = "low"
	StatusOut         StockStatus = "out"
	StatusCalibrating StockStatus = "calibrating"
)

// VelocitySample is a per-product purchase aggregate, recomputed on demand
// from the ledger. AvgIntervalDays is nil when BuyCount < 3.
type VelocitySample struct {
	FirstPurchase   time.Time
	LastPurchase    time.Time
	AvgIntervalDays *float64
	ProductID       int64
	BuyCount        int
	DaysSinceLast   int
}

// ReorderStatus is the velocity engine's output for one product.
type ReorderStatus struct {
	PredictedOutDate *time.Time
	AvgIntervalDays  *float64
	Name             string
	Category         Category
	Status           StockStatus
	ProductID        int64
	DaysSinceLast    int
	BuyCount         int
}
