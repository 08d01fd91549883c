// Package velocity turns irregular purchase timestamps into reorder
// signals. The engine is a pure function of a ledger snapshot: it holds no
// state beyond its policy and clock, and it never returns an error.
// Missing history is an expected case that degrades to stocked/nil
// predictions, not a failure.
package velocity

import (
	"math"
	"sort"
	"time"

	"github.com/stocksense/pantry/internal/model"
	"github.com/stocksense/pantry/internal/service"
	"github.com/stocksense/pantry/internal/shelflife"
)

// calibratingWindowDays bounds how recently a low-history product must
// have been bought to be considered "calibrating" rather than judged
// against the category default shelf life.
const calibratingWindowDays = 14

// Engine computes per-product reorder status from purchase history.
type Engine struct {
	now    func() time.Time
	policy shelflife.Policy
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithPolicy substitutes the shelf-life tuning. The default is the
// reorder tuning.
func WithPolicy(policy shelflife.Policy) Option {
	return func(e *Engine) {
		e.policy = policy
	}
}

// NewEngine creates a velocity engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:    time.Now,
		policy: shelflife.Reorder(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sample aggregates a product's purchase dates into a velocity sample.
// Dates need not arrive sorted; the ledger usually provides them ascending
// but ingestion order is not guaranteed for backfilled receipts. Returns
// nil when the product has no purchases at all.
func (e *Engine) Sample(productID int64, dates []time.Time) *model.VelocitySample {
	if len(dates) == 0 {
		return nil
	}

	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	first := sorted[0]
	last := sorted[len(sorted)-1]

	sample := &model.VelocitySample{
		ProductID:     productID,
		BuyCount:      len(sorted),
		FirstPurchase: first,
		LastPurchase:  last,
		DaysSinceLast: daysBetween(last, e.now()),
	}

	if sample.BuyCount >= 3 {
		span := daysBetween(first, last)
		avg := round1(float64(span) / float64(sample.BuyCount-1))
		sample.AvgIntervalDays = &avg
	}

	return sample
}

// Status computes the reorder status for one product. The explicit OUT
// marker always wins over the computed value.
func (e *Engine) Status(product model.Product, dates []time.Time) model.ReorderStatus {
	status := model.ReorderStatus{
		ProductID: product.ID,
		Name:      product.DisplayName(),
		Category:  product.Category,
		Status:    model.StatusStocked,
	}

	sample := e.Sample(product.ID, dates)
	if sample == nil {
		if product.StockMarker == model.MarkerOut {
			status.Status = model.StatusOut
		}
		return status
	}

	status.BuyCount = sample.BuyCount
	status.DaysSinceLast = sample.DaysSinceLast
	status.AvgIntervalDays = sample.AvgIntervalDays

	switch {
	case sample.AvgIntervalDays != nil:
		threshold := *sample.AvgIntervalDays * e.policy.Multiplier(product.Category)
		if float64(sample.DaysSinceLast) > threshold {
			status.Status = model.StatusLow
		}
		predicted := sample.LastPurchase.AddDate(0, 0, int(threshold))
		status.PredictedOutDate = &predicted

	case sample.DaysSinceLast <= calibratingWindowDays:
		// Too little history to predict from, but bought recently.
		status.Status = model.StatusCalibrating

	default:
		// The category default shelf life acts as a lenient floor so a
		// single early purchase cannot flag "low" a day later.
		if sample.DaysSinceLast > e.policy.DefaultShelfLifeDays(product.Category) {
			status.Status = model.StatusLow
		}
	}

	if product.StockMarker == model.MarkerOut {
		status.Status = model.StatusOut
	}

	return status
}

// Compute produces reorder statuses for every product in the snapshot,
// ordered by category then name for deterministic output.
func (e *Engine) Compute(snapshot []service.ProductHistory) []model.ReorderStatus {
	statuses := make([]model.ReorderStatus, 0, len(snapshot))
	for _, history := range snapshot {
		statuses = append(statuses, e.Status(history.Product, history.Dates))
	}

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Category != statuses[j].Category {
			return statuses[i].Category < statuses[j].Category
		}
		return statuses[i].Name < statuses[j].Name
	})

	return statuses
}

// ComputeLowOrOut filters Compute down to products needing attention.
func (e *Engine) ComputeLowOrOut(snapshot []service.ProductHistory) []model.ReorderStatus {
	var needed []model.ReorderStatus
	for _, status := range e.Compute(snapshot) {
		if status.Status == model.StatusLow || status.Status == model.StatusOut {
			needed = append(needed, status)
		}
	}
	return needed
}

// daysBetween counts whole days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
