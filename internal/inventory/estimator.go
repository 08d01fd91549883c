// Package inventory estimates what is likely still on hand for cooking.
// It consumes the same velocity statistics as the reorder engine but
// applies the lenient cooking tuning of the shelf-life policy.
package inventory

import (
	"sort"
	"time"

	"github.com/stocksense/pantry/internal/model"
	"github.com/stocksense/pantry/internal/service"
	"github.com/stocksense/pantry/internal/shelflife"
	"github.com/stocksense/pantry/internal/velocity"
)

// OtherBucket collects products with an unrecognized or missing category.
const OtherBucket = "Other"

// Estimator answers "is this item still usable for cooking". It produces
// the inventory snapshot handed to external meal-suggestion callers; it
// never calls a model itself.
type Estimator struct {
	engine *velocity.Engine
	policy shelflife.Policy
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) {
		e.engine = velocity.NewEngine(velocity.WithClock(now), velocity.WithPolicy(e.policy))
	}
}

// NewEstimator creates an estimator using the cooking tuning.
func NewEstimator(opts ...Option) *Estimator {
	policy := shelflife.Cooking()
	e := &Estimator{
		policy: policy,
		engine: velocity.NewEngine(velocity.WithPolicy(policy)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Buckets lists the fixed category bucket names in output order.
func Buckets() []string {
	buckets := make([]string, 0, len(model.Categories())+1)
	for _, c := range model.Categories() {
		buckets = append(buckets, string(c))
	}
	return append(buckets, OtherBucket)
}

// Estimate returns products likely still on hand, grouped by category
// bucket. A product is included iff it has at least one purchase and its
// days-since-last does not exceed the cooking-tuned effective shelf life.
// Bucket contents are name-sorted for determinism.
func (e *Estimator) Estimate(snapshot []service.ProductHistory) map[string][]string {
	buckets := make(map[string][]string, len(model.Categories())+1)

	for _, history := range snapshot {
		sample := e.engine.Sample(history.Product.ID, history.Dates)
		if sample == nil {
			continue
		}

		threshold := e.policy.EffectiveThresholdDays(history.Product.Category, sample.AvgIntervalDays)
		if float64(sample.DaysSinceLast) > threshold {
			continue
		}

		bucket := string(history.Product.Category)
		if history.Product.Category == model.CategoryUnknown || history.Product.Category == "" {
			bucket = OtherBucket
		}
		buckets[bucket] = append(buckets[bucket], history.Product.DisplayName())
	}

	for _, names := range buckets {
		sort.Strings(names)
	}

	return buckets
}

// FrequentProducts returns the top-limit product names by purchase count
// across all history, most frequent first. Ties break by name so the
// output is stable. This is context for the external meal-suggestion
// caller, not interpreted here.
func (e *Estimator) FrequentProducts(snapshot []service.ProductHistory, limit int) []string {
	type freq struct {
		name  string
		count int
	}

	frequencies := make([]freq, 0, len(snapshot))
	for _, history := range snapshot {
		if len(history.Dates) == 0 {
			continue
		}
		frequencies = append(frequencies, freq{
			name:  history.Product.DisplayName(),
			count: len(history.Dates),
		})
	}

	sort.Slice(frequencies, func(i, j int) bool {
		if frequencies[i].count != frequencies[j].count {
			return frequencies[i].count > frequencies[j].count
		}
		return frequencies[i].name < frequencies[j].name
	})

	if limit > 0 && limit < len(frequencies) {
		frequencies = frequencies[:limit]
	}

	names := make([]string, len(frequencies))
	for i, f := range frequencies {
		names[i] = f.name
	}
	return names
}
