package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksense/pantry/internal/model"
	"github.com/stocksense/pantry/internal/service"
)

func day(n int) time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func fixedClock(n int) func() time.Time {
	return func() time.Time { return day(n) }
}

func history(p model.Product, days ...int) service.ProductHistory {
	dates := make([]time.Time, len(days))
	for i, d := range days {
		dates[i] = day(d)
	}
	return service.ProductHistory{Product: p, Dates: dates}
}

func TestEstimate_CategoryDefaultsForSparseHistory(t *testing.T) {
	estimator := NewEstimator(WithClock(fixedClock(30)))

	snapshot := []service.ProductHistory{
		// Produce default is 21 days for cooking: 30 days ago is gone.
		history(model.Product{ID: 1, RawName: "Lettuce", Category: model.CategoryProduce}, 0),
		// Dairy default is 45 days: still available.
		history(model.Product{ID: 2, RawName: "Butter", Category: model.CategoryDairy}, 0),
		// Pantry default is a year.
		history(model.Product{ID: 3, RawName: "Dried Beans", Category: model.CategoryPantry}, 0),
	}

	got := estimator.Estimate(snapshot)

	assert.NotContains(t, got, "Produce")
	assert.Equal(t, []string{"Butter"}, got["Dairy"])
	assert.Equal(t, []string{"Dried Beans"}, got["Pantry"])
}

func TestEstimate_VelocityBasedForRegularBuyers(t *testing.T) {
	// Weekly produce, cooking multiplier 1.2: shelf life 8.4 days.
	estimator := NewEstimator(WithClock(fixedClock(29)))

	snapshot := []service.ProductHistory{
		history(model.Product{ID: 1, RawName: "Spinach", Category: model.CategoryProduce}, 0, 7, 14, 21),
	}

	// 8 days since last is inside the window.
	got := estimator.Estimate(snapshot)
	assert.Equal(t, []string{"Spinach"}, got["Produce"])

	// One more day and it falls out.
	estimator = NewEstimator(WithClock(fixedClock(31)))
	got = estimator.Estimate(snapshot)
	assert.NotContains(t, got, "Produce")
}

func TestEstimate_UnknownCategoryFallsToOther(t *testing.T) {
	estimator := NewEstimator(WithClock(fixedClock(1)))

	snapshot := []service.ProductHistory{
		history(model.Product{ID: 1, RawName: "Mystery Item", Category: model.CategoryUnknown}, 0),
		history(model.Product{ID: 2, RawName: "Unlabeled"}, 0),
	}

	got := estimator.Estimate(snapshot)
	assert.Equal(t, []string{"Mystery Item", "Unlabeled"}, got[OtherBucket])
}

func TestEstimate_NeverPurchasedExcluded(t *testing.T) {
	estimator := NewEstimator(WithClock(fixedClock(0)))

	snapshot := []service.ProductHistory{
		{Product: model.Product{ID: 1, RawName: "Wishlist Item", Category: model.CategoryPantry}},
	}

	assert.Empty(t, estimator.Estimate(snapshot))
}

func TestEstimate_PrefersCanonicalNameAndSorts(t *testing.T) {
	estimator := NewEstimator(WithClock(fixedClock(1)))

	snapshot := []service.ProductHistory{
		history(model.Product{ID: 1, RawName: "ORG BAN 4011", CanonicalName: "Bananas", Category: model.CategoryProduce}, 0),
		history(model.Product{ID: 2, RawName: "Apples Fuji", Category: model.CategoryProduce}, 0),
	}

	got := estimator.Estimate(snapshot)
	assert.Equal(t, []string{"Apples Fuji", "Bananas"}, got["Produce"])
}

func TestFrequentProducts(t *testing.T) {
	estimator := NewEstimator(WithClock(fixedClock(50)))

	snapshot := []service.ProductHistory{
		history(model.Product{ID: 1, RawName: "Milk"}, 0, 7, 14, 21, 28),
		history(model.Product{ID: 2, RawName: "Eggs"}, 0, 14, 28),
		history(model.Product{ID: 3, RawName: "Bread"}, 0, 14, 28),
		{Product: model.Product{ID: 4, RawName: "Unbought"}},
	}

	got := estimator.FrequentProducts(snapshot, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "Milk", got[0])
	// Tie between Eggs and Bread breaks by name.
	assert.Equal(t, "Bread", got[1])

	all := estimator.FrequentProducts(snapshot, 0)
	assert.Equal(t, []string{"Milk", "Bread", "Eggs"}, all)
}
