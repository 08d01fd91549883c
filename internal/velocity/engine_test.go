package velocity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksense/pantry/internal/model"
	"github.com/stocksense/pantry/internal/service"
	"github.com/stocksense/pantry/internal/shelflife"
)

func day(n int) time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func fixedClock(n int) func() time.Time {
	return func() time.Time { return day(n) }
}

func TestSample_AverageInterval(t *testing.T) {
	tests := []struct {
		wantAvg   *float64
		name      string
		days      []int
		today     int
		wantSince int
	}{
		{
			name:      "three purchases ten days apart",
			days:      []int{0, 10, 20},
			today:     25,
			wantAvg:   floatPtr(10.0),
			wantSince: 5,
		},
		{
			name:      "two purchases is insufficient history",
			days:      []int{0, 10},
			today:     12,
			wantAvg:   nil,
			wantSince: 2,
		},
		{
			name:      "irregular gaps divide full span by gap count",
			days:      []int{0, 3, 20},
			today:     21,
			wantAvg:   floatPtr(10.0),
			wantSince: 1,
		},
		{
			name:      "rounding to one decimal",
			days:      []int{0, 5, 11, 16},
			today:     16,
			wantAvg:   floatPtr(5.3),
			wantSince: 0,
		},
		{
			name:      "unsorted input dates",
			days:      []int{20, 0, 10},
			today:     22,
			wantAvg:   floatPtr(10.0),
			wantSince: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(WithClock(fixedClock(tt.today)))

			dates := make([]time.Time, len(tt.days))
			for i, d := range tt.days {
				dates[i] = day(d)
			}

			sample := engine.Sample(1, dates)
			require.NotNil(t, sample)
			assert.Equal(t, len(tt.days), sample.BuyCount)
			assert.Equal(t, tt.wantSince, sample.DaysSinceLast)

			if tt.wantAvg == nil {
				assert.Nil(t, sample.AvgIntervalDays)
			} else {
				require.NotNil(t, sample.AvgIntervalDays)
				assert.InDelta(t, *tt.wantAvg, *sample.AvgIntervalDays, 0.001)
			}
		})
	}
}

func TestSample_NoPurchases(t *testing.T) {
	engine := NewEngine()
	assert.Nil(t, engine.Sample(1, nil))
}

func TestStatus_ProduceGoesLowEarly(t *testing.T) {
	// Weekly produce with reorder multiplier 0.8: threshold 5.6 days, so
	// day 27 (6 days since last) is already low.
	engine := NewEngine(WithClock(fixedClock(27)))

	product := model.Product{ID: 1, RawName: "Organic Bananas", Category: model.CategoryProduce}
	status := engine.Status(product, []time.Time{day(0), day(7), day(14), day(21)})

	require.NotNil(t, status.AvgIntervalDays)
	assert.InDelta(t, 7.0, *status.AvgIntervalDays, 0.001)
	assert.Equal(t, 6, status.DaysSinceLast)
	assert.Equal(t, model.StatusLow, status.Status)
}

func TestStatus_HouseholdGetsBuffer(t *testing.T) {
	// Same cadence, household multiplier 1.5: threshold 10.5 days, still
	// stocked at 6 days since last.
	engine := NewEngine(WithClock(fixedClock(27)))

	product := model.Product{ID: 1, RawName: "Paper Towels", Category: model.CategoryHousehold}
	status := engine.Status(product, []time.Time{day(0), day(7), day(14), day(21)})

	assert.Equal(t, model.StatusStocked, status.Status)
}

func TestStatus_PredictedOutDate(t *testing.T) {
	engine := NewEngine(WithClock(fixedClock(22)))

	product := model.Product{ID: 1, RawName: "Milk", Category: model.CategoryDairy}
	status := engine.Status(product, []time.Time{day(0), day(10), day(20)})

	// avg 10.0, dairy multiplier 0.9 → threshold 9 days after day 20.
	require.NotNil(t, status.PredictedOutDate)
	assert.Equal(t, day(29), *status.PredictedOutDate)
	assert.False(t, status.PredictedOutDate.Before(day(20)), "predicted out date must not precede last purchase")
}

func TestStatus_InsufficientHistoryNeverLowFromVelocity(t *testing.T) {
	// One purchase yesterday: calibrating, not low, even for produce.
	engine := NewEngine(WithClock(fixedClock(1)))

	product := model.Product{ID: 1, RawName: "Kale", Category: model.CategoryProduce}
	status := engine.Status(product, []time.Time{day(0)})

	assert.Equal(t, model.StatusCalibrating, status.Status)
	assert.Nil(t, status.AvgIntervalDays)
}

func TestStatus_InsufficientHistoryFallsToCategoryDefault(t *testing.T) {
	// One purchase 30 days ago exceeds both the calibrating window and
	// produce's 5-day default shelf life.
	engine := NewEngine(WithClock(fixedClock(30)))

	product := model.Product{ID: 1, RawName: "Kale", Category: model.CategoryProduce}
	status := engine.Status(product, []time.Time{day(0)})

	assert.Equal(t, model.StatusLow, status.Status)
}

func TestStatus_InsufficientHistoryShelfStableStaysStocked(t *testing.T) {
	// Pantry default shelf life is 45 days under the reorder tuning.
	engine := NewEngine(WithClock(fixedClock(30)))

	product := model.Product{ID: 1, RawName: "Rice", Category: model.CategoryPantry}
	status := engine.Status(product, []time.Time{day(0)})

	assert.Equal(t, model.StatusStocked, status.Status)
}

func TestStatus_OutMarkerOverrides(t *testing.T) {
	engine := NewEngine(WithClock(fixedClock(21)))

	product := model.Product{
		ID:          1,
		RawName:     "Eggs",
		Category:    model.CategoryDairy,
		StockMarker: model.MarkerOut,
	}
	// Freshly bought and well within threshold, but the marker wins.
	status := engine.Status(product, []time.Time{day(0), day(10), day(20)})

	assert.Equal(t, model.StatusOut, status.Status)
}

func TestStatus_NoPurchasesDegradesToStocked(t *testing.T) {
	engine := NewEngine()

	product := model.Product{ID: 1, RawName: "Saffron", Category: model.CategoryPantry}
	status := engine.Status(product, nil)

	assert.Equal(t, model.StatusStocked, status.Status)
	assert.Nil(t, status.PredictedOutDate)
}

func TestCompute_DeterministicOrderAndFiltering(t *testing.T) {
	engine := NewEngine(WithClock(fixedClock(40)))

	snapshot := []service.ProductHistory{
		{
			Product: model.Product{ID: 1, RawName: "Zucchini", Category: model.CategoryProduce},
			Dates:   []time.Time{day(0), day(7), day(14)},
		},
		{
			Product: model.Product{ID: 2, RawName: "Apples", Category: model.CategoryProduce},
			Dates:   []time.Time{day(34), day(37), day(40)},
		},
		{
			Product: model.Product{ID: 3, RawName: "Soap", Category: model.CategoryHousehold, StockMarker: model.MarkerOut},
			Dates:   []time.Time{day(10)},
		},
	}

	all := engine.Compute(snapshot)
	require.Len(t, all, 3)
	// Household before Produce, then name order within category.
	assert.Equal(t, "Soap", all[0].Name)
	assert.Equal(t, "Apples", all[1].Name)
	assert.Equal(t, "Zucchini", all[2].Name)

	needed := engine.ComputeLowOrOut(snapshot)
	require.Len(t, needed, 2)
	assert.Equal(t, model.StatusOut, needed[0].Status)
	assert.Equal(t, model.StatusLow, needed[1].Status)
	assert.Equal(t, "Zucchini", needed[1].Name)
}

func TestStatus_CookingPolicyIsMoreLenient(t *testing.T) {
	// 6 days since last on a weekly produce cycle: low under reorder
	// (threshold 5.6) but available under cooking (threshold 8.4).
	history := []time.Time{day(0), day(7), day(14), day(21)}
	product := model.Product{ID: 1, RawName: "Spinach", Category: model.CategoryProduce}

	reorder := NewEngine(WithClock(fixedClock(27)))
	cooking := NewEngine(WithClock(fixedClock(27)), WithPolicy(shelflife.Cooking()))

	assert.Equal(t, model.StatusLow, reorder.Status(product, history).Status)
	assert.Equal(t, model.StatusStocked, cooking.Status(product, history).Status)
}

func floatPtr(f float64) *float64 { return &f }
