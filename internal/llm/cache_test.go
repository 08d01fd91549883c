package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksense/pantry/internal/model"
	"github.com/stocksense/pantry/internal/service"
)

func TestResultCache(t *testing.T) {
	cache := newResultCache(time.Minute)
	defer cache.Close()

	result := service.ClassifyResult{
		CleanName:  "Whole Milk",
		Category:   model.CategoryDairy,
		Confidence: 0.92,
	}
	cache.set("ORG WHL MILK", result)

	got, found := cache.get("ORG WHL MILK")
	require.True(t, found)
	assert.Equal(t, result, got)

	// Lookup is case and whitespace insensitive.
	_, found = cache.get("  org whl milk ")
	assert.True(t, found)

	_, found = cache.get("something else")
	assert.False(t, found)

	assert.Equal(t, 1, cache.size())
}

func TestResultCache_Expiry(t *testing.T) {
	cache := newResultCache(10 * time.Millisecond)
	defer cache.Close()

	cache.set("BANANAS", service.ClassifyResult{CleanName: "Bananas"})
	time.Sleep(20 * time.Millisecond)

	_, found := cache.get("BANANAS")
	assert.False(t, found)
}
