package extract

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseVisionText_StrictJSON(t *testing.T) {
	content := `{"store_name":"Trader Joes","date":"2026-01-15","total":42.67,` +
		`"items":[{"name":"Organic Bananas","quantity":1,"unit_price":0.79,"total_price":0.79},` +
		`{"name":"Sourdough Bread","quantity":2,"unit_price":4.49,"total_price":8.98}]}`

	got, err := parseVisionText(content, discard())
	require.NoError(t, err)

	assert.Equal(t, "Trader Joes", got.StoreName)
	require.NotNil(t, got.Date)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), *got.Date)
	require.NotNil(t, got.Total)
	assert.InDelta(t, 42.67, *got.Total, 0.001)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Sourdough Bread", got.Items[1].Name)
	assert.InDelta(t, 8.98, got.Items[1].TotalPrice, 0.001)
}

func TestParseVisionText_FencedJSONWithProse(t *testing.T) {
	content := "Here is the extracted receipt:\n```json\n" +
		`{"store_name":"Acme","date":null,"total":null,"items":[{"name":"Milk","quantity":1,"unit_price":4.29}]}` +
		"\n```\nLet me know if you need anything else!"

	got, err := parseVisionText(content, discard())
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.StoreName)
	require.Len(t, got.Items, 1)
	// total_price omitted by the model defaults to round(unit*qty, 2).
	assert.InDelta(t, 4.29, got.Items[0].TotalPrice, 0.001)
}

func TestParseVisionText_TruncatedJSONRepair(t *testing.T) {
	content := `{"store_name":"Acme","items":[{"name":"Milk","quantity":1,"unit_price":4.29`

	got, err := parseVisionText(content, discard())
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.StoreName)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Milk", got.Items[0].Name)
	assert.InDelta(t, 4.29, got.Items[0].UnitPrice, 0.001)
}

func TestParseVisionText_BracesInsideStringsIgnored(t *testing.T) {
	content := `{"store_name":"Curly {Brace} Mart","items":[{"name":"Jam {strawberry}","quantity":1,"unit_price":3.50}]}`

	got, err := parseVisionText(content, discard())
	require.NoError(t, err)
	assert.Equal(t, "Curly {Brace} Mart", got.StoreName)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Jam {strawberry}", got.Items[0].Name)
}

func TestParseVisionText_MalformedItemsSkipped(t *testing.T) {
	content := `{"store_name":"Acme","items":[` +
		`{"name":"","quantity":1,"unit_price":2.00},` +
		`{"name":"Free Sample","quantity":1,"unit_price":0},` +
		`{"name":"Cheese","quantity":"2","unit_price":"5.00"},` +
		`"not an object"]}`

	got, err := parseVisionText(content, discard())
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Cheese", got.Items[0].Name)
	assert.InDelta(t, 2.0, got.Items[0].Quantity, 0.001)
	assert.InDelta(t, 10.0, got.Items[0].TotalPrice, 0.001)
}

func TestParseVisionText_MarkdownFallback(t *testing.T) {
	content := `**Store Name:** Off the Muck Market
**Date:** January 18, 2026
**Total:** $25.89
**Items:**
*   **Build Your Own:** 1, $3.00
*   **Eggs:** 2, $4.49
-   Fresh Fruit: Apple (2 lb) - $8.98`

	got, err := parseVisionText(content, discard())
	require.NoError(t, err)

	assert.Equal(t, "Off the Muck Market", got.StoreName)
	require.NotNil(t, got.Date)
	assert.Equal(t, time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC), *got.Date)
	require.NotNil(t, got.Total)
	assert.InDelta(t, 25.89, *got.Total, 0.001)

	require.Len(t, got.Items, 3)
	assert.Equal(t, "Build Your Own", got.Items[0].Name)
	assert.Equal(t, "Eggs", got.Items[1].Name)
	assert.InDelta(t, 2.0, got.Items[1].Quantity, 0.001)
	assert.InDelta(t, 4.49, got.Items[1].UnitPrice, 0.001)
	assert.InDelta(t, 8.98, got.Items[1].TotalPrice, 0.001)
	assert.Equal(t, "Fresh Fruit: Apple (2 lb)", got.Items[2].Name)
	assert.InDelta(t, 1.0, got.Items[2].Quantity, 0.001)
}

func TestParseVisionText_UnparseableFailsTerminally(t *testing.T) {
	_, err := parseVisionText("I am sorry, I cannot read this image.", discard())
	require.Error(t, err)

	_, err = parseVisionText("", discard())
	require.Error(t, err)
}

func TestParseVisionText_EmptyJSONFallsThroughToMarkdown(t *testing.T) {
	content := `{"store_name":null,"items":[]}

**Store Name:** Corner Shop
* Bread - $2.50`

	got, err := parseVisionText(content, discard())
	require.NoError(t, err)
	assert.Equal(t, "Corner Shop", got.StoreName)
	require.Len(t, got.Items, 1)
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object passes through",
			in:   `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "surrounding prose stripped",
			in:   `The result is {"a":1} as requested.`,
			want: `{"a":1}`,
		},
		{
			name: "fences stripped",
			in:   "```json\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "truncated array and object closed in nesting order",
			in:   `{"items":[{"n":1`,
			want: `{"items":[{"n":1}]}`,
		},
		{
			name: "truncated mid string",
			in:   `{"store":"Ac`,
			want: `{"store":"Ac"}`,
		},
		{
			name: "trailing comma trimmed before closing",
			in:   `{"items":[{"n":1},`,
			want: `{"items":[{"n":1}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSONObject(tt.in))
		})
	}
}
