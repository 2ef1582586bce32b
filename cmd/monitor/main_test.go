package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slippax/lotus-ge/internal/summaries"
)

// serveRow runs a raw record through the server's normalizer and a JSON
// roundtrip, yielding exactly what the monitor sees over the wire
func serveRow(t *testing.T, category summaries.Category, raw summaries.RawRecord) map[string]interface{} {
	t.Helper()

	normalized, err := summaries.Normalize(category, []summaries.RawRecord{raw})
	require.NoError(t, err)
	require.Len(t, normalized, 1)

	encoded, err := json.Marshal(normalized[0])
	require.NoError(t, err)

	var row map[string]interface{}
	require.NoError(t, json.Unmarshal(encoded, &row))
	return row
}

func TestColumnsCoverEveryCategory(t *testing.T) {
	for _, category := range summaries.Categories() {
		spec, ok := columns[category]
		require.True(t, ok, "missing column spec for %s", category)
		assert.NotEmpty(t, spec.headers, "category %s", category)
		assert.NotEmpty(t, spec.scoreKey, "category %s", category)
	}
}

func TestColumnsReadServedFields(t *testing.T) {
	tests := []struct {
		category summaries.Category
		raw      summaries.RawRecord
		want     []string
	}{
		{
			category: summaries.CategoryDipDetection,
			raw: summaries.RawRecord{
				"ItemName": "Yew logs",
				"LowPrice": float64(280),
				"AvgLow":   float64(305),
				"pctROI":   8.9,
			},
			want: []string{"Yew logs", "280", "280", "305", "8.9%"},
		},
		{
			category: summaries.CategoryAlchemyFloors,
			raw: summaries.RawRecord{
				"ItemName":   "Rune axe",
				"LowPrice":   float64(100),
				"PriceFloor": float64(150),
				"BuyLimit":   float64(8),
			},
			want: []string{"Rune axe", "100", "150", "50", "1", "8"},
		},
		{
			category: summaries.CategoryVolatilityBreakout,
			raw: summaries.RawRecord{
				"ItemName":                "Dragon bones",
				"CurrentPrice":            float64(2500),
				"BreakoutDirection":       "UPWARD",
				"VolumeConfirmation":      "HIGH_VOLUME",
				"CompressionLevel":        "EXTREME",
				"PotentialBreakoutProfit": float64(120),
			},
			want: []string{"Dragon bones", "2,500", "UPWARD", "HIGH_VOLUME", "EXTREME", "120"},
		},
		{
			category: summaries.CategoryVolumeProfile,
			raw: summaries.RawRecord{
				"ItemName":             "Nature rune",
				"VolumePattern":        "ACCUMULATION",
				"VolumeSurge":          "VOLUME_SURGE",
				"SmartMoneySignal":     "SMART_BUYING",
				"VolumeImbalanceRatio": 3.25,
				"AccumulationProfit":   float64(90),
			},
			want: []string{"Nature rune", "ACCUMULATION", "VOLUME_SURGE", "SMART_BUYING", "3.25", "90"},
		},
		{
			category: summaries.CategoryConfluence,
			raw: summaries.RawRecord{
				"ItemName":           "Magic logs",
				"SignalStrength":     "STRONG_BUY",
				"VolumeConfirmation": "STRONG_VOLUME",
				"BullishConfluence":  float64(4),
				"BearishConfluence":  float64(1),
				"PotentialProfit":    float64(55),
			},
			want: []string{"Magic logs", "STRONG_BUY", "STRONG_VOLUME", "4", "1", "55"},
		},
		{
			category: summaries.CategoryRecipeArbitrage,
			raw: summaries.RawRecord{
				"ProductName":         "Unfinished potion",
				"RecipeType":          "HERBLORE",
				"TotalIngredientCost": float64(754),
				"ProductPrice":        float64(900),
				"ProfitPerCraft":      float64(146),
				"LiquidityLevel":      "HIGH_LIQUIDITY",
			},
			want: []string{"Unfinished potion", "HERBLORE", "754", "900", "146", "HIGH_LIQUIDITY"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			row := serveRow(t, tt.category, tt.raw)
			spec := columns[tt.category]

			got := spec.row(row)
			require.Len(t, got, len(spec.headers))
			assert.Equal(t, tt.want, got)

			// The sort key must be a field the server actually serves
			_, ok := row[spec.scoreKey]
			assert.True(t, ok, "score key %q not present in served %s row", spec.scoreKey, tt.category)
		})
	}
}

func TestGPFormatting(t *testing.T) {
	assert.Equal(t, "0", gp(0))
	assert.Equal(t, "280", gp(280))
	assert.Equal(t, "2,500", gp(2500))
	assert.Equal(t, "1,234,567", gp(1234567))
	assert.Equal(t, "-42,000", gp(-42000))
}
