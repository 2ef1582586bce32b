package summaries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAlchemyDerivedFields(t *testing.T) {
	items := []RawRecord{
		{"ItemName": "Rune axe", "LowPrice": float64(100), "PriceFloor": float64(150), "BuyLimit": float64(8)},
	}

	out, err := Normalize(CategoryAlchemyFloors, items)
	require.NoError(t, err)
	require.Len(t, out, 1)

	opp, ok := out[0].(AlchemyOpportunity)
	require.True(t, ok)

	assert.Equal(t, "Rune axe", opp.Name)
	assert.Equal(t, 100, opp.CurrentLow)
	assert.Equal(t, 150, opp.PriceFloor)
	assert.Equal(t, 50, opp.PotentialProfit)
	assert.Equal(t, 1, opp.Tax)
	assert.Equal(t, 8, opp.BuyLimit)
	assert.Equal(t, 170, opp.NatureRuneCost)
}

func TestNormalizePreservesOrderAndAssignsOrdinals(t *testing.T) {
	items := []RawRecord{
		{"ItemName": "First"},
		{"ItemName": "Second"},
		{"ItemName": "Third"},
	}

	out, err := Normalize(CategoryDipDetection, items)
	require.NoError(t, err)
	require.Len(t, out, 3)

	for i, v := range out {
		opp := v.(DipOpportunity)
		assert.Equal(t, i, opp.ID)
	}
	assert.Equal(t, "First", out[0].(DipOpportunity).Name)
	assert.Equal(t, "Second", out[1].(DipOpportunity).Name)
	assert.Equal(t, "Third", out[2].(DipOpportunity).Name)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	items := []RawRecord{
		{"ItemName": "Dragon bones", "CurrentPrice": float64(2500), "CompressionRatio": 0.42},
	}

	first, err := Normalize(CategoryVolatilityBreakout, items)
	require.NoError(t, err)
	second, err := Normalize(CategoryVolatilityBreakout, items)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNormalizeFillsDefaults(t *testing.T) {
	// Empty record: every numeric field degrades to zero, every enum to its sentinel
	out, err := Normalize(CategoryVolatilityBreakout, []RawRecord{{}})
	require.NoError(t, err)

	opp := out[0].(VolatilityOpportunity)
	assert.Equal(t, 0, opp.CurrentPrice)
	assert.Equal(t, 0.0, opp.CompressionRatio)
	assert.Equal(t, "NEUTRAL", opp.BreakoutDirection)
	assert.Equal(t, "LOW_VOLUME", opp.VolumeConfirmation)
	assert.Equal(t, "LOW_COMPRESSION", opp.CompressionLevel)
}

func TestNormalizeVolumeProfileSentinels(t *testing.T) {
	out, err := Normalize(CategoryVolumeProfile, []RawRecord{{"ItemName": "Nature rune"}})
	require.NoError(t, err)

	opp := out[0].(VolumeProfileOpportunity)
	assert.Equal(t, "BALANCED", opp.VolumePattern)
	assert.Equal(t, "NORMAL_VOLUME", opp.VolumeSurge)
	assert.Equal(t, "NO_SMART_MONEY_SIGNAL", opp.SmartMoneySignal)
}

func TestNormalizeConfluenceSentinels(t *testing.T) {
	out, err := Normalize(CategoryConfluence, []RawRecord{{}})
	require.NoError(t, err)

	opp := out[0].(ConfluenceOpportunity)
	assert.Equal(t, "MIXED_SIGNALS", opp.SignalStrength)
	assert.Equal(t, "WEAK_VOLUME", opp.VolumeConfirmation)
}

func TestNormalizeDipMirrorsLowIntoHigh(t *testing.T) {
	out, err := Normalize(CategoryDipDetection, []RawRecord{
		{"ItemName": "Yew logs", "LowPrice": float64(280), "AvgLow": float64(305)},
	})
	require.NoError(t, err)

	opp := out[0].(DipOpportunity)
	assert.Equal(t, 280, opp.CurrentLow)
	assert.Equal(t, 280, opp.CurrentHigh)
	assert.Equal(t, 305, opp.AverageLow)
}

func TestNormalizeRecipeIngredients(t *testing.T) {
	out, err := Normalize(CategoryRecipeArbitrage, []RawRecord{
		{
			"ProductName":         "Unfinished potion",
			"ProductPrice":        float64(900),
			"ProductBuyLimit":     float64(2000),
			"Ingredient1Name":     "Vial of water",
			"Ingredient1Price":    float64(4),
			"Ingredient1Qty":      float64(1),
			"Ingredient2Name":     "Ranarr weed",
			"Ingredient2Price":    float64(750),
			"Ingredient2Qty":      float64(1),
			"TotalIngredientCost": float64(754),
			"ProfitPerCraft":      float64(146),
			"ROI":                 19.4,
			"RecipeType":          "HERBLORE",
			"QtyProduced":         float64(1),
		},
	})
	require.NoError(t, err)

	opp := out[0].(RecipeOpportunity)
	assert.Equal(t, "Unfinished potion", opp.Name)
	require.Len(t, opp.Ingredients, 2) // third slot absent, skipped
	assert.Equal(t, "Vial of water", opp.Ingredients[0].Name)
	assert.Equal(t, "Ranarr weed", opp.Ingredients[1].Name)
	assert.Equal(t, 146, opp.ProfitPerCraft)
	assert.Equal(t, "HERBLORE", opp.RecipeType)
	assert.Equal(t, "LOW_LIQUIDITY", opp.LiquidityLevel)
}

func TestNormalizeRecipeQuantitiesArriveAsText(t *testing.T) {
	// Ingredient quantity columns are TEXT upstream, so documents carry them
	// as strings like "1" or "28"
	out, err := Normalize(CategoryRecipeArbitrage, []RawRecord{
		{
			"ProductName":      "Cannonball",
			"Ingredient1Name":  "Steel bar",
			"Ingredient1Price": float64(450),
			"Ingredient1Qty":   "1",
			"Ingredient2Name":  "Coal",
			"Ingredient2Qty":   " 2 ",
			"Ingredient3Name":  "Filler",
			"Ingredient3Qty":   "",
		},
	})
	require.NoError(t, err)

	opp := out[0].(RecipeOpportunity)
	require.Len(t, opp.Ingredients, 3)
	assert.Equal(t, 1, opp.Ingredients[0].Quantity)
	assert.Equal(t, 450, opp.Ingredients[0].Price)
	assert.Equal(t, 2, opp.Ingredients[1].Quantity)
	assert.Equal(t, 0, opp.Ingredients[2].Quantity)

	// Numeric quantities still pass through
	out, err = Normalize(CategoryRecipeArbitrage, []RawRecord{
		{"ProductName": "Cannonball", "Ingredient1Name": "Steel bar", "Ingredient1Qty": float64(4)},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, out[0].(RecipeOpportunity).Ingredients[0].Quantity)
}

func TestNormalizeNeverRejectsRecords(t *testing.T) {
	// Wrong types degrade to defaults instead of dropping the record
	items := []RawRecord{
		{"ItemName": float64(42), "LowPrice": "not a number"},
		{},
	}

	out, err := Normalize(CategoryAlchemyFloors, items)
	require.NoError(t, err)
	require.Len(t, out, 2)

	opp := out[0].(AlchemyOpportunity)
	assert.Equal(t, "", opp.Name)
	assert.Equal(t, 0, opp.CurrentLow)
}

func TestNormalizeUnknownCategory(t *testing.T) {
	_, err := Normalize(Category("bogus"), nil)
	assert.Error(t, err)
}

func TestNormalizeHandlesIntegerDecodedValues(t *testing.T) {
	// Snapshot decoding yields int64 values rather than float64
	out, err := Normalize(CategoryAlchemyFloors, []RawRecord{
		{"ItemName": "Magic logs", "LowPrice": int64(1000), "PriceFloor": int64(1100)},
	})
	require.NoError(t, err)

	opp := out[0].(AlchemyOpportunity)
	assert.Equal(t, 1000, opp.CurrentLow)
	assert.Equal(t, 100, opp.PotentialProfit)
	assert.Equal(t, 11, opp.Tax)
}
