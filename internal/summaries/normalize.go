package summaries

import (
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is one loosely-typed item as delivered by the upstream document.
// Field names follow the pipeline's legacy PascalCase naming.
type RawRecord map[string]interface{}

// NormalizeFunc maps one category's raw items onto strict opportunity values
type NormalizeFunc func(items []RawRecord) []interface{}

// Cost of a nature rune in gp, used for high-alchemy profit context
const natureRuneCost = 170

// Default sentinels for enum fields that may be absent upstream
const (
	sentinelNeutral        = "NEUTRAL"
	sentinelLowVolume      = "LOW_VOLUME"
	sentinelLowCompression = "LOW_COMPRESSION"
	sentinelBalanced       = "BALANCED"
	sentinelNormalVolume   = "NORMAL_VOLUME"
	sentinelNoSmartMoney   = "NO_SMART_MONEY_SIGNAL"
	sentinelMixedSignals   = "MIXED_SIGNALS"
	sentinelWeakVolume     = "WEAK_VOLUME"
	sentinelLowLiquidity   = "LOW_LIQUIDITY"
	sentinelUnknownRecipe  = "UNKNOWN"
)

// DipOpportunity is a normalized dip-detection signal
type DipOpportunity struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	CurrentLow int     `json:"currentLow"`
	// High price feed is not wired up yet; mirrors the low until it is.
	CurrentHigh int     `json:"currentHigh"`
	AverageLow  int     `json:"avgLow"`
	BuyLimit    int     `json:"buyLimit"`
	ROIPercent  float64 `json:"roiPct"`
}

// AlchemyOpportunity is a normalized high-alchemy floor signal
type AlchemyOpportunity struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	CurrentLow      int     `json:"currentLow"`
	PriceFloor      int     `json:"priceFloor"`
	PotentialProfit int     `json:"potentialProfit"`
	Tax             int     `json:"tax"`
	BuyLimit        int     `json:"buyLimit"`
	NatureRuneCost  int     `json:"natureRuneCost"`
	ROIPercent      float64 `json:"roiPct"`
}

// VolatilityOpportunity is a normalized volatility-compression signal
type VolatilityOpportunity struct {
	ID                 int     `json:"id"`
	Name               string  `json:"name"`
	CurrentPrice       int     `json:"currentPrice"`
	BuyLimit           int     `json:"buyLimit"`
	DailyRange         float64 `json:"dailyRange"`
	WeeklyRange        float64 `json:"weeklyRange"`
	MonthlyRange       float64 `json:"monthlyRange"`
	CompressionRatio   float64 `json:"compressionRatio"`
	BreakoutDirection  string  `json:"breakoutDirection"`
	VolumeConfirmation string  `json:"volumeConfirmation"`
	PotentialProfit    int     `json:"potentialProfit"`
	CompressionLevel   string  `json:"compressionLevel"`
}

// VolumeProfileOpportunity is a normalized volume-imbalance signal
type VolumeProfileOpportunity struct {
	ID                   int     `json:"id"`
	Name                 string  `json:"name"`
	CurrentPrice         int     `json:"currentPrice"`
	CurrentHigh          int     `json:"currentHigh"`
	BuyLimit             int     `json:"buyLimit"`
	LowPriceVolume       int     `json:"lowPriceVolume"`
	HighPriceVolume      int     `json:"highPriceVolume"`
	WeeklyLowVolume      int     `json:"weeklyLowVolume"`
	WeeklyHighVolume     int     `json:"weeklyHighVolume"`
	VolumeImbalanceRatio float64 `json:"volumeImbalanceRatio"`
	VolumePattern        string  `json:"volumePattern"`
	VolumeSurge          string  `json:"volumeSurge"`
	SmartMoneySignal     string  `json:"smartMoneySignal"`
	AccumulationProfit   int     `json:"accumulationProfit"`
}

// ConfluenceOpportunity is a normalized multi-timeframe confluence signal
type ConfluenceOpportunity struct {
	ID                 int     `json:"id"`
	Name               string  `json:"name"`
	CurrentPrice       int     `json:"currentPrice"`
	BuyLimit           int     `json:"buyLimit"`
	FiveMinMean        float64 `json:"fiveMinMean"`
	HourlyMean         float64 `json:"hourlyMean"`
	DailyMean          float64 `json:"dailyMean"`
	WeeklyMean         float64 `json:"weeklyMean"`
	MonthlyMean        float64 `json:"monthlyMean"`
	BullishConfluence  int     `json:"bullishConfluence"`
	BearishConfluence  int     `json:"bearishConfluence"`
	SignalStrength     string  `json:"signalStrength"`
	VolumeConfirmation string  `json:"volumeConfirmation"`
	PotentialProfit    int     `json:"potentialProfit"`
}

// RecipeIngredient is one input of a crafting recipe
type RecipeIngredient struct {
	Name     string `json:"name"`
	Price    int    `json:"price"`
	Quantity int    `json:"qty"`
}

// RecipeOpportunity is a normalized recipe-arbitrage signal
type RecipeOpportunity struct {
	ID                  int                `json:"id"`
	Name                string             `json:"name"`
	ProductPrice        int                `json:"productPrice"`
	BuyLimit            int                `json:"buyLimit"`
	Ingredients         []RecipeIngredient `json:"ingredients"`
	TotalIngredientCost int                `json:"totalCost"`
	ProfitPerCraft      int                `json:"profitPerCraft"`
	ROIPercent          float64            `json:"roiPct"`
	RecipeType          string             `json:"recipeType"`
	QtyProduced         int                `json:"qtyProduced"`
	LiquidityLevel      string             `json:"liquidityLevel"`
}

// normalizers maps each category to its field-mapping function
var normalizers = map[Category]NormalizeFunc{
	CategoryDipDetection:       normalizeDips,
	CategoryAlchemyFloors:      normalizeAlchemy,
	CategoryVolatilityBreakout: normalizeVolatility,
	CategoryVolumeProfile:      normalizeVolumeProfile,
	CategoryConfluence:         normalizeConfluence,
	CategoryRecipeArbitrage:    normalizeRecipes,
}

// Normalize maps a category's raw items onto strict opportunity values.
// Input order is preserved and no record is ever rejected: absent numeric
// fields degrade to zero, absent enum fields to the category's neutral
// sentinel. Normalization is a pure function of its input.
func Normalize(category Category, items []RawRecord) ([]interface{}, error) {
	fn, ok := normalizers[category]
	if !ok {
		return nil, fmt.Errorf("unknown category: %s", category)
	}
	return fn(items), nil
}

func normalizeDips(items []RawRecord) []interface{} {
	out := make([]interface{}, 0, len(items))
	for i, r := range items {
		low := intField(r, "LowPrice")
		out = append(out, DipOpportunity{
			ID:          i,
			Name:        strField(r, "ItemName", ""),
			CurrentLow:  low,
			CurrentHigh: low,
			AverageLow:  intField(r, "AvgLow"),
			BuyLimit:    intField(r, "BuyLimit"),
			ROIPercent:  numField(r, "pctROI"),
		})
	}
	return out
}

func normalizeAlchemy(items []RawRecord) []interface{} {
	out := make([]interface{}, 0, len(items))
	for i, r := range items {
		low := intField(r, "LowPrice")
		floor := intField(r, "PriceFloor")
		out = append(out, AlchemyOpportunity{
			ID:              i,
			Name:            strField(r, "ItemName", ""),
			CurrentLow:      low,
			PriceFloor:      floor,
			PotentialProfit: floor - low,
			Tax:             floor / 100, // 1% GE tax, rounded down
			BuyLimit:        intField(r, "BuyLimit"),
			NatureRuneCost:  natureRuneCost,
			ROIPercent:      numField(r, "pctROI"),
		})
	}
	return out
}

func normalizeVolatility(items []RawRecord) []interface{} {
	out := make([]interface{}, 0, len(items))
	for i, r := range items {
		out = append(out, VolatilityOpportunity{
			ID:                 i,
			Name:               strField(r, "ItemName", ""),
			CurrentPrice:       intField(r, "CurrentPrice"),
			BuyLimit:           intField(r, "BuyLimit"),
			DailyRange:         numField(r, "DailyRange"),
			WeeklyRange:        numField(r, "WeeklyRange"),
			MonthlyRange:       numField(r, "MonthlyRange"),
			CompressionRatio:   numField(r, "CompressionRatio"),
			BreakoutDirection:  strField(r, "BreakoutDirection", sentinelNeutral),
			VolumeConfirmation: strField(r, "VolumeConfirmation", sentinelLowVolume),
			PotentialProfit:    intField(r, "PotentialBreakoutProfit"),
			CompressionLevel:   strField(r, "CompressionLevel", sentinelLowCompression),
		})
	}
	return out
}

func normalizeVolumeProfile(items []RawRecord) []interface{} {
	out := make([]interface{}, 0, len(items))
	for i, r := range items {
		out = append(out, VolumeProfileOpportunity{
			ID:                   i,
			Name:                 strField(r, "ItemName", ""),
			CurrentPrice:         intField(r, "CurrentPrice"),
			CurrentHigh:          intField(r, "CurrentHigh"),
			BuyLimit:             intField(r, "BuyLimit"),
			LowPriceVolume:       intField(r, "LowPriceVolume"),
			HighPriceVolume:      intField(r, "HighPriceVolume"),
			WeeklyLowVolume:      intField(r, "WeeklyLowVolume"),
			WeeklyHighVolume:     intField(r, "WeeklyHighVolume"),
			VolumeImbalanceRatio: numField(r, "VolumeImbalanceRatio"),
			VolumePattern:        strField(r, "VolumePattern", sentinelBalanced),
			VolumeSurge:          strField(r, "VolumeSurge", sentinelNormalVolume),
			SmartMoneySignal:     strField(r, "SmartMoneySignal", sentinelNoSmartMoney),
			AccumulationProfit:   intField(r, "AccumulationProfit"),
		})
	}
	return out
}

func normalizeConfluence(items []RawRecord) []interface{} {
	out := make([]interface{}, 0, len(items))
	for i, r := range items {
		out = append(out, ConfluenceOpportunity{
			ID:                 i,
			Name:               strField(r, "ItemName", ""),
			CurrentPrice:       intField(r, "CurrentPrice"),
			BuyLimit:           intField(r, "BuyLimit"),
			FiveMinMean:        numField(r, "FiveMinMean"),
			HourlyMean:         numField(r, "HourlyMean"),
			DailyMean:          numField(r, "DailyMean"),
			WeeklyMean:         numField(r, "WeeklyMean"),
			MonthlyMean:        numField(r, "MonthlyMean"),
			BullishConfluence:  intField(r, "BullishConfluence"),
			BearishConfluence:  intField(r, "BearishConfluence"),
			SignalStrength:     strField(r, "SignalStrength", sentinelMixedSignals),
			VolumeConfirmation: strField(r, "VolumeConfirmation", sentinelWeakVolume),
			PotentialProfit:    intField(r, "PotentialProfit"),
		})
	}
	return out
}

func normalizeRecipes(items []RawRecord) []interface{} {
	out := make([]interface{}, 0, len(items))
	for i, r := range items {
		ingredients := make([]RecipeIngredient, 0, 3)
		for n := 1; n <= 3; n++ {
			name := strField(r, fmt.Sprintf("Ingredient%dName", n), "")
			if name == "" {
				continue
			}
			ingredients = append(ingredients, RecipeIngredient{
				Name:     name,
				Price:    intField(r, fmt.Sprintf("Ingredient%dPrice", n)),
				Quantity: qtyField(r, fmt.Sprintf("Ingredient%dQty", n)),
			})
		}

		out = append(out, RecipeOpportunity{
			ID:                  i,
			Name:                strField(r, "ProductName", ""),
			ProductPrice:        intField(r, "ProductPrice"),
			BuyLimit:            intField(r, "ProductBuyLimit"),
			Ingredients:         ingredients,
			TotalIngredientCost: intField(r, "TotalIngredientCost"),
			ProfitPerCraft:      intField(r, "ProfitPerCraft"),
			ROIPercent:          numField(r, "ROI"),
			RecipeType:          strField(r, "RecipeType", sentinelUnknownRecipe),
			QtyProduced:         intField(r, "QtyProduced"),
			LiquidityLevel:      strField(r, "LiquidityLevel", sentinelLowLiquidity),
		})
	}
	return out
}

// numField extracts a numeric field, defaulting to zero when absent or not a number
func numField(r RawRecord, key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case float32:
		return float64(v)
	default:
		return 0
	}
}

// intField extracts an integer field, defaulting to zero when absent or not a number
func intField(r RawRecord, key string) int {
	return int(numField(r, key))
}

// qtyField extracts an ingredient quantity. The pipeline stores quantities in
// a TEXT column, so they usually arrive as numeric strings.
func qtyField(r RawRecord, key string) int {
	if s, ok := r[key].(string); ok {
		s = strings.TrimSpace(s)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
		return 0
	}
	return intField(r, key)
}

// strField extracts a string field, defaulting to the given sentinel when absent or empty
func strField(r RawRecord, key, sentinel string) string {
	if v, ok := r[key].(string); ok && v != "" {
		return v
	}
	return sentinel
}
