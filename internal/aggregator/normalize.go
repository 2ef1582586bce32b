package aggregator

import "github.com/slippax/lotus-ge/internal/summaries"

// enumDefaults lists, per category, the enum fields a well-formed row must
// carry and their neutral sentinels. The server normalizes before serving,
// but this client also runs against older deployments that pass raw rows
// through, so defaults are re-applied at this boundary.
var enumDefaults = map[summaries.Category]map[string]string{
	summaries.CategoryVolatilityBreakout: {
		"breakoutDirection":  "NEUTRAL",
		"volumeConfirmation": "LOW_VOLUME",
		"compressionLevel":   "LOW_COMPRESSION",
	},
	summaries.CategoryVolumeProfile: {
		"volumePattern":    "BALANCED",
		"volumeSurge":      "NORMAL_VOLUME",
		"smartMoneySignal": "NO_SMART_MONEY_SIGNAL",
	},
	summaries.CategoryConfluence: {
		"signalStrength":     "MIXED_SIGNALS",
		"volumeConfirmation": "WEAK_VOLUME",
	},
	summaries.CategoryRecipeArbitrage: {
		"recipeType":     "UNKNOWN",
		"liquidityLevel": "LOW_LIQUIDITY",
	},
}

// normalizeItems fills defaults into loosely-typed rows: an ordinal id when
// none is present, an empty name, and the category's enum sentinels. Row
// order is preserved and no row is dropped.
func normalizeItems(category summaries.Category, items []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))

	for i, item := range items {
		row := make(map[string]interface{}, len(item)+2)
		for k, v := range item {
			if v != nil {
				row[k] = v
			}
		}

		if _, ok := row["id"]; !ok {
			row["id"] = i
		}
		if _, ok := row["name"].(string); !ok {
			row["name"] = ""
		}

		for field, sentinel := range enumDefaults[category] {
			if _, ok := row[field].(string); !ok {
				row[field] = sentinel
			}
		}

		out = append(out, row)
	}

	return out
}

// Num extracts a numeric field from a row, defaulting to zero
func Num(row map[string]interface{}, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Str extracts a string field from a row, defaulting to empty
func Str(row map[string]interface{}, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}
