// Package summaries fetches, normalizes and caches pre-computed Grand Exchange
// trading-opportunity summaries published by the offline analytics pipeline.
//
// The pipeline writes one JSON document per analytic category to
// data/summaries/ in a public GitHub repository. This package resolves those
// documents through a two-tier source (contents API, then raw flat file),
// reshapes the loosely-typed records into strict camelCase opportunities, and
// serves them from a short-lived in-memory cache.
package summaries

// Category identifies one analytic strategy
type Category string

const (
	CategoryDipDetection       Category = "dip-detection"
	CategoryAlchemyFloors      Category = "alchemy-floors"
	CategoryVolatilityBreakout Category = "volatility-breakout"
	CategoryVolumeProfile      Category = "volume-profile"
	CategoryConfluence         Category = "confluence"
	CategoryRecipeArbitrage    Category = "recipe-arbitrage"
)

// remoteFiles maps each category to its summary document in the data repository
var remoteFiles = map[Category]string{
	CategoryDipDetection:       "dipped-items.json",
	CategoryAlchemyFloors:      "alchemy-floors.json",
	CategoryVolatilityBreakout: "volatility-breakout.json",
	CategoryVolumeProfile:      "volume-profile.json",
	CategoryConfluence:         "confluence-analysis.json",
	CategoryRecipeArbitrage:    "recipe-arbitrage.json",
}

// Categories returns all categories in display order
func Categories() []Category {
	return []Category{
		CategoryDipDetection,
		CategoryAlchemyFloors,
		CategoryVolatilityBreakout,
		CategoryVolumeProfile,
		CategoryConfluence,
		CategoryRecipeArbitrage,
	}
}

// Valid reports whether c names a known category
func (c Category) Valid() bool {
	_, ok := remoteFiles[c]
	return ok
}

// RemoteFile returns the summary document filename for the category
func (c Category) RemoteFile() string {
	return remoteFiles[c]
}

// String implements fmt.Stringer
func (c Category) String() string {
	return string(c)
}
