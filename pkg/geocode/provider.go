// Package geocode resolves place names to coordinates via OpenStreetMap
// Nominatim, with a JSON file cache so repeat lookups never hit the network.
package geocode

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Result is a resolved place.
type Result struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name,omitempty"`
	Matched     bool    `json:"matched"`
	Source      string  `json:"source,omitempty"`
}

// Provider represents a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, place string) (*Result, error)
}

// foldTransformer strips diacritics so "Bengalūru" and "Bengaluru" share a
// cache entry.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// cacheKey normalizes a place name for cache lookup: lowercased, folded,
// inner whitespace collapsed.
func cacheKey(place string) string {
	folded, _, err := transform.String(foldTransformer, place)
	if err != nil {
		folded = place
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
