// Package parser holds the pure normalization helpers shared by the
// crawl and import phases: price parsing, the dimension heuristic,
// freshness dating, and feature-name mapping.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/mzurek/go-catalog-sync/models"
)

var priceToken = regexp.MustCompile(`(\d+(\.\d+)?)`)

// ValidateRecord ensures a sampled record carries the required fields.
func ValidateRecord(r *models.ProductRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("record missing id")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("record missing name for id %s", r.ID)
	}
	return nil
}

// NormalizePrice converts a displayed price such as "36,00 zł" into a
// numeric value. Currency text and spacing are stripped, the decimal
// comma becomes a point, and the first numeric token wins. Anything
// unparsable is 0.0; callers treat that as a warning, not an error.
func NormalizePrice(raw string) float64 {
	normalized := strings.ReplaceAll(raw, ",", ".")
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, " ", "")

	match := priceToken.FindString(normalized)
	if match == "" {
		return 0.0
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0.0
	}
	return value
}

// Physicals carries the dimension, weight, condition, and ISBN values
// derived from a record's free-form attribute map.
type Physicals struct {
	Width     float64
	Height    float64
	Depth     float64
	Weight    float64
	Condition string
	ISBN      string
}

// Physical derives dimensions and weight from attribute keys matched by
// substring. Source units are never labeled reliably, so magnitude
// decides: dimension values above 50 are assumed millimeters and divided
// by 10, weights above 1000 are assumed grams and divided by 1000. A
// record with no weight attribute gets the 0.5 default. Condition comes
// from a substring check on a condition-like attribute's value.
// Approximate on purpose; do not turn this into a unit parser.
func Physical(attrs map[string]string) Physicals {
	p := Physicals{Condition: "new"}

	for key, val := range attrs {
		k := strings.ToLower(key)
		v := parseMeasure(val)

		switch {
		case strings.Contains(k, "wysoko") || strings.Contains(k, "height"):
			p.Height = scaleDimension(v)
		case strings.Contains(k, "szeroko") || strings.Contains(k, "width"):
			p.Width = scaleDimension(v)
		case strings.Contains(k, "głęboko") || strings.Contains(k, "depth") || strings.Contains(k, "grubo"):
			p.Depth = scaleDimension(v)
		case strings.Contains(k, "waga") || strings.Contains(k, "weight"):
			if v > 1000 {
				p.Weight = v / 1000.0
			} else {
				p.Weight = v
			}
		case strings.Contains(k, "stan") && strings.Contains(k, "ksi"):
			if strings.Contains(strings.ToLower(val), "now") {
				p.Condition = "new"
			} else {
				p.Condition = "used"
			}
		case strings.Contains(k, "isbn"):
			p.ISBN = strings.TrimSpace(strings.ReplaceAll(val, "-", ""))
		}
	}

	if p.Weight == 0.0 {
		p.Weight = 0.5
	}
	return p
}

func scaleDimension(v float64) float64 {
	if v > 50 {
		return v / 10.0
	}
	return v
}

func parseMeasure(val string) float64 {
	s := strings.ReplaceAll(val, ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	for _, unit := range []string{"mm", "cm", "kg", "g"} {
		s = strings.ReplaceAll(s, unit, "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return v
}

// freshnessOffset pushes untagged records out of the target system's
// recency window, so its "new" badge tracks editorial tagging instead of
// true recency.
const freshnessOffset = 30 * 24 * time.Hour

// Freshness returns the artificial creation date for a record: now for
// records tagged as new, now minus 30 days for everything else.
func Freshness(tags []string, now time.Time) time.Time {
	for _, tag := range tags {
		if tag == "Nowość" || tag == "nowość" {
			return now
		}
	}
	return now.Add(-freshnessOffset)
}

// CheapestShipping returns the lowest positive shipping cost offered for
// the destination. Pickup-style entries at effectively zero cost are
// skipped unless nothing else exists, in which case 0.0 is returned.
func CheapestShipping(info models.ShippingInfo, destination string) float64 {
	cheapest := 0.0
	for _, c := range info.ByCountry[destination] {
		if c.LowestCost <= 0.01 {
			continue
		}
		if cheapest == 0.0 || c.LowestCost < cheapest {
			cheapest = c.LowestCost
		}
	}
	return cheapest
}

// featureNames maps known attribute keys to their display names.
var featureNames = map[string]string{
	"liczba_stron": "Liczba stron",
	"rok_wydania":  "Rok wydania",
	"wysokość":     "Wysokość",
	"oprawa":       "Oprawa",
	"stan_książki": "Stan książki",
	"tłumacz":      "Tłumacz",
}

// FeatureName resolves an attribute key to a feature display name,
// falling back to a title-cased version of the key.
func FeatureName(key string) string {
	if name, ok := featureNames[strings.ToLower(key)]; ok {
		return name
	}
	cleaned := strings.ReplaceAll(key, "_", " ")
	return capitalize(cleaned)
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
