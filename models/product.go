package models

import (
	"encoding/json"
	"fmt"
	"os"
)

// Price carries the raw price strings exactly as displayed by the source
// catalog. Normalization into a numeric value happens at import time.
type Price struct {
	Current string `json:"current"`
	Regular string `json:"regular,omitempty"`
	Omnibus string `json:"omnibus,omitempty"`
}

// ShippingMethod is one shipping option offered by the source catalog.
type ShippingMethod struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CostGross string `json:"cost_gross,omitempty"`
}

// ShippingCost is a destination-scoped rate entry for one method.
type ShippingCost struct {
	ID         string  `json:"id"`
	Name       string  `json:"name,omitempty"`
	LowestCost float64 `json:"lowestCost"`
}

// ShippingInfo is the destination-keyed rate schedule attached to a
// product record. ByCountry maps a destination country id to the rate
// entries available for it, with carrier ids resolved to names.
type ShippingInfo struct {
	Methods   []ShippingMethod          `json:"shippings,omitempty"`
	ByCountry map[string][]ShippingCost `json:"country2shipping,omitempty"`
}

// ProductRecord is one normalized product sampled from the source
// catalog. ID and Name are required; everything else is optional and
// handled explicitly by consumers.
type ProductRecord struct {
	ID               string            `json:"id"`
	CategoryID       int               `json:"category_id"`
	Name             string            `json:"product_name"`
	Author           string            `json:"product_author,omitempty"`
	DisplayCode      string            `json:"display_code,omitempty"`
	Description      string            `json:"description,omitempty"`
	Price            Price             `json:"price"`
	Attributes       map[string]string `json:"attributes,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	Thumbnail        string            `json:"thumbnail,omitempty"`
	ThumbnailHighRes string            `json:"thumbnail_high_res,omitempty"`
	Shipping         ShippingInfo      `json:"shipping_info"`
}

// SaveProducts writes the sampled product records as a JSON document.
func SaveProducts(path string, records []*ProductRecord) error {
	return writeJSON(path, records)
}

// LoadProducts reads a product-list document and validates every record.
// Records missing an id or a name are dropped; the count of dropped
// records is returned so callers can log it.
func LoadProducts(path string) ([]*ProductRecord, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read products file: %w", err)
	}
	var raw []*ProductRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode products file %s: %w", path, err)
	}

	records := make([]*ProductRecord, 0, len(raw))
	dropped := 0
	for _, rec := range raw {
		if rec == nil || rec.ID == "" || rec.Name == "" {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped, nil
}
