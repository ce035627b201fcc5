package parser

import (
	"testing"
	"time"

	"github.com/mzurek/go-catalog-sync/models"
)

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected float64
	}{
		{name: "comma decimal with currency", raw: "36,00 zł", expected: 36.0},
		{name: "point decimal", raw: "12.50", expected: 12.5},
		{name: "thousands with space", raw: "1 200,99 zł", expected: 1200.99},
		{name: "integer", raw: "45", expected: 45.0},
		{name: "leading text", raw: "od 19,99 zł", expected: 19.99},
		{name: "no digits", raw: "zapytaj o cenę", expected: 0.0},
		{name: "empty", raw: "", expected: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePrice(tt.raw); got != tt.expected {
				t.Fatalf("NormalizePrice(%q) = %v, want %v", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestPhysicalDimensionScaling(t *testing.T) {
	tests := []struct {
		name     string
		attrs    map[string]string
		expected Physicals
	}{
		{
			name:  "millimeter-scale values divided",
			attrs: map[string]string{"wysokość": "180", "szerokość": "8"},
			expected: Physicals{
				Height: 18.0, Width: 8.0, Weight: 0.5, Condition: "new",
			},
		},
		{
			name:  "gram weight converted",
			attrs: map[string]string{"waga": "1200"},
			expected: Physicals{
				Weight: 1.2, Condition: "new",
			},
		},
		{
			name:  "kilogram weight kept",
			attrs: map[string]string{"waga": "0.8 kg"},
			expected: Physicals{
				Weight: 0.8, Condition: "new",
			},
		},
		{
			name:     "default weight when absent",
			attrs:    map[string]string{"oprawa": "twarda"},
			expected: Physicals{Weight: 0.5, Condition: "new"},
		},
		{
			name:  "depth from thickness key",
			attrs: map[string]string{"grubość": "25"},
			expected: Physicals{
				Depth: 25.0, Weight: 0.5, Condition: "new",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Physical(tt.attrs)
			if got != tt.expected {
				t.Fatalf("Physical(%v) = %+v, want %+v", tt.attrs, got, tt.expected)
			}
		})
	}
}

func TestPhysicalCondition(t *testing.T) {
	tests := []struct {
		name     string
		attrs    map[string]string
		expected string
	}{
		{name: "new keyword", attrs: map[string]string{"stan_książki": "nowa"}, expected: "new"},
		{name: "used", attrs: map[string]string{"stan_książki": "używana"}, expected: "used"},
		{name: "missing defaults new", attrs: map[string]string{}, expected: "new"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Physical(tt.attrs).Condition; got != tt.expected {
				t.Fatalf("condition = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPhysicalISBN(t *testing.T) {
	got := Physical(map[string]string{"isbn": "978-83-1234-567-8"})
	if got.ISBN != "9788312345678" {
		t.Fatalf("isbn = %q, want %q", got.ISBN, "9788312345678")
	}
}

func TestFreshness(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	if got := Freshness([]string{"Nowość"}, now); !got.Equal(now) {
		t.Fatalf("tagged record date = %v, want %v", got, now)
	}
	expected := now.Add(-30 * 24 * time.Hour)
	if got := Freshness([]string{"Promocja"}, now); !got.Equal(expected) {
		t.Fatalf("untagged record date = %v, want %v", got, expected)
	}
	if got := Freshness(nil, now); !got.Equal(expected) {
		t.Fatalf("no-tags record date = %v, want %v", got, expected)
	}
}

func TestCheapestShipping(t *testing.T) {
	info := models.ShippingInfo{
		ByCountry: map[string][]models.ShippingCost{
			"179": {
				{ID: "1", Name: "Odbiór osobisty", LowestCost: 0.0},
				{ID: "2", Name: "Kurier", LowestCost: 15.99},
				{ID: "3", Name: "Paczkomat", LowestCost: 9.99},
			},
		},
	}

	if got := CheapestShipping(info, "179"); got != 9.99 {
		t.Fatalf("cheapest = %v, want 9.99", got)
	}
	if got := CheapestShipping(info, "999"); got != 0.0 {
		t.Fatalf("unknown destination = %v, want 0.0", got)
	}
	onlyPickup := models.ShippingInfo{
		ByCountry: map[string][]models.ShippingCost{
			"179": {{ID: "1", Name: "Odbiór osobisty", LowestCost: 0.0}},
		},
	}
	if got := CheapestShipping(onlyPickup, "179"); got != 0.0 {
		t.Fatalf("pickup-only = %v, want 0.0", got)
	}
}

func TestFeatureName(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{key: "liczba_stron", expected: "Liczba stron"},
		{key: "rok_wydania", expected: "Rok wydania"},
		{key: "oprawa", expected: "Oprawa"},
		{key: "tłumacz", expected: "Tłumacz"},
		{key: "seria_wydawnicza", expected: "Seria wydawnicza"},
		{key: "format", expected: "Format"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := FeatureName(tt.key); got != tt.expected {
				t.Fatalf("FeatureName(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *models.ProductRecord
		wantErr bool
	}{
		{name: "valid", record: &models.ProductRecord{ID: "101", Name: "Pan Tadeusz"}, wantErr: false},
		{name: "nil", record: nil, wantErr: true},
		{name: "missing id", record: &models.ProductRecord{Name: "Pan Tadeusz"}, wantErr: true},
		{name: "missing name", record: &models.ProductRecord{ID: "101"}, wantErr: true},
		{name: "blank id", record: &models.ProductRecord{ID: "  ", Name: "Pan Tadeusz"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
