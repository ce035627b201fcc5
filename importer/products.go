package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gosimple/slug"

	"github.com/mzurek/go-catalog-sync/models"
	"github.com/mzurek/go-catalog-sync/parser"
)

const (
	dateFormat      = "2006-01-02 15:04:05"
	progressEvery   = 50
	shortDescRunes  = 200
	defaultQuantity = 1
)

// CreateProducts imports records through a fixed-size worker pool.
// Every record is attempted; a failed one becomes exactly one failure
// in the ledger. Returns true only when zero failures were recorded.
func (im *Importer) CreateProducts(ctx context.Context, records []*models.ProductRecord, limit, workers int) bool {
	if len(records) == 0 {
		slog.Warn("no products to create")
		return false
	}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	if workers <= 0 {
		workers = 1
	}
	total := len(records)
	slog.Info("creating products", slog.Int("total", total), slog.Int("workers", workers))

	failuresBefore := im.ledger.FailureCount()
	jobs := make(chan *models.ProductRecord)
	var completed, created atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range jobs {
				if id := im.importRecord(ctx, record); id != 0 {
					created.Add(1)
				}
				if n := completed.Add(1); n%progressEvery == 0 {
					slog.Info("product import progress",
						slog.Int64("completed", n),
						slog.Int("total", total))
				}
			}
		}()
	}

	for _, record := range records {
		jobs <- record
	}
	close(jobs)
	wg.Wait()

	failed := im.ledger.FailureCount() - failuresBefore
	slog.Info("finished creating products",
		slog.Int64("created", created.Load()),
		slog.Int("failed", failed))
	return failed == 0
}

// importRecord isolates one record: any error, including a panic inside
// the parsing or request path, becomes a single failure record and never
// takes down the worker pool.
func (im *Importer) importRecord(ctx context.Context, record *models.ProductRecord) (productID int) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while creating product",
				slog.String("source_id", record.ID),
				slog.Any("panic", r))
			im.ledger.Fail("product", record, fmt.Errorf("panic: %v", r))
			im.Metrics.IncFailed("product")
			productID = 0
		}
	}()

	id, err := im.createProduct(ctx, record)
	if err != nil {
		slog.Error("create product failed",
			slog.String("source_id", record.ID),
			slog.String("name", record.Name),
			slog.Any("error", err))
		im.ledger.Fail("product", record, err)
		im.Metrics.IncFailed("product")
		return 0
	}
	return id
}

func (im *Importer) createProduct(ctx context.Context, record *models.ProductRecord) (int, error) {
	start := im.now()
	defer func() {
		im.Metrics.ObserveProduct(im.now().Sub(start).Seconds())
	}()

	categoryID, ok := im.ledger.CategoryID(record.CategoryID)
	if !ok {
		return 0, fmt.Errorf("category mapping not found for source category %d", record.CategoryID)
	}

	price := parser.NormalizePrice(record.Price.Current)
	if price == 0.0 {
		slog.Warn("price parsed as zero",
			slog.String("source_id", record.ID),
			slog.String("raw", record.Price.Current))
	}

	publisher := publisherName(record.Attributes)
	manufacturerID := 0
	if publisher != "" {
		id, err := im.GetOrCreateManufacturer(ctx, publisher)
		if err != nil {
			slog.Warn("manufacturer resolve failed",
				slog.String("name", publisher),
				slog.Any("error", err))
		} else {
			manufacturerID = id
		}
	}

	features := im.buildFeatures(ctx, record, publisher)
	phys := parser.Physical(record.Attributes)
	description := buildDescription(record)

	payload := ProductSchema{
		CategoryDefaultID:      strconv.Itoa(categoryID),
		TaxRulesGroupID:        "1",
		ShopDefaultID:          "1",
		Reference:              record.DisplayCode,
		ISBN:                   phys.ISBN,
		Width:                  formatAmount(phys.Width),
		Height:                 formatAmount(phys.Height),
		Depth:                  formatAmount(phys.Depth),
		Weight:                 formatAmount(phys.Weight),
		Price:                  formatAmount(price),
		AdditionalShippingCost: formatAmount(parser.CheapestShipping(record.Shipping, im.cfg.DestinationID)),
		MinimalQuantity:        "1",
		Active:                 "1",
		AvailableForOrder:      "1",
		ShowPrice:              "1",
		Indexed:                "1",
		Condition:              phys.Condition,
		ShowCondition:          "1",
		State:                  "1",
		DateAdd:                parser.Freshness(record.Tags, im.now()).Format(dateFormat),
		Name:                   lang(record.Name),
		LinkRewrite:            lang(slug.Make(record.Name)),
		Description:            lang(description),
		DescriptionShort:       lang(truncateRunes(record.Description, shortDescRunes)),
	}
	if manufacturerID != 0 {
		payload.ManufacturerID = strconv.Itoa(manufacturerID)
	}
	payload.Associations.Categories.Category = []IDRef{{ID: categoryID}}
	payload.Associations.Features.Feature = features

	id, err := im.client.Add(ctx, "products", payload)
	if err != nil {
		return 0, err
	}
	im.ledger.AddProduct(id)
	im.Metrics.IncCreated("product")
	slog.Info("created product",
		slog.String("source_id", record.ID),
		slog.Int("target_id", id),
		slog.String("name", record.Name))

	// Image and stock are best effort; the product already exists.
	im.attachImage(ctx, id, record)
	if err := im.setStock(ctx, id, defaultQuantity); err != nil {
		slog.Warn("stock update failed",
			slog.Int("product_id", id),
			slog.Any("error", err))
	}
	return id, nil
}

// buildFeatures resolves every feature association for a record. A
// feature that fails to resolve is logged and dropped; the product is
// still created without it.
func (im *Importer) buildFeatures(ctx context.Context, record *models.ProductRecord, publisher string) []FeatureRef {
	var refs []FeatureRef
	add := func(name, value string) {
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			return
		}
		ref, err := im.featureRef(ctx, name, value)
		if err != nil {
			slog.Warn("feature resolve failed",
				slog.String("feature", name),
				slog.String("value", value),
				slog.Any("error", err))
			return
		}
		refs = append(refs, ref)
	}

	add("Autor", record.Author)
	add("Wydawnictwo", publisher)
	add("Kod produktu", record.DisplayCode)
	for key, value := range record.Attributes {
		if strings.EqualFold(key, "wydawnictwo") {
			continue
		}
		add(parser.FeatureName(key), value)
	}
	return refs
}

func (im *Importer) featureRef(ctx context.Context, name, value string) (FeatureRef, error) {
	featureID, err := im.GetOrCreateFeature(ctx, name)
	if err != nil {
		return FeatureRef{}, err
	}
	valueID, err := im.GetOrCreateFeatureValue(ctx, featureID, value)
	if err != nil {
		return FeatureRef{}, err
	}
	return FeatureRef{ID: featureID, FeatureValueID: valueID}, nil
}

// buildDescription assembles the product page body: the source
// description, the display code, and the shipping options table.
func buildDescription(record *models.ProductRecord) string {
	var parts []string
	if record.Description != "" {
		parts = append(parts, record.Description)
	}
	if record.DisplayCode != "" {
		parts = append(parts, fmt.Sprintf("<p><strong>Kod produktu:</strong> %s</p>", record.DisplayCode))
	}
	if len(record.Shipping.Methods) > 0 {
		parts = append(parts, "<h3>Wysyłka</h3>", "<ul>")
		for _, m := range record.Shipping.Methods {
			parts = append(parts, fmt.Sprintf("<li>%s: %s</li>", m.Name, m.CostGross))
		}
		parts = append(parts, "</ul>")
	}
	return strings.Join(parts, "\n")
}

func publisherName(attrs map[string]string) string {
	for _, key := range []string{"wydawnictwo", "Wydawnictwo"} {
		if v := strings.TrimSpace(attrs[key]); v != "" {
			return v
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
