package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/mzurek/go-catalog-sync/models"
)

// listingEntry is the partial record extracted from one listing tile,
// carried into the detail-page visit through the request context.
type listingEntry struct {
	ID           string
	Name         string
	Price        string
	Manufacturer string
	Thumbnail    string
	DetailURL    string
}

// extractListingEntry pulls the required fields from a listing tile.
// Entries lacking an identifier, a name, or a detail link cannot be
// processed and are reported as not ok.
func extractListingEntry(e *colly.HTMLElement) (listingEntry, bool) {
	entry := listingEntry{
		ID:           strings.TrimSpace(e.Attr("data-product-id")),
		Name:         strings.TrimSpace(e.ChildText("a.product-name")),
		Price:        strings.TrimSpace(e.ChildText(".price")),
		Manufacturer: strings.TrimSpace(e.ChildText(".manufacturer a")),
		Thumbnail:    e.Request.AbsoluteURL(e.ChildAttr("img", "src")),
		DetailURL:    e.Request.AbsoluteURL(e.ChildAttr("a.product-name", "href")),
	}
	if entry.ID == "" || entry.Name == "" || entry.DetailURL == "" {
		return listingEntry{}, false
	}
	return entry, true
}

// buildRecord augments a listing entry with the fields available only on
// the product detail page.
func buildRecord(node *models.CategoryNode, entry listingEntry, e *colly.HTMLElement) *models.ProductRecord {
	attrs := map[string]string{}
	e.DOM.Find("table.attributes tr").Each(func(_ int, row *goquery.Selection) {
		key := attrKey(row.Find("th").Text())
		val := strings.TrimSpace(row.Find("td").Text())
		if key != "" && val != "" {
			attrs[key] = val
		}
	})
	if entry.Manufacturer != "" {
		if _, ok := attrs["wydawnictwo"]; !ok {
			attrs["wydawnictwo"] = entry.Manufacturer
		}
	}

	description := ""
	if html, err := e.DOM.Find("#box_description").Html(); err == nil {
		description = strings.TrimSpace(html)
	}

	var tags []string
	e.DOM.Find(".tags a").Each(func(_ int, s *goquery.Selection) {
		if tag := strings.TrimSpace(s.Text()); tag != "" {
			tags = append(tags, tag)
		}
	})

	return &models.ProductRecord{
		ID:               entry.ID,
		CategoryID:       node.ID,
		Name:             entry.Name,
		Author:           strings.TrimSpace(e.ChildText(".author a")),
		DisplayCode:      strings.TrimSpace(e.ChildText(".product-code span")),
		Description:      description,
		Price:            models.Price{Current: entry.Price},
		Attributes:       attrs,
		Tags:             tags,
		Thumbnail:        entry.Thumbnail,
		ThumbnailHighRes: e.Request.AbsoluteURL(e.ChildAttr("a.gallery-image", "href")),
	}
}

// attrKey normalizes an attribute header into the snake_case keys the
// import phase matches against.
func attrKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.TrimSuffix(key, ":")
	return strings.ReplaceAll(key, " ", "_")
}

// resolveCarrierNames maps the carrier ids inside the destination-keyed
// rate schedule to the carrier names listed alongside it.
func resolveCarrierNames(info *models.ShippingInfo) {
	if len(info.Methods) == 0 || len(info.ByCountry) == 0 {
		return
	}
	names := make(map[string]string, len(info.Methods))
	for _, m := range info.Methods {
		names[m.ID] = m.Name
	}
	for country, costs := range info.ByCountry {
		for i := range costs {
			if name, ok := names[costs[i].ID]; ok {
				costs[i].Name = name
			}
		}
		info.ByCountry[country] = costs
	}
}
