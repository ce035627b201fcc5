package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/mzurek/go-catalog-sync/models"
)

// attachImage downloads the best available source image and re-uploads
// it to the created product. Every failure here is logged and swallowed;
// a product without its cover is still a valid product.
func (im *Importer) attachImage(ctx context.Context, productID int, record *models.ProductRecord) {
	imageURL := record.ThumbnailHighRes
	if imageURL == "" {
		imageURL = record.Thumbnail
	}
	if imageURL == "" {
		return
	}
	if strings.HasPrefix(imageURL, "/") {
		imageURL = strings.TrimRight(im.cfg.SourceURL, "/") + imageURL
	}

	data, err := im.client.FetchBytes(ctx, imageURL)
	if err != nil {
		slog.Warn("image download failed",
			slog.String("url", imageURL),
			slog.Any("error", err))
		return
	}

	filename := "image.jpg"
	if parsed, err := url.Parse(imageURL); err == nil {
		if base := path.Base(parsed.Path); base != "" && base != "." && base != "/" {
			filename = base
		}
	}

	if err := im.client.UploadImage(ctx, productID, filename, data, mimeByExtension(filename)); err != nil {
		slog.Warn("image upload failed",
			slog.Int("product_id", productID),
			slog.Any("error", err))
	}
}

func mimeByExtension(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

// setStock flips the auto-created stock record to the given quantity.
// The target system creates one stock_available row per product, so this
// is a find-then-edit, never a create.
func (im *Importer) setStock(ctx context.Context, productID, quantity int) error {
	stockID, err := im.client.FindID(ctx, "stock_availables", map[string]string{
		"id_product": strconv.Itoa(productID),
	})
	if err != nil {
		return err
	}
	if stockID == 0 {
		return fmt.Errorf("no stock_available record for product %d", productID)
	}
	payload := StockAvailableSchema{
		ID:                 strconv.Itoa(stockID),
		ProductID:          strconv.Itoa(productID),
		ProductAttributeID: "0",
		ShopID:             "1",
		Quantity:           strconv.Itoa(quantity),
		DependsOnStock:     "0",
		OutOfStock:         "2",
	}
	return im.client.Edit(ctx, "stock_availables", stockID, payload)
}
