package importer

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gosimple/slug"

	"github.com/mzurek/go-catalog-sync/models"
)

// CreateCategories creates the category forest depth-first under the
// configured home category, recording a source-to-target id mapping per
// created node. A failed create skips that node's entire subtree, since
// its children could never resolve a valid parent. Reruns create fresh
// categories; there is no duplicate detection for categories.
func (im *Importer) CreateCategories(ctx context.Context, forest []*models.CategoryNode) bool {
	if len(forest) == 0 {
		slog.Warn("no categories to create")
		return false
	}
	total := models.CountNodes(forest)
	slog.Info("creating categories", slog.Int("total", total))

	ok := im.createCategoryLevel(ctx, forest, im.cfg.HomeCategoryID)

	summary := im.ledger.Summary()
	slog.Info("finished creating categories",
		slog.Int("created", summary.CreatedCategories),
		slog.Int("failed", total-summary.CreatedCategories))
	return ok
}

func (im *Importer) createCategoryLevel(ctx context.Context, nodes []*models.CategoryNode, parentID int) bool {
	allOK := true
	for _, node := range nodes {
		id, err := im.createCategory(ctx, node, parentID)
		if err != nil {
			slog.Error("create category failed",
				slog.Int("source_id", node.ID),
				slog.String("name", node.Name),
				slog.Any("error", err))
			im.ledger.Fail("category", node, err)
			im.Metrics.IncFailed("category")
			allOK = false
			// Children are skipped: they have no valid parent.
			continue
		}
		im.ledger.MapCategory(node.ID, id)
		im.Metrics.IncCreated("category")
		slog.Debug("created category",
			slog.Int("source_id", node.ID),
			slog.Int("target_id", id),
			slog.String("name", node.Name))
		if len(node.Children) > 0 {
			if !im.createCategoryLevel(ctx, node.Children, id) {
				allOK = false
			}
		}
	}
	return allOK
}

func (im *Importer) createCategory(ctx context.Context, node *models.CategoryNode, parentID int) (int, error) {
	payload := CategorySchema{
		Name:        lang(node.Name),
		LinkRewrite: lang(slug.Make(node.Name)),
		Active:      "1",
		ParentID:    strconv.Itoa(parentID),
	}
	return im.client.Add(ctx, "categories", payload)
}
