package crawler

import (
	"testing"

	"github.com/mzurek/go-catalog-sync/models"
)

func buildForest() []*models.CategoryNode {
	return []*models.CategoryNode{
		{
			ID: 1, Name: "Literatura",
			Children: []*models.CategoryNode{
				{ID: 11, Name: "Powieść", Children: []*models.CategoryNode{
					{ID: 111, Name: "Kryminał"},
					{ID: 112, Name: "Fantastyka"},
				}},
				{ID: 12, Name: "Poezja"},
				{ID: 13, Name: "Dramat"},
			},
		},
		{
			ID: 2, Name: "Historia",
			Children: []*models.CategoryNode{
				{ID: 21, Name: "Starożytność"},
				{ID: 22, Name: "Średniowiecze"},
			},
		},
		{ID: 3, Name: "Nauka"},
	}
}

func TestCropLimitsTopCategories(t *testing.T) {
	got := Crop(buildForest(), 2, 10, 10)
	if len(got) != 2 {
		t.Fatalf("top categories = %d, want 2", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("crop must preserve order, got ids %d, %d", got[0].ID, got[1].ID)
	}
}

func TestCropLimitsSubcategories(t *testing.T) {
	got := Crop(buildForest(), 3, 2, 10)
	if n := len(got[0].Children); n != 2 {
		t.Fatalf("subcategories = %d, want 2", n)
	}
	if got[0].Children[0].ID != 11 || got[0].Children[1].ID != 12 {
		t.Fatalf("crop must keep the first subcategories in order")
	}
}

func TestCropLimitsDepth(t *testing.T) {
	// Nodes at depth nLayers keep their children; those children, being
	// beyond the limit, are stripped to leaves.
	got := Crop(buildForest(), 3, 10, 2)
	node := got[0].Children[0]
	if node.ID != 11 {
		t.Fatalf("expected node 11, got %d", node.ID)
	}
	if len(node.Children) != 2 {
		t.Fatalf("depth-2 node children = %d, want 2", len(node.Children))
	}
	for _, grandchild := range node.Children {
		if len(grandchild.Children) != 0 {
			t.Fatalf("node %d is beyond the depth limit and must be a leaf", grandchild.ID)
		}
	}
}

func TestCropDepthOneStripsGrandchildren(t *testing.T) {
	got := Crop(buildForest(), 3, 10, 1)
	for _, node := range got {
		for _, child := range node.Children {
			if len(child.Children) != 0 {
				t.Fatalf("node %d is beyond depth 1 and must be a leaf", child.ID)
			}
		}
	}
}

func TestCropDoesNotMutateInput(t *testing.T) {
	forest := buildForest()
	Crop(forest, 1, 1, 1)

	if len(forest) != 3 {
		t.Fatalf("input forest length changed to %d", len(forest))
	}
	if len(forest[0].Children) != 3 {
		t.Fatalf("input children length changed to %d", len(forest[0].Children))
	}
	if len(forest[0].Children[0].Children) != 2 {
		t.Fatalf("input grandchildren length changed to %d", len(forest[0].Children[0].Children))
	}
}

func TestCropOversizedLimits(t *testing.T) {
	got := Crop(buildForest(), 100, 100, 100)
	if models.CountNodes(got) != models.CountNodes(buildForest()) {
		t.Fatalf("oversized limits must keep the whole forest")
	}
}
