package crawler

import "github.com/mzurek/go-catalog-sync/models"

// Crop returns a reduced copy of the category forest: the first nCats
// top-level nodes, and recursively the first nSubcats children per node
// through depth nLayers, roots counting as depth one. Nodes beyond that
// depth keep no children. The input forest is never mutated, so the full
// and cropped trees cannot alias each other.
func Crop(forest []*models.CategoryNode, nCats, nSubcats, nLayers int) []*models.CategoryNode {
	roots := forest
	if nCats < len(roots) {
		roots = roots[:nCats]
	}
	out := make([]*models.CategoryNode, 0, len(roots))
	for _, n := range roots {
		out = append(out, cropNode(n, 1, nSubcats, nLayers))
	}
	return out
}

func cropNode(n *models.CategoryNode, depth, nSubcats, nLayers int) *models.CategoryNode {
	clone := &models.CategoryNode{
		ID:            n.ID,
		Name:          n.Name,
		NumberOfPages: n.NumberOfPages,
	}
	if depth > nLayers {
		return clone
	}
	children := n.Children
	if nSubcats < len(children) {
		children = children[:nSubcats]
	}
	for _, child := range children {
		clone.Children = append(clone.Children, cropNode(child, depth+1, nSubcats, nLayers))
	}
	return clone
}
