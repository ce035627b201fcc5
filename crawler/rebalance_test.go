package crawler

import (
	"testing"

	"github.com/mzurek/go-catalog-sync/models"
)

func leavesWithPages(pages ...int) []*models.CategoryNode {
	leaves := make([]*models.CategoryNode, len(pages))
	for i, p := range pages {
		leaves[i] = &models.CategoryNode{ID: i + 1, NumberOfPages: p}
	}
	return leaves
}

func totalPages(leaves []*models.CategoryNode) int {
	total := 0
	for _, leaf := range leaves {
		total += leaf.NumberOfPages
	}
	return total
}

func TestRebalanceNeverGrowsTotal(t *testing.T) {
	tests := []struct {
		name      string
		pages     []int
		nProducts int
		density   int
	}{
		{name: "plenty of pages", pages: []int{10, 10, 10}, nProducts: 60, density: 12},
		{name: "scarce pages", pages: []int{1, 1, 1}, nProducts: 500, density: 12},
		{name: "mixed", pages: []int{3, 1, 7, 2}, nProducts: 100, density: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaves := leavesWithPages(tt.pages...)
			before := totalPages(leaves)
			Rebalance(leaves, tt.nProducts, tt.density)
			if after := totalPages(leaves); after > before {
				t.Fatalf("total pages grew from %d to %d", before, after)
			}
			for i, leaf := range leaves {
				if leaf.NumberOfPages > tt.pages[i] {
					t.Fatalf("leaf %d grew from %d to %d pages", leaf.ID, tt.pages[i], leaf.NumberOfPages)
				}
				if leaf.NumberOfPages < 1 {
					t.Fatalf("leaf %d dropped below one page", leaf.ID)
				}
			}
		})
	}
}

func TestRebalanceDebtTransfer(t *testing.T) {
	// Two leaves with three and one discovered pages, density 12,
	// target 30. The optimal share is two pages per leaf. The one-page
	// leaf has no usable page and owes two pages of debt; the three-page
	// leaf's two usable pages match the optimal exactly, so it cannot
	// absorb any debt and keeps its discovered count.
	leaves := leavesWithPages(3, 1)
	estimated, residual := Rebalance(leaves, 30, 12)

	if leaves[0].NumberOfPages != 3 {
		t.Fatalf("rich leaf pages = %d, want 3", leaves[0].NumberOfPages)
	}
	if leaves[1].NumberOfPages != 1 {
		t.Fatalf("poor leaf pages = %d, want 1", leaves[1].NumberOfPages)
	}
	if estimated != 48 {
		t.Fatalf("estimated = %d, want 48", estimated)
	}
	if residual != 2 {
		t.Fatalf("residual debt = %d, want 2", residual)
	}
}

func TestRebalanceResidualDebtReported(t *testing.T) {
	// Every leaf has a single page: no leaf can absorb anyone's debt,
	// so the unreachable portion of the target surfaces as residual.
	leaves := leavesWithPages(1, 1)
	estimated, residual := Rebalance(leaves, 100, 10)

	if estimated != 20 {
		t.Fatalf("estimated = %d, want 20", estimated)
	}
	if residual <= 0 {
		t.Fatalf("residual debt = %d, want positive", residual)
	}
}

func TestRebalanceGenerousBudgetTrims(t *testing.T) {
	leaves := leavesWithPages(10, 10)
	estimated, residual := Rebalance(leaves, 40, 10)

	// Optimal is ceil((40/2)/10) = 2 pages per leaf.
	for _, leaf := range leaves {
		if leaf.NumberOfPages != 2 {
			t.Fatalf("leaf %d pages = %d, want 2", leaf.ID, leaf.NumberOfPages)
		}
	}
	if estimated != 40 {
		t.Fatalf("estimated = %d, want 40", estimated)
	}
	if residual != 0 {
		t.Fatalf("residual = %d, want 0", residual)
	}
}

func TestRebalanceDebtAbsorbedByRichLeaf(t *testing.T) {
	leaves := leavesWithPages(5, 2, 9, 1)
	Rebalance(leaves, 80, 15)

	// Optimal is ceil((80/4)/15) = 2. The one-page and two-page leaves
	// accumulate three pages of debt; the five-page leaf absorbs two of
	// them, the nine-page leaf the last one.
	expected := []int{4, 2, 3, 1}
	for i, leaf := range leaves {
		if leaf.NumberOfPages != expected[i] {
			t.Fatalf("leaf %d pages = %d, want %d", leaf.ID, leaf.NumberOfPages, expected[i])
		}
	}
}

func TestRebalanceEstimateNonDecreasingWithTarget(t *testing.T) {
	previous := 0
	for target := 10; target <= 400; target += 30 {
		leaves := leavesWithPages(6, 2, 11, 1, 4)
		estimated, _ := Rebalance(leaves, target, 12)
		if estimated < previous {
			t.Fatalf("estimated dropped from %d to %d at target %d", previous, estimated, target)
		}
		previous = estimated
	}
}

func TestRebalanceDeterministic(t *testing.T) {
	first := leavesWithPages(6, 2, 11, 1, 4)
	second := leavesWithPages(6, 2, 11, 1, 4)

	e1, d1 := Rebalance(first, 120, 12)
	e2, d2 := Rebalance(second, 120, 12)

	if e1 != e2 || d1 != d2 {
		t.Fatalf("identical inputs gave (%d, %d) and (%d, %d)", e1, d1, e2, d2)
	}
	for i := range first {
		if first[i].NumberOfPages != second[i].NumberOfPages {
			t.Fatalf("leaf %d diverged: %d vs %d", i+1, first[i].NumberOfPages, second[i].NumberOfPages)
		}
	}
}

func TestRebalanceEmptyLeaves(t *testing.T) {
	estimated, residual := Rebalance(nil, 100, 10)
	if estimated != 0 || residual != 0 {
		t.Fatalf("empty leaves = (%d, %d), want (0, 0)", estimated, residual)
	}
}
