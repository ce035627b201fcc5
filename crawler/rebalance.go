package crawler

import (
	"math"
	"sort"

	"github.com/mzurek/go-catalog-sync/models"
)

// Rebalance trims per-leaf page budgets toward a target sample size of
// nProducts records, given the observed page density. Leaves are visited
// in ascending page order; each leaf's last page is reserved as possibly
// partial, so only pages-1 count as usable. Leaves short of the optimal
// page count accumulate debt, which over-supplied leaves may then absorb
// as extra granted pages.
//
// It returns the estimated total record count after trimming and the
// residual debt. Residual debt above zero means the sample target is
// unreachable with the discovered pages; callers report it but do not
// treat it as a failure.
func Rebalance(leaves []*models.CategoryNode, nProducts, density int) (estimated, residualDebt int) {
	if len(leaves) == 0 || density <= 0 {
		return 0, 0
	}

	optimal := int(math.Ceil(float64(nProducts) / float64(len(leaves)) / float64(density)))

	ordered := make([]*models.CategoryNode, len(leaves))
	copy(ordered, leaves)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].NumberOfPages < ordered[j].NumberOfPages
	})

	debt := 0
	for _, leaf := range ordered {
		usable := leaf.NumberOfPages - 1
		if usable > optimal {
			grant := usable - optimal
			if debt < grant {
				grant = debt
			}
			debt -= grant
			leaf.NumberOfPages = optimal + grant
		} else {
			debt += optimal - usable
		}
	}

	for _, leaf := range ordered {
		estimated += leaf.NumberOfPages * density
	}
	return estimated, debt
}
