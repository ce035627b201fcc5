package importer

import (
	"sync"

	"github.com/mzurek/go-catalog-sync/models"
)

// Ledger collects everything one run creates: the category id mapping,
// created entity ids, and failure records. All methods are safe for
// concurrent use by the product workers.
type Ledger struct {
	mu sync.Mutex

	categoryMap       map[int]int
	createdCategories []int
	createdProducts   []int
	createdCarriers   []int
	failures          []models.FailureRecord
}

func NewLedger() *Ledger {
	return &Ledger{categoryMap: make(map[int]int)}
}

// MapCategory records that source category src was created as target id.
func (l *Ledger) MapCategory(src, target int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.categoryMap[src] = target
	l.createdCategories = append(l.createdCategories, target)
}

// CategoryID resolves a source category id to its created target id.
func (l *Ledger) CategoryID(src int) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.categoryMap[src]
	return id, ok
}

func (l *Ledger) AddProduct(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.createdProducts = append(l.createdProducts, id)
}

func (l *Ledger) AddCarrier(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.createdCarriers = append(l.createdCarriers, id)
}

// Fail records one failure without interrupting the run.
func (l *Ledger) Fail(kind string, data any, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, models.FailureRecord{
		Type:  kind,
		Data:  data,
		Error: err.Error(),
	})
}

func (l *Ledger) FailureCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.failures)
}

// Summary snapshots the ledger into the persistable run summary.
func (l *Ledger) Summary() *models.Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &models.Summary{
		CreatedCategories: len(l.createdCategories),
		CreatedProducts:   len(l.createdProducts),
		CreatedCarriers:   len(l.createdCarriers),
		FailedOperations:  len(l.failures),
		CategoryMappings:  len(l.categoryMap),
		CategoryIDs:       append([]int(nil), l.createdCategories...),
		ProductIDs:        append([]int(nil), l.createdProducts...),
		CarrierIDs:        append([]int(nil), l.createdCarriers...),
		Failures:          append([]models.FailureRecord(nil), l.failures...),
	}
}
