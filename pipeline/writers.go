package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mzurek/go-catalog-sync/models"
)

// DocumentWriter accumulates records and writes them as one JSON array
// document on Close. The import phase loads that document back with
// models.LoadProducts, so the array form is part of the phase contract.
type DocumentWriter struct {
	path    string
	mu      sync.Mutex
	records []*models.ProductRecord
	written bool
}

// NewDocumentWriter initialises a product-list document writer.
func NewDocumentWriter(path string) (*DocumentWriter, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	return &DocumentWriter{path: path}, nil
}

// Write buffers records until Close.
func (dw *DocumentWriter) Write(records []*models.ProductRecord) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	dw.records = append(dw.records, records...)
	return nil
}

// Close writes the accumulated records as a JSON document.
func (dw *DocumentWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if err := models.SaveProducts(dw.path, dw.records); err != nil {
		return err
	}
	dw.written = true
	return nil
}

// Validate ensures the document holds at least one record.
func (dw *DocumentWriter) Validate() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if !dw.written {
		return fmt.Errorf("product document %s not written", dw.path)
	}
	if len(dw.records) == 0 {
		return fmt.Errorf("product document %s is empty", dw.path)
	}
	return nil
}

// Count reports how many records have been buffered so far.
func (dw *DocumentWriter) Count() int {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return len(dw.records)
}

// CSVWriter writes a flat export of sampled records.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	header := []string{"id", "category_id", "name", "author", "price", "display_code", "tags", "thumbnail"}
	if err := writer.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends records to the CSV output.
func (cw *CSVWriter) Write(records []*models.ProductRecord) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, record := range records {
		row := []string{
			record.ID,
			fmt.Sprintf("%d", record.CategoryID),
			record.Name,
			record.Author,
			record.Price.Current,
			record.DisplayCode,
			strings.Join(record.Tags, "|"),
			record.Thumbnail,
		}
		if err := cw.writer.Write(row); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content besides the header.
func (cw *CSVWriter) Validate() error {
	info, err := cw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// DualWriter feeds the JSON document and the CSV export simultaneously.
type DualWriter struct {
	document *DocumentWriter
	csv      *CSVWriter
	mu       sync.Mutex
}

// NewDualWriter creates the document writer plus a CSV sidecar.
func NewDualWriter(documentPath, csvPath string) (*DualWriter, error) {
	document, err := NewDocumentWriter(documentPath)
	if err != nil {
		return nil, fmt.Errorf("create document writer: %w", err)
	}
	csvWriter, err := NewCSVWriter(csvPath)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}
	return &DualWriter{document: document, csv: csvWriter}, nil
}

// Write writes records to both outputs.
func (dw *DualWriter) Write(records []*models.ProductRecord) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.document.Write(records); err != nil {
		return fmt.Errorf("document write failed: %w", err)
	}
	if err := dw.csv.Write(records); err != nil {
		return fmt.Errorf("csv write failed: %w", err)
	}
	return nil
}

// Close closes both writers.
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error
	if err := dw.document.Close(); err != nil {
		errs = append(errs, fmt.Errorf("document close failed: %w", err))
	}
	if err := dw.csv.Close(); err != nil {
		errs = append(errs, fmt.Errorf("csv close failed: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors: %v", errs)
	}
	return nil
}

// Validate validates both outputs.
func (dw *DualWriter) Validate() error {
	var errs []error
	if err := dw.document.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := dw.csv.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %v", errs)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
