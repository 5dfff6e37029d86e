package csvflat

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/harvester/internal/models"
)

// Writer writes MenuRows to a CSV file, header first.
// It implements interfaces.MenuRowWriter for one record at a time.
type Writer struct {
	file    *os.File
	csv     *csv.Writer
	builder *RowBuilder
	costs   map[string]map[string]float64
	rows    int
}

// Create truncates path, writes the header and returns a Writer
func Create(path string, builder *RowBuilder) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := &Writer{
		file:    file,
		csv:     csv.NewWriter(file),
		builder: builder,
	}
	if err := w.csv.Write(models.CSVHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return w, nil
}

// SetCosts sets the aggregated cost map exposed to the vendor for the next record
func (w *Writer) SetCosts(costs map[string]map[string]float64) {
	w.costs = costs
}

// Costs returns the cost map of the current record
func (w *Writer) Costs() map[string]map[string]float64 {
	return w.costs
}

// WriteItem builds and writes one row
func (w *Writer) WriteItem(ctx context.Context, store models.LocationRecord, item models.MenuItem) error {
	return w.WriteRow(w.builder.Build(ctx, store, item))
}

// WriteRow writes a prepared row
func (w *Writer) WriteRow(row models.MenuRow) error {
	if err := w.csv.Write(row.Values()); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	w.rows++
	return nil
}

// Rows returns the number of data rows written
func (w *Writer) Rows() int {
	return w.rows
}

// Close flushes and closes the file
func (w *Writer) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return w.file.Close()
}
