// Package vendortest provides in-memory collaborators for fetcher tests.
package vendortest

import (
	"context"
	"strings"

	"github.com/ternarybob/harvester/internal/models"
)

// Sink keeps location files in memory and records status lines
type Sink struct {
	Files map[string]models.LocationRecord
	Lines []string
}

func NewSink() *Sink {
	return &Sink{Files: map[string]models.LocationRecord{}}
}

func (s *Sink) LocationExists(ctx context.Context, fileName string) (bool, error) {
	_, ok := s.Files[fileName]
	return ok, nil
}

func (s *Sink) SaveLocation(ctx context.Context, fileName string, record models.LocationRecord) error {
	s.Files[fileName] = record
	return nil
}

func (s *Sink) Log(fields ...string) {
	s.Lines = append(s.Lines, strings.Join(fields, ","))
}

// Log records status lines joined by commas
type Log struct {
	Lines []string
}

func (l *Log) Log(fields ...string) {
	l.Lines = append(l.Lines, strings.Join(fields, ","))
}

// Rows records every item written for CSV output
type Rows struct {
	Items  []models.MenuItem
	Stores []models.LocationRecord
	costs  map[string]map[string]float64
}

func (r *Rows) WriteItem(ctx context.Context, store models.LocationRecord, item models.MenuItem) error {
	r.Items = append(r.Items, item)
	r.Stores = append(r.Stores, store)
	return nil
}

func (r *Rows) Costs() map[string]map[string]float64 {
	return r.costs
}

// SetCosts sets the cost map returned by Costs
func (r *Rows) SetCosts(costs map[string]map[string]float64) {
	r.costs = costs
}
