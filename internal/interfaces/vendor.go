package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/harvester/internal/models"
)

// ErrHaltPipeline is returned by GenRequest when an upstream precondition
// (session, auth) is not met; the Menu phase stops and ends the run.
var ErrHaltPipeline = errors.New("upstream precondition not met, halting pipeline")

// LocationSink receives what a fetcher discovers during the Location phase
type LocationSink interface {
	// LocationExists reports whether a location file was already written
	LocationExists(ctx context.Context, fileName string) (bool, error)

	// SaveLocation writes one location file
	SaveLocation(ctx context.Context, fileName string, record models.LocationRecord) error

	// Log appends a status line for the current run (fields end with a status token)
	Log(fields ...string)
}

// StatusLog appends status lines for the current run
type StatusLog interface {
	Log(fields ...string)
}

// MenuRowWriter receives the products of one menu record during CSV flattening
type MenuRowWriter interface {
	// WriteItem builds and writes one CSV row for item sold at store
	WriteItem(ctx context.Context, store models.LocationRecord, item models.MenuItem) error

	// Costs returns aggregated option costs keyed by cost-file id for the record being written
	Costs() map[string]map[string]float64
}

// VendorFetcher is the per-chain strategy used by every scraping phase
type VendorFetcher interface {
	// GetServiceName returns the chain identifier
	GetServiceName() models.Parser

	// GetIdentifierID derives the per-row identifier of a seed row
	GetIdentifierID(row models.SeedRow) string

	// URLPageSize is the page size passed to FetchOnePage
	URLPageSize() int

	// FetchOnePage fetches one page of locations for a seed row and returns
	// the total number of records known so far; the page loop stops once
	// this total is not greater than the next page offset
	FetchOnePage(ctx context.Context, sink LocationSink, row models.SeedRow, parentID string, size, offset int) (int, error)

	// GenRequest fetches the menu payload for a location; a nil payload means failure
	GenRequest(ctx context.Context, store models.LocationRecord) (storeID string, payload models.Payload, err error)

	// ParseItems enriches a menu payload and returns auxiliary cost files
	ParseItems(ctx context.Context, log StatusLog, menu models.Payload, itemID string) (models.Payload, []string, error)

	// WriteMenuToCSV maps the products of a record to rows
	WriteMenuToCSV(ctx context.Context, record models.MenuRecord, storeID string, w MenuRowWriter) error
}
