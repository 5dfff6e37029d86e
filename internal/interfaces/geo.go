package interfaces

import (
	"context"

	"github.com/ternarybob/harvester/internal/models"
)

// Geocoder resolves a free-text address through an external provider.
// ok is false when the provider has no match.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, long float64, ok bool, err error)
}

// AddressCache stores resolved addresses keyed by the exact normalized address string.
type AddressCache interface {
	// Lookup returns the cached entry, ok is false on a miss
	Lookup(ctx context.Context, address string) (entry models.AddressEntry, ok bool, err error)

	// Append records a newly resolved address
	Append(ctx context.Context, entry models.AddressEntry) error

	// Flush persists pending entries to durable storage
	Flush(ctx context.Context) error
}
