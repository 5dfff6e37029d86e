package geo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

// Resolver maps addresses to coordinates through a cache backed by a geocoder,
// and coordinates to regions through a bounding box table.
type Resolver struct {
	cache    interfaces.AddressCache
	geocoder interfaces.Geocoder
	regions  *RegionIndex
	logger   arbor.ILogger
	dirty    bool
}

// NewResolver creates a Resolver; a nil regions index never matches
func NewResolver(cache interfaces.AddressCache, geocoder interfaces.Geocoder, regions *RegionIndex, logger arbor.ILogger) *Resolver {
	if regions == nil {
		regions = NewRegionIndex(nil)
	}
	return &Resolver{
		cache:    cache,
		geocoder: geocoder,
		regions:  regions,
		logger:   logger,
	}
}

// AddressKey builds the cache key: lower-cased parts joined by ", "
func AddressKey(address, city, state, zip string) string {
	return strings.ToLower(strings.Join([]string{address, city, state, zip}, ", "))
}

// Resolve returns coordinates for address. A cache hit never calls the geocoder;
// a geocoded hit is appended to the cache exactly once.
func (r *Resolver) Resolve(ctx context.Context, address string) (float64, float64, bool, error) {
	entry, ok, err := r.cache.Lookup(ctx, address)
	if err != nil {
		return 0, 0, false, err
	}
	if ok {
		lat, latErr := strconv.ParseFloat(entry.Lat, 64)
		long, longErr := strconv.ParseFloat(entry.Long, 64)
		if latErr == nil && longErr == nil {
			return lat, long, true, nil
		}
		r.logger.Warn().Str("address", address).Msg("Ignoring malformed cache entry")
	}

	r.logger.Debug().Str("address", address).Msg("Fetching lat/long for address")
	lat, long, found, err := r.geocoder.Geocode(ctx, address)
	if err != nil {
		r.logger.Warn().Err(err).Str("address", address).Msg("Geocoding failed")
		return 0, 0, false, nil
	}
	if !found {
		return 0, 0, false, nil
	}

	err = r.cache.Append(ctx, models.AddressEntry{
		Address:   address,
		Lat:       models.FormatNumber(lat),
		Long:      models.FormatNumber(long),
		CreatedAt: time.Now(),
	})
	if err != nil {
		return lat, long, true, fmt.Errorf("failed to cache resolved address: %w", err)
	}
	r.dirty = true
	return lat, long, true, nil
}

// FindRegion returns the first region containing the point
func (r *Resolver) FindRegion(lat, long float64) *models.Region {
	region := r.regions.FindRegion(lat, long)
	if region == nil {
		r.logger.Debug().Float64("lat", lat).Float64("long", long).Msg("No region contains point")
	}
	return region
}

// Dirty reports whether new addresses were cached since the last Flush
func (r *Resolver) Dirty() bool {
	return r.dirty
}

// Flush persists the cache when it changed
func (r *Resolver) Flush(ctx context.Context) error {
	if !r.dirty {
		return nil
	}
	if err := r.cache.Flush(ctx); err != nil {
		return err
	}
	r.dirty = false
	return nil
}
