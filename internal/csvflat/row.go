package csvflat

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/geo"
	"github.com/ternarybob/harvester/internal/models"
)

// Locator resolves addresses and regions for stores without coordinates
type Locator interface {
	Resolve(ctx context.Context, address string) (lat, long float64, ok bool, err error)
	FindRegion(lat, long float64) *models.Region
}

// RowBuilder turns a store and one of its products into a CSV row
type RowBuilder struct {
	locator Locator
	brand   common.BrandConfig
	logger  arbor.ILogger
	now     func() time.Time
}

// NewRowBuilder creates a RowBuilder; locator may be nil to disable geocoding
func NewRowBuilder(locator Locator, brand common.BrandConfig, logger arbor.ILogger) *RowBuilder {
	return &RowBuilder{
		locator: locator,
		brand:   brand,
		logger:  logger,
		now:     time.Now,
	}
}

// Build fills the row. Coordinates are geocoded only when the store has none
// and carries an address; the region id then comes from the bounding box table.
func (b *RowBuilder) Build(ctx context.Context, store models.LocationRecord, item models.MenuItem) models.MenuRow {
	address := store.String("address", models.NotAvailable)
	city := store.String("city", models.NotAvailable)
	state := store.String("state", models.NotAvailable)
	zip := store.String("zipcode", models.NotAvailable)
	cbsaID := store.String("CBSAFP", "0")

	lat := store.Float("latitude")
	long := store.Float("longitude")
	latText := models.FormatNumber(lat)
	longText := models.FormatNumber(long)

	if lat == 0 && long == 0 && address != models.NotAvailable && b.locator != nil {
		latText, longText = "", ""
		resolvedLat, resolvedLong, ok, err := b.locator.Resolve(ctx, geo.AddressKey(address, city, state, zip))
		if err != nil {
			b.logger.Warn().Err(err).Str("address", address).Msg("Address resolution failed")
		}
		if ok {
			latText = models.FormatNumber(resolvedLat)
			longText = models.FormatNumber(resolvedLong)
			if region := b.locator.FindRegion(resolvedLat, resolvedLong); region != nil {
				cbsaID = region.CBSAFP
			}
		}
	}

	return models.MenuRow{
		MenuID:          item.ID,
		MenuParentID:    item.ParentID,
		MenuParentName:  CleanText(item.ParentName),
		MenuName:        CleanText(item.Name),
		MenuNameClean:   CleanSpecial(item.Name),
		MenuDescription: CleanText(item.Description),
		Price:           item.Price,
		StoreID:         store.String("store_id", "0"),
		ProductImageURL: item.ImageURL,
		ZipCode:         zip,
		City:            city,
		State:           state,
		Address:         address,
		Lat:             latText,
		Long:            longText,
		Brand:           b.brand.Name,
		BrandID:         b.brand.ID,
		Date:            store.String("scrape_date", b.now().Format(models.ScrapeDateLayout)),
		CBSAID:          cbsaID,
		CBSA:            models.NotAvailable,
		UTCOffset:       store.String("utcoffset", "0"),
	}
}
