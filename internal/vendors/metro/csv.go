package metro

import (
	"context"

	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/vendors"
)

// WriteMenuToCSV writes one row per product, parented by its leaf category
func (f *Fetcher) WriteMenuToCSV(ctx context.Context, record models.MenuRecord, storeID string, w interfaces.MenuRowWriter) error {
	var menu ProductMenu
	if err := vendors.FromPayload(record.MenuDetail, &menu); err != nil {
		return err
	}
	store := record.Store
	if store == nil {
		store = models.LocationRecord{}
	}

	f.logger.Info().Str("store", storeID).Int("products", len(menu.Products)).Msg("Writing Metro products")

	for _, product := range menu.Products {
		parentName := models.StringValue(product["tier3Name"], models.NotAvailable)
		if category, ok := product["fetch_category"]; ok {
			parentName = models.StringValue(category, parentName)
		}

		item := models.MenuItem{
			ID:          models.StringValue(product["id"], models.NotAvailable),
			ParentID:    models.StringValue(product["tier3Id"], models.NotAvailable),
			ParentName:  parentName,
			Name:        models.StringValue(product["product_name"], models.NotAvailable),
			Description: models.StringValue(product["description"], models.NotAvailable),
			Price:       models.FloatValue(product["price"]),
			ImageURL:    models.StringValue(product["url"], models.NotAvailable),
		}
		if err := vendors.WriteItem(ctx, w, store, item); err != nil {
			return err
		}
	}
	return nil
}
