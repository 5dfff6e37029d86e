package imtiaz

import (
	"context"

	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/vendors"
)

// WriteMenuToCSV writes one row per product, parented by its sub-section
func (f *Fetcher) WriteMenuToCSV(ctx context.Context, record models.MenuRecord, storeID string, w interfaces.MenuRowWriter) error {
	if len(record.Store) == 0 || len(record.MenuDetail) == 0 {
		f.logger.Warn().Str("store", storeID).Msg("Invalid menu structure")
		return nil
	}

	var list ProductList
	if err := vendors.FromPayload(record.MenuDetail, &list); err != nil {
		return err
	}
	if len(list.Data) == 0 {
		f.logger.Warn().Str("store", storeID).Msg("No products found")
		return nil
	}

	written := 0
	for _, product := range list.Data {
		item := models.MenuItem{
			ID:          models.StringValue(product["id"], models.NotAvailable),
			ParentID:    models.StringValue(product["sub_section_id"], models.NotAvailable),
			ParentName:  models.StringValue(product["sub_section_name"], models.NotAvailable),
			Name:        models.StringValue(product["name"], models.NotAvailable),
			Description: models.StringValue(product["desc"], ""),
			Price:       models.FloatValue(product["price"]),
			ImageURL:    models.StringValue(product["img_url"], models.NotAvailable),
		}
		if err := vendors.WriteItem(ctx, w, record.Store, item); err != nil {
			return err
		}
		written++
	}

	f.logger.Info().Str("store", storeID).Int("items", written).Msg("Imtiaz products written")
	return nil
}
