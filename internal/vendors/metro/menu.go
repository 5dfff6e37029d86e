package metro

import (
	"context"
	"strconv"

	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/vendors"
)

// CategoryMenu is the menu phase payload: the leaf categories of one store
type CategoryMenu struct {
	Categories vendors.Products `json:"categories"`
	StoreID    interface{}      `json:"store_id"`
}

// ProductMenu is the post-menu payload
type ProductMenu struct {
	Products   vendors.Products `json:"products"`
	TotalCount int              `json:"total_count"`
	Categories vendors.Products `json:"categories"`
	StoreID    interface{}      `json:"store_id"`
}

// leafCategories returns the third tier: categories whose parent's parent is a root
func leafCategories(all vendors.Products) vendors.Products {
	idsOf := func(categories vendors.Products) map[string]bool {
		ids := make(map[string]bool, len(categories))
		for _, c := range categories {
			ids[models.StringValue(c["id"], "")] = true
		}
		return ids
	}
	childrenOf := func(parents map[string]bool) vendors.Products {
		var children vendors.Products
		for _, c := range all {
			if c["parentId"] == nil {
				continue
			}
			if parents[models.StringValue(c["parentId"], "")] {
				children = append(children, c)
			}
		}
		return children
	}

	var roots vendors.Products
	for _, c := range all {
		if c["parentId"] == nil {
			roots = append(roots, c)
		}
	}
	tier2 := childrenOf(idsOf(roots))
	return childrenOf(idsOf(tier2))
}

// GenRequest loads the category tree of a store and keeps its leaf categories.
// Products are fetched by ParseItems.
func (f *Fetcher) GenRequest(ctx context.Context, store models.LocationRecord) (string, models.Payload, error) {
	storeID := models.StringValue(store["store_id"], "unknown")
	f.logger.Info().Str("store", storeID).Str("name", store.String("store_name", "Unknown")).Msg("Fetching Metro categories")

	envelope, err := f.get(ctx, "/Categories",
		vendors.Param{Key: "filter", Value: "storeId"},
		vendors.Param{Key: "filterValue", Value: storeID},
	)
	if err != nil {
		return storeID, nil, err
	}

	var all vendors.Products
	if !envelope.DecodeData(&all) || len(all) == 0 {
		f.logger.Warn().Str("store", storeID).Msg("No categories found")
		return storeID, nil, nil
	}

	leaves := leafCategories(all)
	if len(leaves) == 0 {
		f.logger.Warn().Str("store", storeID).Msg("No tier3 categories found")
		return storeID, nil, nil
	}

	f.logger.Info().Str("store", storeID).Int("categories", len(all)).Int("tier3", len(leaves)).Msg("Metro category tree loaded")
	payload, err := vendors.ToPayload(CategoryMenu{Categories: leaves, StoreID: store["store_id"]})
	return storeID, payload, err
}

// ParseItems pages the products of every leaf category
func (f *Fetcher) ParseItems(ctx context.Context, log interfaces.StatusLog, menu models.Payload, itemID string) (models.Payload, []string, error) {
	var categories CategoryMenu
	if err := vendors.FromPayload(menu, &categories); err != nil {
		return menu, nil, err
	}
	if len(categories.Categories) == 0 {
		f.logger.Warn().Str("menu", itemID).Msg("No categories found")
		return menu, nil, nil
	}

	storeID := models.StringValue(categories.StoreID, "")
	all := vendors.Products{}
	for i, category := range categories.Categories {
		categoryID := models.StringValue(category["id"], "")
		name := models.StringValue(category["category_name"], "Unknown")
		f.logger.Debug().Int("index", i+1).Int("total", len(categories.Categories)).Str("category", name).Msg("Fetching category products")

		for offset := 0; ; offset += ProductPageSize {
			products, err := f.fetchProducts(ctx, storeID, categoryID, offset)
			if err != nil {
				f.logger.Error().Err(err).Str("category", name).Int("offset", offset).Msg("Products page failed")
				break
			}
			if len(products) == 0 {
				break
			}
			products.Tag("fetch_category", name)
			all = append(all, products...)
			if len(products) < ProductPageSize {
				break
			}
		}
	}

	log.Log(itemID, "products_fetched", strconv.Itoa(len(all)), models.LogSuccess)
	f.logger.Info().Str("store", storeID).Int("products", len(all)).Msg("Metro products fetched")

	payload, err := vendors.ToPayload(ProductMenu{
		Products:   all,
		TotalCount: len(all),
		Categories: categories.Categories,
		StoreID:    categories.StoreID,
	})
	return payload, nil, err
}

func (f *Fetcher) fetchProducts(ctx context.Context, storeID, categoryID string, offset int) (vendors.Products, error) {
	envelope, err := f.get(ctx, "/Products",
		vendors.Param{Key: "type", Value: "Products_nd_associated_Brands"},
		vendors.Param{Key: "offset", Value: strconv.Itoa(offset)},
		vendors.Param{Key: "limit", Value: strconv.Itoa(ProductPageSize)},
		vendors.Param{Key: "filter", Value: "tier3Id"},
		vendors.Param{Key: "filterValue", Value: categoryID},
		vendors.Param{Key: "order", Value: "product_scoring__DESC"},
		vendors.Param{Key: "filter", Value: "active"},
		vendors.Param{Key: "filterValue", Value: "true"},
		vendors.Param{Key: "filter", Value: "!url"},
		vendors.Param{Key: "filterValue", Value: "!null"},
		vendors.Param{Key: "filter", Value: "storeId"},
		vendors.Param{Key: "filterValue", Value: storeID},
		vendors.Param{Key: "filter", Value: "Op.available_stock"},
		vendors.Param{Key: "filterValue", Value: "Op.gt__0"},
	)
	if err != nil {
		return nil, err
	}
	var products vendors.Products
	envelope.DecodeData(&products)
	return products, nil
}
