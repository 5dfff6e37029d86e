package vendors

import (
	"context"

	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

// OptionPrice returns price, or the cheapest non-zero option total when price is not set
func OptionPrice(price float64, tiers map[string]float64) float64 {
	if price > 0 {
		return price
	}
	cheapest := 0.0
	for _, cost := range tiers {
		if cost > 0 && (cheapest == 0 || cost < cheapest) {
			cheapest = cost
		}
	}
	if cheapest == 0 {
		return price
	}
	return cheapest
}

// WriteItem prices item from the writer's cost map, keyed by item id, then writes it
func WriteItem(ctx context.Context, w interfaces.MenuRowWriter, store models.LocationRecord, item models.MenuItem) error {
	if tiers, ok := w.Costs()[item.ID]; ok {
		item.Price = OptionPrice(item.Price, tiers)
	}
	return w.WriteItem(ctx, store, item)
}
