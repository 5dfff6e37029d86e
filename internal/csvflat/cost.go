package csvflat

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

var sizeNames = map[string]bool{"Small": true, "Medium": true, "Large": true}

type costItem struct {
	parent string
	cost   float64
}

// FindCost walks nested option groups and sums option costs per top-level option.
//
// Rules, per level (1 = top):
//   - every option bumps the group-local ordinal oid; at level 1 the option becomes the parent
//   - options at level 1 or 3 count when they are the first one (oid == 1) or a size (Small/Medium/Large)
//   - modifiers are walked when a level-1 option is free, or always below level 1
func FindCost(groups []interface{}) map[string]float64 {
	var items []costItem
	walkCostGroups("none", groups, 1, &items)

	totals := make(map[string]float64)
	for _, item := range items {
		totals[item.parent] += item.cost
	}
	return totals
}

func walkCostGroups(parent string, groups []interface{}, level int, items *[]costItem) {
	oid := 0
	for _, g := range groups {
		group, ok := g.(map[string]interface{})
		if !ok {
			continue
		}
		options, ok := group["options"].([]interface{})
		if !ok {
			continue
		}
		for _, o := range options {
			option, ok := o.(map[string]interface{})
			if !ok {
				continue
			}
			oid++
			cost := models.FloatValue(option["cost"])
			name := models.StringValue(option["name"], models.NotAvailable)
			if level == 1 {
				parent = name
			}
			if (level == 1 || level == 3) && (oid == 1 || sizeNames[name]) {
				*items = append(*items, costItem{parent: parent, cost: cost})
			}

			deep := (cost == 0 && level == 1) || level > 1
			if modifiers, ok := option["modifiers"].([]interface{}); ok && deep {
				walkCostGroups(parent, modifiers, level+1, items)
			}
		}
	}
}

// ReadCostFiles loads each cost file under prefix and aggregates its "optiongroups".
// Keys are file names without extension. Unreadable files are logged and skipped.
func ReadCostFiles(ctx context.Context, storage interfaces.FileStorage, prefix string, files []string, logger arbor.ILogger) map[string]map[string]float64 {
	costs := make(map[string]map[string]float64)
	for _, file := range files {
		itemID := strings.SplitN(file, ".", 2)[0]

		content, err := storage.ReadFile(ctx, prefix, file)
		if err != nil {
			logger.Error().Err(err).Str("file", file).Msg("Unable to load cost data from file")
			continue
		}

		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(content), &doc); err != nil {
			logger.Error().Err(err).Str("item_id", itemID).Msg("Unable to parse cost data")
			continue
		}

		groups, _ := doc["optiongroups"].([]interface{})
		costs[itemID] = FindCost(groups)
	}
	return costs
}
