package csvflat

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/storage/local"
)

type fakeLocator struct {
	calls     []string
	lat, long float64
	found     bool
	region    *models.Region
}

func (f *fakeLocator) Resolve(ctx context.Context, address string) (float64, float64, bool, error) {
	f.calls = append(f.calls, address)
	return f.lat, f.long, f.found, nil
}

func (f *fakeLocator) FindRegion(lat, long float64) *models.Region {
	return f.region
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Item Name", CleanText("Item™  Name"))
	assert.Equal(t, "Spicy Hot", CleanText("Spicy,\nHot"))
	assert.Equal(t, "a b c", CleanText("  a\r\nb ,c  "))
	assert.Equal(t, "", CleanText(""))
}

func TestCleanSpecial(t *testing.T) {
	assert.Equal(t, "item  name", CleanSpecial("Item™  Name"))
	assert.Equal(t, "chicken sandwich", CleanSpecial(" Chicken® Sandwich "))
}

func TestRowBuilder_UsesStoreCoordinates(t *testing.T) {
	locator := &fakeLocator{}
	builder := NewRowBuilder(locator, common.BrandConfig{Parser: "metro", ID: 15, Name: "Metro Cash & Carry"}, arbor.NewLogger())

	store := models.LocationRecord{
		"store_id":    "10",
		"address":     "Star Gate, Karachi",
		"city":        "Karachi",
		"state":       "Sindh",
		"latitude":    24.88,
		"longitude":   67.15,
		"scrape_date": "2024-05-03 10:00:00",
		"CBSAFP":      "77",
	}
	row := builder.Build(context.Background(), store, models.MenuItem{
		ID:          "1",
		ParentID:    "9",
		ParentName:  "Rice, Flour",
		Name:        "Item™  Name",
		Description: "Spicy,\nHot",
		Price:       1250.5,
		ImageURL:    "https://img/1.png",
	})

	assert.Empty(t, locator.calls)
	assert.Equal(t, "Item Name", row.MenuName)
	assert.Equal(t, "item  name", row.MenuNameClean)
	assert.Equal(t, "Spicy Hot", row.MenuDescription)
	assert.Equal(t, "Rice Flour", row.MenuParentName)
	assert.Equal(t, "24.88", row.Lat)
	assert.Equal(t, "67.15", row.Long)
	assert.Equal(t, "77", row.CBSAID)
	assert.Equal(t, models.NotAvailable, row.CBSA)
	assert.Equal(t, models.NotAvailable, row.ZipCode)
	assert.Equal(t, "0", row.UTCOffset)
	assert.Equal(t, "Metro Cash & Carry", row.Brand)
	assert.Equal(t, 15, row.BrandID)
	assert.Equal(t, "2024-05-03 10:00:00", row.Date)
	assert.Len(t, row.Values(), len(models.CSVHeader))
}

func TestRowBuilder_GeocodesMissingCoordinates(t *testing.T) {
	locator := &fakeLocator{lat: 30.5, long: -97.25, found: true, region: &models.Region{CBSAFP: "12420"}}
	builder := NewRowBuilder(locator, common.BrandConfig{Name: "KFC", ID: 5}, arbor.NewLogger())
	builder.now = func() time.Time { return time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC) }

	store := models.LocationRecord{
		"store_id":  7,
		"address":   "1 Main St",
		"city":      "Austin",
		"state":     "TX",
		"zipcode":   "78701",
		"latitude":  0.0,
		"longitude": 0.0,
	}
	row := builder.Build(context.Background(), store, models.MenuItem{ID: "1", Name: "Bucket"})

	require.Len(t, locator.calls, 1)
	assert.Equal(t, "1 main st, austin, tx, 78701", locator.calls[0])
	assert.Equal(t, "30.5", row.Lat)
	assert.Equal(t, "-97.25", row.Long)
	assert.Equal(t, "12420", row.CBSAID)
	assert.Equal(t, "7", row.StoreID)
	assert.Equal(t, "2024-05-03 08:00:00", row.Date)
}

func TestRowBuilder_NoGeocodeWithoutAddress(t *testing.T) {
	locator := &fakeLocator{found: true}
	builder := NewRowBuilder(locator, common.BrandConfig{}, arbor.NewLogger())

	row := builder.Build(context.Background(), models.LocationRecord{}, models.MenuItem{ID: "1"})
	assert.Empty(t, locator.calls)
	assert.Equal(t, "0", row.Lat)
	assert.Equal(t, "0", row.CBSAID)
}

func TestFindCost(t *testing.T) {
	var groups []interface{}
	require.NoError(t, json.Unmarshal([]byte(`[
		{"options": [
			{"name": "Combo", "cost": 0, "modifiers": [
				{"options": [
					{"name": "Drink", "cost": 0, "modifiers": [
						{"options": [
							{"name": "Small", "cost": 1.5},
							{"name": "Medium", "cost": 2},
							{"name": "Extra", "cost": 9}
						]}
					]}
				]}
			]},
			{"name": "Large", "cost": 4, "modifiers": [
				{"options": [{"name": "Ignored", "cost": 100}]}
			]},
			{"name": "Side", "cost": 3}
		]}
	]`), &groups))

	costs := FindCost(groups)

	// Combo: first option (0) plus level-3 Small and Medium; Extra is neither first nor a size
	assert.InDelta(t, 3.5, costs["Combo"], 1e-9)
	// Large counts by name; paid level-1 options are not expanded
	assert.InDelta(t, 4.0, costs["Large"], 1e-9)
	_, ok := costs["Side"]
	assert.False(t, ok)
}

func TestReadCostFiles(t *testing.T) {
	ctx := context.Background()
	store := local.NewStorage(t.TempDir(), arbor.NewLogger())
	require.NoError(t, store.WriteFile(ctx, "post-menu-cost", "42.json",
		`{"optiongroups":[{"options":[{"name":"Regular","cost":2.25}]}]}`))
	require.NoError(t, store.WriteFile(ctx, "post-menu-cost", "bad.json", `not json`))

	costs := ReadCostFiles(ctx, store, "post-menu-cost", []string{"42.json", "bad.json", "missing.json"}, arbor.NewLogger())
	require.Len(t, costs, 1)
	assert.InDelta(t, 2.25, costs["42"]["Regular"], 1e-9)
}

func TestWriter_HeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result", "metro_prices_0.csv")
	builder := NewRowBuilder(nil, common.BrandConfig{Name: "Metro Cash & Carry", ID: 15}, arbor.NewLogger())

	w, err := Create(path, builder)
	require.NoError(t, err)
	w.SetCosts(map[string]map[string]float64{"1": {"a": 1}})
	assert.Equal(t, 1.0, w.Costs()["1"]["a"])

	store := models.LocationRecord{"store_id": "10", "scrape_date": "2024-05-03 10:00:00"}
	require.NoError(t, w.WriteItem(context.Background(), store, models.MenuItem{ID: "1", Name: "Rice, Basmati", Price: 450}))
	require.NoError(t, w.Close())
	assert.Equal(t, 1, w.Rows())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.CSVHeader, records[0])
	assert.Equal(t, "Rice Basmati", records[1][3])
	assert.Equal(t, "450", records[1][6])
	assert.Equal(t, "Metro Cash & Carry", records[1][15])
	assert.Equal(t, "15", records[1][16])
}
