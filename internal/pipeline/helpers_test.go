package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/storage/local"
)

const testRunID = "20240503101500"

var testNow = time.Date(2024, 5, 3, 10, 15, 0, 0, time.UTC)

// fakeVendor records every call made by the phases
type fakeVendor struct {
	parser      models.Parser
	urlPageSize int
	pageTotal   int
	pageErr     error

	pages    []string
	requests []string
	parsed   []string
	halt     bool
	failMenu map[string]bool
}

func newFakeVendor() *fakeVendor {
	return &fakeVendor{parser: models.ParserMetro, urlPageSize: 50, pageTotal: 1, failMenu: map[string]bool{}}
}

func (f *fakeVendor) GetServiceName() models.Parser { return f.parser }

func (f *fakeVendor) GetIdentifierID(row models.SeedRow) string { return row["id"] }

func (f *fakeVendor) URLPageSize() int { return f.urlPageSize }

func (f *fakeVendor) FetchOnePage(ctx context.Context, sink interfaces.LocationSink, row models.SeedRow, parentID string, size, offset int) (int, error) {
	f.pages = append(f.pages, fmt.Sprintf("%s@%d", parentID, offset))
	if f.pageErr != nil {
		return 0, f.pageErr
	}
	fileName := parentID + ".json"
	if err := sink.SaveLocation(ctx, fileName, models.LocationRecord{"store_id": parentID}); err != nil {
		return 0, err
	}
	sink.Log(parentID, models.LogSuccess)
	return f.pageTotal, nil
}

func (f *fakeVendor) GenRequest(ctx context.Context, store models.LocationRecord) (string, models.Payload, error) {
	id := store.StoreID()
	f.requests = append(f.requests, id)
	if f.halt {
		return id, nil, interfaces.ErrHaltPipeline
	}
	if f.failMenu[id] {
		return id, nil, nil
	}
	return id, models.Payload{"items": []interface{}{map[string]interface{}{"id": "p" + id, "name": "Item " + id, "price": 10.5}}}, nil
}

func (f *fakeVendor) ParseItems(ctx context.Context, log interfaces.StatusLog, menu models.Payload, itemID string) (models.Payload, []string, error) {
	f.parsed = append(f.parsed, itemID)
	log.Log(itemID, models.LogSuccess)
	out := models.Payload{}
	for k, v := range menu {
		out[k] = v
	}
	out["enriched"] = true
	return out, nil, nil
}

func (f *fakeVendor) WriteMenuToCSV(ctx context.Context, record models.MenuRecord, storeID string, w interfaces.MenuRowWriter) error {
	items, _ := record.MenuDetail["items"].([]interface{})
	for _, raw := range items {
		item := raw.(map[string]interface{})
		err := w.WriteItem(ctx, record.Store, models.MenuItem{
			ID:    models.StringValue(item["id"], ""),
			Name:  models.StringValue(item["name"], ""),
			Price: models.FloatValue(item["price"]),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// recordingSleeper records requested sleeps without waiting
type recordingSleeper struct {
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return nil
}

// staticLookup serves a single vendor
type staticLookup struct {
	vendor interfaces.VendorFetcher
}

func (l staticLookup) Get(parser models.Parser) (interfaces.VendorFetcher, error) {
	if l.vendor == nil || l.vendor.GetServiceName() != parser {
		return nil, fmt.Errorf("no fetcher registered for parser %s", parser)
	}
	return l.vendor, nil
}

type testHarness struct {
	config  *common.Config
	storage *local.Storage
	vendor  *fakeVendor
	sleeper *recordingSleeper
	env     *Env
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	config := common.NewDefaultConfig()
	config.Storage.Backend = "local"
	config.Storage.DataDir = t.TempDir()
	config.Storage.ScratchDir = t.TempDir()

	storage := local.NewStorage(config.Storage.DataDir, arbor.NewLogger())
	vendor := newFakeVendor()
	sleeper := &recordingSleeper{}

	return &testHarness{
		config:  config,
		storage: storage,
		vendor:  vendor,
		sleeper: sleeper,
		env: &Env{
			Config:  config,
			Storage: storage,
			Vendor:  vendor,
			Paths:   NewPaths(config, vendor.parser, "2024051"),
			Budget:  FixedBudget(120 * time.Second),
			Sleeper: sleeper,
			Logger:  arbor.NewLogger(),
			Now:     func() time.Time { return testNow },
		},
	}
}

func (h *testHarness) write(t *testing.T, prefix, name, content string) {
	t.Helper()
	require.NoError(t, h.storage.WriteFile(context.Background(), prefix, name, content))
}

func (h *testHarness) read(t *testing.T, prefix, name string) string {
	t.Helper()
	content, err := h.storage.ReadFile(context.Background(), prefix, name)
	require.NoError(t, err)
	return content
}

func descriptor(action models.Action) models.JobDescriptor {
	desc := models.NewJobDescriptor(models.ParserMetro, action)
	desc.RunID = testRunID
	desc.Version = "2024051"
	desc.HasMore = true
	return *desc
}
