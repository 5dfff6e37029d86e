package geo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/storage/local"
)

// fakeGeocoder returns a fixed point and counts calls
type fakeGeocoder struct {
	calls int
	lat   float64
	long  float64
	found bool
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (float64, float64, bool, error) {
	f.calls++
	return f.lat, f.long, f.found, nil
}

func newTestCache(t *testing.T) (*CSVCache, string) {
	t.Helper()
	dataDir := t.TempDir()
	store := local.NewStorage(dataDir, arbor.NewLogger())
	scratch := filepath.Join(t.TempDir(), "metro_address_cache.csv")
	return NewCSVCache(store, "lat-long-cache/metro_address_cache.csv", scratch, arbor.NewLogger()), dataDir
}

func TestResolver_MissThenHit(t *testing.T) {
	ctx := context.Background()
	cache, dataDir := newTestCache(t)
	geocoder := &fakeGeocoder{lat: 30.2672, long: -97.7431, found: true}
	resolver := NewResolver(cache, geocoder, nil, arbor.NewLogger())

	address := AddressKey("1 Main St", "Austin", "TX", "78701")
	assert.Equal(t, "1 main st, austin, tx, 78701", address)

	lat, long, ok, err := resolver.Resolve(ctx, address)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 30.2672, lat, 1e-9)
	assert.InDelta(t, -97.7431, long, 1e-9)
	assert.Equal(t, 1, geocoder.calls)
	assert.True(t, resolver.Dirty())

	// Second resolution is served from the cache
	lat, long, ok, err = resolver.Resolve(ctx, address)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 30.2672, lat, 1e-9)
	assert.InDelta(t, -97.7431, long, 1e-9)
	assert.Equal(t, 1, geocoder.calls)

	require.NoError(t, resolver.Flush(ctx))
	assert.False(t, resolver.Dirty())

	data, err := os.ReadFile(filepath.Join(dataDir, "lat-long-cache", "metro_address_cache.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "address,lat,long", lines[0])
	assert.Equal(t, `"1 main st, austin, tx, 78701",30.2672,-97.7431`, lines[1])
}

func TestResolver_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	geocoder := &fakeGeocoder{found: false}
	resolver := NewResolver(cache, geocoder, nil, arbor.NewLogger())

	_, _, ok, err := resolver.Resolve(ctx, "nowhere")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, resolver.Dirty())
	assert.Equal(t, 0, cache.Len())
}

func TestCSVCache_LoadsExistingBlob(t *testing.T) {
	ctx := context.Background()
	cache, dataDir := newTestCache(t)

	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "lat-long-cache"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "lat-long-cache", "metro_address_cache.csv"),
		[]byte("address,lat,long\n\"a, b\",1.5,2.5\n"), 0644))

	entry, ok, err := cache.Lookup(ctx, "a, b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.5", entry.Lat)
	assert.Equal(t, "2.5", entry.Long)

	// Nothing appended, nothing uploaded
	require.NoError(t, cache.Flush(ctx))
}

func TestRegionIndex_FirstMatchWins(t *testing.T) {
	idx := NewRegionIndex([]models.Region{
		{CBSAFP: "12420", Name: "Austin", MinLat: 29, MaxLat: 31, MinLon: -99, MaxLon: -97},
		{CBSAFP: "99999", Name: "Overlap", MinLat: 29, MaxLat: 31, MinLon: -99, MaxLon: -97},
	})

	region := idx.FindRegion(30.26, -97.74)
	require.NotNil(t, region)
	assert.Equal(t, "12420", region.CBSAFP)

	// Edges are inclusive
	assert.NotNil(t, idx.FindRegion(31, -97))
	assert.Nil(t, idx.FindRegion(40, -97.74))
}

func TestLoadRegions(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "boxes.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"CBSAFP":"12420","NAME":"Austin","min_lat":29,"max_lat":31,"min_lon":-99,"max_lon":-97}]`), 0644))
	idx, err := LoadRegions(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())

	yamlPath := filepath.Join(dir, "boxes.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- CBSAFP: \"12420\"\n  NAME: Austin\n  min_lat: 29\n  max_lat: 31\n  min_lon: -99\n  max_lon: -97\n"), 0644))
	idx, err = LoadRegions(yamlPath)
	require.NoError(t, err)
	require.NotNil(t, idx.FindRegion(30, -98))
	assert.Equal(t, "Austin", idx.FindRegion(30, -98).Name)

	idx, err = LoadRegions(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestCSVCache_MissingBlobIgnoresStaleScratchFile(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	store := local.NewStorage(dataDir, arbor.NewLogger())
	scratch := filepath.Join(t.TempDir(), "metro_address_cache.csv")
	require.NoError(t, os.WriteFile(scratch, []byte("address,lat,long\nold street,9,9\n"), 0644))

	cache := NewCSVCache(store, "lat-long-cache/metro_address_cache.csv", scratch, arbor.NewLogger())

	_, ok, err := cache.Lookup(ctx, "old street")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())

	require.NoError(t, cache.Append(ctx, models.AddressEntry{Address: "new street", Lat: "1", Long: "2"}))
	require.NoError(t, cache.Flush(ctx))

	data, err := os.ReadFile(filepath.Join(dataDir, "lat-long-cache", "metro_address_cache.csv"))
	require.NoError(t, err)
	assert.Equal(t, "address,lat,long\nnew street,1,2\n", string(data))
}
