// Package metro fetches stores and products of the Metro Online catalogue API.
package metro

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/httpclient"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/vendors"
)

const (
	// DefaultBaseURL is the catalogue read API
	DefaultBaseURL = "https://admin.metro-online.pk/api/read"

	// ProductPageSize is the limit of one Products request
	ProductPageSize = 100
)

// Fetcher implements interfaces.VendorFetcher for Metro
type Fetcher struct {
	client  *httpclient.Client
	baseURL string
	logger  arbor.ILogger
}

// Option configures the Fetcher
type Option func(*Fetcher)

// WithBaseURL points the fetcher at another API host
func WithBaseURL(baseURL string) Option {
	return func(f *Fetcher) {
		f.baseURL = baseURL
	}
}

// NewFetcher creates a Metro fetcher
func NewFetcher(client *httpclient.Client, logger arbor.ILogger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  client,
		baseURL: DefaultBaseURL,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ interfaces.VendorFetcher = (*Fetcher)(nil)

func (f *Fetcher) GetServiceName() models.Parser {
	return models.ParserMetro
}

// GetIdentifierID uses the seed "message" column; one request covers every store
func (f *Fetcher) GetIdentifierID(row models.SeedRow) string {
	if id := row["message"]; id != "" {
		return id
	}
	return "all"
}

func (f *Fetcher) URLPageSize() int {
	return 1
}

func (f *Fetcher) get(ctx context.Context, path string, params ...vendors.Param) (vendors.Envelope, error) {
	target := f.baseURL + path
	if len(params) > 0 {
		target += "?" + vendors.EncodeParams(params...)
	}

	var envelope vendors.Envelope
	err := f.client.GetJSON(ctx, httpclient.Request{
		URL: target,
		Headers: map[string]string{
			"Accept":          "application/json, text/plain, */*",
			"Accept-Language": "en-US,en;q=0.9",
			"Origin":          "https://www.metro-online.pk",
			"Referer":         "https://www.metro-online.pk/",
		},
	}, &envelope)
	return envelope, err
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type store struct {
	ID             interface{} `json:"id"`
	MetroStoreID   interface{} `json:"metro_store_id"`
	CityName       string      `json:"city_name"`
	Location       string      `json:"location"`
	DefaultCity    bool        `json:"default_city"`
	Geometry       [][]point   `json:"geometry"`
	CityPolygon    interface{} `json:"city_polygon"`
	NextDayPolygon interface{} `json:"next_day_polygon"`
}

// centroid averages the vertices of the first polygon; x is longitude, y is latitude
func centroid(geometry [][]point) (lat, long float64) {
	if len(geometry) == 0 || len(geometry[0]) == 0 {
		return 0, 0
	}
	polygon := geometry[0]
	for _, p := range polygon {
		long += p.X
		lat += p.Y
	}
	n := float64(len(polygon))
	return lat / n, long / n
}

// provinceOf maps a city to its province; Punjab is the default
func provinceOf(city string) string {
	switch strings.ToLower(city) {
	case "karachi", "hyderabad":
		return "Sindh"
	case "peshawar":
		return "Khyber Pakhtunkhwa"
	case "quetta":
		return "Balochistan"
	case "islamabad", "rawalpindi", "islamabad-rawalpindi":
		return "Islamabad Capital Territory"
	}
	return "Punjab"
}

func orEmptyList(v interface{}) interface{} {
	if v == nil {
		return []interface{}{}
	}
	return v
}

// FetchOnePage loads every store in one request and writes one location file per store.
// It reports no further records, so the page loop makes a single request.
func (f *Fetcher) FetchOnePage(ctx context.Context, sink interfaces.LocationSink, row models.SeedRow, parentID string, size, offset int) (int, error) {
	envelope, err := f.get(ctx, "/Stores")
	if err != nil {
		return 0, err
	}
	var stores []store
	if !envelope.DecodeData(&stores) {
		return 0, fmt.Errorf("unexpected stores payload")
	}

	f.logger.Info().Int("stores", len(stores)).Msg("Metro stores fetched")

	for _, s := range stores {
		storeID := models.StringValue(s.MetroStoreID, models.StringValue(s.ID, ""))
		if storeID == "" {
			continue
		}
		location := s.Location
		if location == "" {
			location = models.NotAvailable
		}
		city := s.CityName
		if city == "" {
			city = models.NotAvailable
		}

		var parts []string
		if location != models.NotAvailable {
			parts = append(parts, location)
		}
		if city != models.NotAvailable {
			parts = append(parts, city)
		}
		address := models.NotAvailable
		if len(parts) > 0 {
			address = strings.Join(parts, ", ")
		}

		lat, long := centroid(s.Geometry)
		geometry := interface{}(s.Geometry)
		if len(s.Geometry) == 0 {
			geometry = []interface{}{}
		}

		record := models.LocationRecord{
			"store_id":         storeID,
			"store_name":       "Metro " + location,
			"location":         location,
			"city":             city,
			"state":            provinceOf(s.CityName),
			"address":          address,
			"zipcode":          models.NotAvailable,
			"latitude":         lat,
			"longitude":        long,
			"phone":            models.NotAvailable,
			"is_active":        true,
			"default_city":     s.DefaultCity,
			"has_geometry":     len(s.Geometry) > 0,
			"geometry":         geometry,
			"city_polygon":     orEmptyList(s.CityPolygon),
			"next_day_polygon": orEmptyList(s.NextDayPolygon),
		}

		if err := sink.SaveLocation(ctx, storeID+".json", record); err != nil {
			return 0, err
		}
		sink.Log(storeID, location, city, models.LogSuccess)
	}

	return 0, nil
}
