// Package imtiaz fetches branches and products of the Imtiaz Super Market web shop.
package imtiaz

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/httpclient"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/vendors"
)

const (
	// DefaultBaseURL is the shop API host
	DefaultBaseURL = "https://shop.imtiaz.com.pk"

	// RestID identifies the chain on the shop API
	RestID = "55126"

	// ProductPageSize is the per_page/limit of items-by-subsection
	ProductPageSize = 100
)

// Fetcher implements interfaces.VendorFetcher for Imtiaz
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

// NewFetcher creates an Imtiaz fetcher
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
	return models.ParserImtiaz
}

func (f *Fetcher) GetIdentifierID(row models.SeedRow) string {
	return row["id"]
}

// URLPageSize is 0: the geofence API is not paged
func (f *Fetcher) URLPageSize() int {
	return 0
}

func (f *Fetcher) headers() map[string]string {
	return map[string]string{
		"Accept":   "application/json, text/plain, */*",
		"app-name": "imtiazsuperstore",
		"rest-id":  RestID,
		"Referer":  "https://shop.imtiaz.com.pk/",
	}
}

func (f *Fetcher) get(ctx context.Context, path string, query url.Values) (vendors.Envelope, error) {
	var envelope vendors.Envelope
	err := f.client.GetJSON(ctx, httpclient.Request{
		URL:     f.baseURL + path,
		Query:   query,
		Headers: f.headers(),
	}, &envelope)
	if err != nil {
		return envelope, err
	}
	if envelope.Status != 200 {
		return envelope, fmt.Errorf("%s returned status %d", path, envelope.Status)
	}
	return envelope, nil
}

type geofence struct {
	RestBrID        interface{} `json:"rest_brId"`
	GeofenceID      interface{} `json:"geofence_id"`
	AreaName        interface{} `json:"area_name"`
	Lat             interface{} `json:"lat"`
	Lng             interface{} `json:"lng"`
	GeoFence        interface{} `json:"geoFence"`
	MinOrder        interface{} `json:"min_order"`
	DeliveryCharges interface{} `json:"delivery_charges"`
	MaxDeliveryTime interface{} `json:"max_delivery_time"`
}

type city struct {
	Name      string     `json:"name"`
	Geofences []geofence `json:"geofences"`
}

type branch struct {
	id        interface{}
	city      string
	geofences []map[string]interface{}
}

func orDefault(v interface{}, def interface{}) interface{} {
	if v == nil {
		return def
	}
	return v
}

// FetchOnePage reads every geofence, groups them by branch and writes one
// location file per branch. Existing branch files are kept.
func (f *Fetcher) FetchOnePage(ctx context.Context, sink interfaces.LocationSink, row models.SeedRow, parentID string, size, offset int) (int, error) {
	envelope, err := f.get(ctx, "/api/geofence", url.Values{"restId": {RestID}})
	if err != nil {
		return 0, err
	}
	sink.Log("url", parentID, strconv.Itoa(offset), models.LogSuccess)

	var data struct {
		Cities []city `json:"cities"`
	}
	if !envelope.DecodeData(&data) {
		return 0, fmt.Errorf("unexpected geofence payload")
	}

	var order []string
	branches := make(map[string]*branch)
	for _, c := range data.Cities {
		name := c.Name
		if name == "" {
			name = "Unknown"
		}
		for _, g := range c.Geofences {
			id := models.StringValue(g.RestBrID, "")
			if id == "" {
				f.logger.Warn().Str("city", name).Msg("Skipping geofence without branch id")
				continue
			}
			b, ok := branches[id]
			if !ok {
				b = &branch{id: g.RestBrID, city: name}
				branches[id] = b
				order = append(order, id)
			}
			b.geofences = append(b.geofences, map[string]interface{}{
				"geofence_id":       g.GeofenceID,
				"area_name":         orDefault(g.AreaName, models.NotAvailable),
				"latitude":          orDefault(g.Lat, "0.0"),
				"longitude":         orDefault(g.Lng, "0.0"),
				"geofence":          orDefault(g.GeoFence, models.NotAvailable),
				"min_order":         orDefault(g.MinOrder, 0),
				"delivery_charges":  orDefault(g.DeliveryCharges, 0),
				"max_delivery_time": orDefault(g.MaxDeliveryTime, 0),
			})
		}
	}

	written := 0
	for _, id := range order {
		b := branches[id]
		fileName := id + ".json"

		exists, err := sink.LocationExists(ctx, fileName)
		if err != nil {
			return 0, err
		}
		if exists {
			sink.Log("file", fileName, "found", models.LogSuccess)
			continue
		}

		if err := sink.SaveLocation(ctx, fileName, branchRecord(b)); err != nil {
			return 0, err
		}
		written++
	}

	f.logger.Info().Int("branches", len(order)).Int("written", written).Msg("Imtiaz branches processed")
	return 0, nil
}

func branchRecord(b *branch) models.LocationRecord {
	state := models.NotAvailable
	if b.city == "Karachi" {
		state = "Sindh"
	}
	id := models.StringValue(b.id, "")
	lat, long := interface{}("0.0"), interface{}("0.0")
	if len(b.geofences) > 0 {
		lat, long = b.geofences[0]["latitude"], b.geofences[0]["longitude"]
	}

	return models.LocationRecord{
		"store_id":        id,
		"rest_brId":       b.id,
		"city":            b.city,
		"state":           state,
		"zipcode":         models.NotAvailable,
		"latitude":        lat,
		"longitude":       long,
		"address":         fmt.Sprintf("Branch %s - %s", id, b.city),
		"area_name":       "Branch " + id,
		"total_geofences": len(b.geofences),
		"geofences":       b.geofences,
	}
}
