package geo

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ternarybob/harvester/internal/httpclient"
)

// DefaultGoogleEndpoint is the Google Geocoding API endpoint
const DefaultGoogleEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

type googleResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

// GoogleGeocoder resolves addresses through the Google Geocoding API
type GoogleGeocoder struct {
	client   *httpclient.Client
	endpoint string
	apiKey   string
}

// NewGoogleGeocoder creates a geocoder; an empty endpoint uses DefaultGoogleEndpoint
func NewGoogleGeocoder(client *httpclient.Client, endpoint, apiKey string) *GoogleGeocoder {
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	return &GoogleGeocoder{
		client:   client,
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (float64, float64, bool, error) {
	var resp googleResponse
	err := g.client.GetJSON(ctx, httpclient.Request{
		URL:   g.endpoint,
		Query: url.Values{"address": {address}, "key": {g.apiKey}},
	}, &resp)
	if err != nil {
		return 0, 0, false, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return 0, 0, false, nil
	default:
		return 0, 0, false, fmt.Errorf("geocoding failed with status %s: %s", resp.Status, resp.ErrorMessage)
	}
	if len(resp.Results) == 0 {
		return 0, 0, false, nil
	}
	loc := resp.Results[0].Geometry.Location
	return loc.Lat, loc.Lng, true, nil
}

// NoopGeocoder never resolves; used when geocoding is disabled
type NoopGeocoder struct{}

func (NoopGeocoder) Geocode(ctx context.Context, address string) (float64, float64, bool, error) {
	return 0, 0, false, nil
}
