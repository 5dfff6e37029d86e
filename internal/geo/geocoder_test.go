package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/location"
	"github.com/aws/aws-sdk-go-v2/service/location/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/httpclient"
)

type fakePlaceSearcher struct {
	text   string
	points [][]float64
}

func (f *fakePlaceSearcher) SearchPlaceIndexForText(ctx context.Context, in *location.SearchPlaceIndexForTextInput, optFns ...func(*location.Options)) (*location.SearchPlaceIndexForTextOutput, error) {
	f.text = *in.Text
	out := &location.SearchPlaceIndexForTextOutput{}
	for _, p := range f.points {
		out.Results = append(out.Results, types.SearchForTextResult{
			Place: &types.Place{Geometry: &types.PlaceGeometry{Point: p}},
		})
	}
	return out, nil
}

func TestLocationGeocoder_SwapsPointOrder(t *testing.T) {
	searcher := &fakePlaceSearcher{points: [][]float64{{-97.74, 30.26}}}
	g := NewLocationGeocoder(searcher, "Address2Location")

	lat, long, ok, err := g.Geocode(context.Background(), "1 main st")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 30.26, lat)
	assert.Equal(t, -97.74, long)
	assert.Equal(t, "1 main st", searcher.text)

	empty := NewLocationGeocoder(&fakePlaceSearcher{}, "Address2Location")
	_, _, ok, err = empty.Geocode(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGoogleGeocoder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("key"))
		if r.URL.Query().Get("address") == "nowhere" {
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":24.86,"lng":67.0}}}]}`))
	}))
	defer server.Close()

	client := httpclient.NewClient(httpclient.WithLogger(arbor.NewLogger()), httpclient.WithRetry(0, time.Millisecond))
	g := NewGoogleGeocoder(client, server.URL, "key")

	lat, long, ok, err := g.Geocode(context.Background(), "karachi")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 24.86, lat)
	assert.Equal(t, 67.0, long)

	_, _, ok, err = g.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.False(t, ok)
}
