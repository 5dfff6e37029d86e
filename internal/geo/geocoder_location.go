package geo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/location"
)

// PlaceSearcher is the subset of the Amazon Location client used for geocoding
type PlaceSearcher interface {
	SearchPlaceIndexForText(ctx context.Context, params *location.SearchPlaceIndexForTextInput, optFns ...func(*location.Options)) (*location.SearchPlaceIndexForTextOutput, error)
}

// LocationGeocoder resolves addresses through an Amazon Location place index
type LocationGeocoder struct {
	client    PlaceSearcher
	indexName string
}

// NewLocationGeocoder creates a geocoder over the named place index
func NewLocationGeocoder(client PlaceSearcher, indexName string) *LocationGeocoder {
	return &LocationGeocoder{
		client:    client,
		indexName: indexName,
	}
}

// Geocode returns the first result. Points come back as [longitude, latitude].
func (g *LocationGeocoder) Geocode(ctx context.Context, address string) (float64, float64, bool, error) {
	out, err := g.client.SearchPlaceIndexForText(ctx, &location.SearchPlaceIndexForTextInput{
		IndexName:  aws.String(g.indexName),
		Text:       aws.String(address),
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return 0, 0, false, fmt.Errorf("place index search failed: %w", err)
	}

	for _, result := range out.Results {
		if result.Place == nil || result.Place.Geometry == nil || len(result.Place.Geometry.Point) < 2 {
			continue
		}
		point := result.Place.Geometry.Point
		return point[1], point[0], true, nil
	}
	return 0, 0, false, nil
}
