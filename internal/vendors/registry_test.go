package vendors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

type stubFetcher struct {
	interfaces.VendorFetcher
	parser models.Parser
}

func (s stubFetcher) GetServiceName() models.Parser { return s.parser }

func TestRegistry(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())
	registry.Register(stubFetcher{parser: models.ParserMetro})
	registry.Register(stubFetcher{parser: models.ParserImtiaz})
	registry.Register(nil)

	assert.True(t, registry.Has(models.ParserMetro))
	assert.False(t, registry.Has(models.ParserKFC))
	assert.Equal(t, []models.Parser{models.ParserImtiaz, models.ParserMetro}, registry.Parsers())

	fetcher, err := registry.Get(models.ParserImtiaz)
	require.NoError(t, err)
	assert.Equal(t, models.ParserImtiaz, fetcher.GetServiceName())

	_, err = registry.Get(models.ParserKFC)
	assert.ErrorContains(t, err, "no fetcher registered for parser kfc")
}

func TestPayloadRoundTrip(t *testing.T) {
	type section struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	payload, err := ToPayload(map[string]interface{}{"sections": []section{{ID: 1, Name: "Rice"}}})
	require.NoError(t, err)
	assert.IsType(t, []interface{}{}, payload["sections"])

	var out struct {
		Sections []section `json:"sections"`
	}
	require.NoError(t, FromPayload(payload, &out))
	assert.Equal(t, []section{{ID: 1, Name: "Rice"}}, out.Sections)
}

func TestEncodeParamsKeepsOrder(t *testing.T) {
	got := EncodeParams(
		Param{Key: "filter", Value: "tier3Id"},
		Param{Key: "filterValue", Value: "12"},
		Param{Key: "filter", Value: "!url"},
		Param{Key: "filterValue", Value: "!null"},
	)
	assert.Equal(t, "filter=tier3Id&filterValue=12&filter=%21url&filterValue=%21null", got)
}

func TestEnvelopeDecodeData(t *testing.T) {
	var list []int
	assert.True(t, Envelope{Data: []byte(`[1,2]`)}.DecodeData(&list))
	assert.Equal(t, []int{1, 2}, list)
	assert.False(t, Envelope{}.DecodeData(&list))
	assert.False(t, Envelope{Data: []byte(`{"a":1}`)}.DecodeData(&list))
}
