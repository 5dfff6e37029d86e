package vendors

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ternarybob/harvester/internal/models"
)

// Envelope is the {status, data} wrapper returned by both chains' APIs
type Envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// DecodeData unmarshals the data field into out; a missing or mistyped field leaves out untouched
func (e Envelope) DecodeData(out interface{}) bool {
	if len(e.Data) == 0 {
		return false
	}
	return json.Unmarshal(e.Data, out) == nil
}

// ToPayload converts a typed value into the generic payload persisted between phases
func ToPayload(v interface{}) (models.Payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	var payload models.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return payload, nil
}

// FromPayload converts a stored payload back into a typed value
func FromPayload(payload models.Payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

// Param is one query parameter; repeated keys keep their position
type Param struct {
	Key   string
	Value string
}

// EncodeParams renders params in the given order, unlike url.Values.Encode
func EncodeParams(params ...Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}

// Products is a list of decoded product objects
type Products []map[string]interface{}

// Tag sets key to value on every product
func (p Products) Tag(key string, value interface{}) {
	for _, product := range p {
		product[key] = value
	}
}
