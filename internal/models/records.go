package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// NotAvailable is the placeholder written for missing text columns.
const NotAvailable = "N/A"

// ScrapeDateLayout is the layout of the scrape_date attached to location records.
const ScrapeDateLayout = "2006-01-02 15:04:05"

// Payload is a decoded JSON object returned by a vendor fetcher.
// A nil Payload means the fetch produced no data.
type Payload map[string]interface{}

// SeedRow is one row of the location seed CSV, keyed by header.
type SeedRow map[string]string

// LocationRecord is one store/branch as written by the Location phase.
// Keys are chain specific; the accessors cover the fields the pipeline reads.
type LocationRecord map[string]interface{}

// Clone returns a shallow copy so callers can attach fields without mutating the source.
func (r LocationRecord) Clone() LocationRecord {
	out := make(LocationRecord, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value at key rendered as text, or def when absent or null.
func (r LocationRecord) String(key, def string) string {
	return stringValue(r[key], def)
}

// Float returns the numeric value at key, accepting numbers and numeric strings.
func (r LocationRecord) Float(key string) float64 {
	return floatValue(r[key])
}

// StoreID returns the store_id field.
func (r LocationRecord) StoreID() string {
	return r.String("store_id", "0")
}

// MenuRecord is the persisted Menu/Post-Menu artifact.
type MenuRecord struct {
	Store      LocationRecord `json:"store"`
	MenuDetail Payload        `json:"menu_detail"`
	CostFile   []string       `json:"cost_file,omitempty"`
}

// MenuItem is a vendor-neutral product ready to be flattened into a CSV row.
type MenuItem struct {
	ID          string
	ParentID    string
	ParentName  string
	Name        string
	Description string
	Price       float64
	ImageURL    string
}

// CSVHeader is the fixed column order of the flattened output.
var CSVHeader = []string{
	"menu_id", "menu_parent_id", "menu_parent_name", "menu_name", "menu_name_clean", "menu_description", "price",
	"store_id", "product_image_url", "zip_code", "city", "state", "address", "lat", "long", "brand", "brand_id", "date",
	"cbsa_id", "cbsa", "utcoffset",
}

// MenuRow is one flattened CSV row.
type MenuRow struct {
	MenuID          string
	MenuParentID    string
	MenuParentName  string
	MenuName        string
	MenuNameClean   string
	MenuDescription string
	Price           float64
	StoreID         string
	ProductImageURL string
	ZipCode         string
	City            string
	State           string
	Address         string
	Lat             string
	Long            string
	Brand           string
	BrandID         int
	Date            string
	CBSAID          string
	CBSA            string
	UTCOffset       string
}

// Values returns the row in CSVHeader order.
func (r MenuRow) Values() []string {
	return []string{
		r.MenuID, r.MenuParentID, r.MenuParentName, r.MenuName, r.MenuNameClean, r.MenuDescription,
		FormatNumber(r.Price), r.StoreID, r.ProductImageURL, r.ZipCode, r.City, r.State, r.Address,
		r.Lat, r.Long, r.Brand, strconv.Itoa(r.BrandID), r.Date, r.CBSAID, r.CBSA, r.UTCOffset,
	}
}

// Region is a bounding box used to map coordinates to a regional identifier.
type Region struct {
	CBSAFP string  `json:"CBSAFP" yaml:"CBSAFP"`
	Name   string  `json:"NAME" yaml:"NAME"`
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
}

// Contains reports whether the point lies inside the box, edges included.
func (r Region) Contains(lat, lon float64) bool {
	return r.MinLat <= lat && lat <= r.MaxLat && r.MinLon <= lon && lon <= r.MaxLon
}

// AddressEntry is one resolved address in the geocoding cache.
type AddressEntry struct {
	Address   string    `json:"address"`
	Lat       string    `json:"lat"`
	Long      string    `json:"long"`
	CreatedAt time.Time `json:"created_at"`
}

// StringValue renders a decoded JSON value as text, or def when nil.
func StringValue(v interface{}, def string) string {
	return stringValue(v, def)
}

// FloatValue converts a decoded JSON value to float64; non-numeric values yield 0.
func FloatValue(v interface{}) float64 {
	return floatValue(v)
}

// FormatNumber renders a float without trailing zeros or exponent.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func stringValue(v interface{}, def string) string {
	switch t := v.(type) {
	case nil:
		return def
	case string:
		return t
	case float64:
		return FormatNumber(t)
	case int:
		return strconv.Itoa(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return def
		}
		return string(data)
	}
}

func floatValue(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
