package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationRecordAccessors(t *testing.T) {
	var record LocationRecord
	require.NoError(t, json.Unmarshal([]byte(`{"store_id":123,"city":"Lahore","latitude":"31.52","longitude":74.35,"zipcode":null}`), &record))

	assert.Equal(t, "123", record.StoreID())
	assert.Equal(t, "Lahore", record.String("city", NotAvailable))
	assert.Equal(t, NotAvailable, record.String("zipcode", NotAvailable))
	assert.Equal(t, 31.52, record.Float("latitude"))
	assert.Equal(t, 74.35, record.Float("longitude"))
	assert.Zero(t, record.Float("missing"))
	assert.Equal(t, "0", LocationRecord{}.StoreID())

	clone := record.Clone()
	clone["city"] = "Karachi"
	assert.Equal(t, "Lahore", record.String("city", ""))
}

func TestValueConversions(t *testing.T) {
	assert.Equal(t, "10.5", StringValue(10.5, ""))
	assert.Equal(t, "100", StringValue(float64(100), ""))
	assert.Equal(t, "true", StringValue(true, ""))
	assert.Equal(t, "x", StringValue(nil, "x"))
	assert.Equal(t, `[1,2]`, StringValue([]interface{}{1, 2}, ""))

	assert.Equal(t, 1250.5, FloatValue("1,250.5"))
	assert.Equal(t, 7.0, FloatValue(7))
	assert.Zero(t, FloatValue("n/a"))
	assert.Zero(t, FloatValue(nil))
}

func TestMenuRowValues(t *testing.T) {
	row := MenuRow{MenuID: "1", Price: 249.99, BrandID: 15, Lat: "", Long: ""}
	values := row.Values()
	require.Len(t, values, len(CSVHeader))
	assert.Equal(t, "249.99", values[6])
	assert.Equal(t, "15", values[16])
	assert.Len(t, CSVHeader, 21)
}

func TestRegionContains(t *testing.T) {
	region := Region{CBSAFP: "1", MinLat: 10, MaxLat: 20, MinLon: 30, MaxLon: 40}
	assert.True(t, region.Contains(10, 30))
	assert.True(t, region.Contains(20, 40))
	assert.True(t, region.Contains(15, 35))
	assert.False(t, region.Contains(9.99, 35))
	assert.False(t, region.Contains(15, 40.01))
}

func TestLogLineAndReport(t *testing.T) {
	line := LogLine{
		Time:   time.Date(2024, 5, 3, 10, 15, 0, 0, time.UTC),
		Phase:  LogPhaseMenu,
		RunID:  "20240503101500",
		Fields: []string{"url", "1.json", "0", LogSuccess},
	}
	assert.Equal(t, "2024-05-03 10:15:00,process.menu,20240503101500,url,1.json,0,success", line.String())

	report := NewLogReport("imtiaz", "2024-05-03_101500", 0, 0, 0)
	assert.Zero(t, report.PercentageSuccess)
	assert.Zero(t, report.PercentageFailure)

	report = NewLogReport("imtiaz", "2024-05-03_101500", 7, 6, 1)
	assert.InDelta(t, 85.714, report.PercentageSuccess, 0.0001)
	assert.InDelta(t, 14.286, report.PercentageFailure, 0.0001)

	assert.Equal(t, "imtiaz_menu_log_report_2024-05-03_101500.json", ReportFileName("imtiaz", "menu", "2024-05-03_101500"))
}
