package parcel

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelworks/lvt-cli/internal/fetcher"
)

func testFetcher() fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1})
}

func TestFetchParcels(t *testing.T) {
	var pageRequests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/assessor/FeatureServer/0/query", r.URL.Path)

		if q.Get("returnCountOnly") == "true" {
			fmt.Fprint(w, `{"count": 3}`)
			return
		}

		pageRequests++
		switch q.Get("resultOffset") {
		case "0":
			fmt.Fprint(w, `{"features": [
				{"attributes": {"PARCELID": "P-001", "GEOID": "421010001001", "LND_VAL": 100000, "IMP_VAL": 50000, "TAX_AMT": 1500}},
				{"attributes": {"PARCELID": "P-002", "GEOID": 421010001002, "LND_VAL": "50000", "IMP_VAL": 150000, "TAX_AMT": 2000}}
			]}`)
		case "2":
			fmt.Fprint(w, `{"features": [
				{"attributes": {"PARCELID": "P-003", "LND_VAL": 75000},
				 "geometry": {"rings": [[[-75.2,39.9],[-75.1,39.9],[-75.1,40.0],[-75.2,40.0],[-75.2,39.9]]]}}
			]}`)
		default:
			fmt.Fprint(w, `{"features": []}`)
		}
	}))
	defer srv.Close()

	client := NewFeatureClient(testFetcher(), srv.URL)
	client.pageSize = 2

	parcels, err := client.FetchParcels(context.Background(), "assessor", 0, FieldMap{})
	require.NoError(t, err)
	require.Len(t, parcels, 3)
	assert.Equal(t, 2, pageRequests)

	assert.Equal(t, "P-001", parcels[0].ParcelID)
	assert.Equal(t, "421010001001", parcels[0].GeoID)
	assert.Equal(t, 100000.0, parcels[0].LandValue)

	// Numeric GEOID and string land value both coerce.
	assert.Equal(t, "421010001002", parcels[1].GeoID)
	assert.Equal(t, 50000.0, parcels[1].LandValue)

	// Ring geometry yields a centroid for spatial assignment.
	third := parcels[2]
	assert.Empty(t, third.GeoID)
	assert.True(t, third.HasCentroid())
	assert.InDelta(t, -75.15, third.Longitude, 1e-6)
	assert.InDelta(t, 39.95, third.Latitude, 1e-6)
}

func TestFetchParcels_CustomFieldMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("returnCountOnly") == "true" {
			fmt.Fprint(w, `{"count": 1}`)
			return
		}
		fmt.Fprint(w, `{"features": [
			{"attributes": {"PIN": "P-001", "BG_GEOID": "421010001001", "LANDVALUE": 90000, "BLDGVALUE": 10000, "TOTALTAX": 800}}
		]}`)
	}))
	defer srv.Close()

	client := NewFeatureClient(testFetcher(), srv.URL)
	parcels, err := client.FetchParcels(context.Background(), "assessor", 0, FieldMap{
		ParcelID:         "PIN",
		GeoID:            "BG_GEOID",
		LandValue:        "LANDVALUE",
		ImprovementValue: "BLDGVALUE",
		CurrentTax:       "TOTALTAX",
	})
	require.NoError(t, err)
	require.Len(t, parcels, 1)
	assert.Equal(t, "P-001", parcels[0].ParcelID)
	assert.Equal(t, 90000.0, parcels[0].LandValue)
	assert.Equal(t, 10000.0, parcels[0].ImprovementValue)
	assert.Equal(t, 800.0, parcels[0].CurrentTax)
}

func TestFetchParcels_MissingParcelID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("returnCountOnly") == "true" {
			fmt.Fprint(w, `{"count": 1}`)
			return
		}
		fmt.Fprint(w, `{"features": [{"attributes": {"LND_VAL": 100}}]}`)
	}))
	defer srv.Close()

	client := NewFeatureClient(testFetcher(), srv.URL)
	_, err := client.FetchParcels(context.Background(), "assessor", 0, FieldMap{})
	require.Error(t, err)
}

func TestRingsCentroid_Degenerate(t *testing.T) {
	_, _, ok := ringsCentroid([][][]float64{{{1, 1}, {2, 2}}})
	assert.False(t, ok)
}
