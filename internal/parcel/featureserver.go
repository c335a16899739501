// Package parcel loads parcel/tax tables from ArcGIS feature services,
// tax-roll CSV exports, and local shapefiles.
package parcel

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/parcelworks/lvt-cli/internal/fetcher"
	"github.com/parcelworks/lvt-cli/internal/model"
)

const defaultPageSize = 2000 // ArcGIS servers cap result pages at 2000 records

// FieldMap names the source attributes that populate each ParcelRecord
// field. Zero-valued entries fall back to common assessor schema names.
type FieldMap struct {
	ParcelID         string
	GeoID            string
	LandValue        string
	ImprovementValue string
	CurrentTax       string
}

func (m FieldMap) withDefaults() FieldMap {
	if m.ParcelID == "" {
		m.ParcelID = "PARCELID"
	}
	if m.GeoID == "" {
		m.GeoID = "GEOID"
	}
	if m.LandValue == "" {
		m.LandValue = "LND_VAL"
	}
	if m.ImprovementValue == "" {
		m.ImprovementValue = "IMP_VAL"
	}
	if m.CurrentTax == "" {
		m.CurrentTax = "TAX_AMT"
	}
	return m
}

// FeatureClient fetches parcel features from an ArcGIS FeatureServer.
type FeatureClient struct {
	fetcher  fetcher.Fetcher
	baseURL  string
	pageSize int
}

// NewFeatureClient creates a client for the feature service at baseURL
// (the URL prefix before "/<dataset>/FeatureServer").
func NewFeatureClient(f fetcher.Fetcher, baseURL string) *FeatureClient {
	return &FeatureClient{fetcher: f, baseURL: baseURL, pageSize: defaultPageSize}
}

// featurePage mirrors the ArcGIS JSON query response.
type featurePage struct {
	Count    int `json:"count"`
	Features []struct {
		Attributes map[string]any `json:"attributes"`
		Geometry   *struct {
			Rings [][][]float64 `json:"rings"`
		} `json:"geometry"`
	} `json:"features"`
}

// FetchParcels pages through all features of a dataset layer and maps their
// attributes to ParcelRecords. When the service returns ring geometry, the
// polygon centroid is attached for spatial block-group assignment.
func (c *FeatureClient) FetchParcels(ctx context.Context, dataset string, layer int, fields FieldMap) ([]model.ParcelRecord, error) {
	fields = fields.withDefaults()
	queryURL := fmt.Sprintf("%s/%s/FeatureServer/%d/query", c.baseURL, dataset, layer)
	log := zap.L().With(zap.String("dataset", dataset))

	total, err := c.featureCount(ctx, queryURL)
	if err != nil {
		return nil, err
	}
	log.Info("parcel: feature service count", zap.Int("total", total))

	var parcels []model.ParcelRecord
	for offset := 0; offset < total; offset += c.pageSize {
		page, err := c.fetchPage(ctx, queryURL, offset)
		if err != nil {
			return nil, eris.Wrapf(err, "parcel: fetch page at offset %d", offset)
		}
		if len(page.Features) == 0 {
			break
		}

		for _, f := range page.Features {
			rec := model.ParcelRecord{
				ParcelID:         attrString(f.Attributes, fields.ParcelID),
				GeoID:            attrString(f.Attributes, fields.GeoID),
				LandValue:        attrFloat(f.Attributes, fields.LandValue),
				ImprovementValue: attrFloat(f.Attributes, fields.ImprovementValue),
				CurrentTax:       attrFloat(f.Attributes, fields.CurrentTax),
			}
			if f.Geometry != nil && len(f.Geometry.Rings) > 0 {
				if lon, lat, ok := ringsCentroid(f.Geometry.Rings); ok {
					rec.Longitude, rec.Latitude = lon, lat
				}
			}
			if err := rec.Validate(); err != nil {
				return nil, eris.Wrap(err, "parcel: feature row")
			}
			parcels = append(parcels, rec)
		}

		log.Debug("parcel: page fetched",
			zap.Int("offset", offset),
			zap.Int("rows", len(page.Features)),
		)
		if len(page.Features) < c.pageSize {
			break
		}
	}

	if err := model.ValidateParcels(parcels); err != nil {
		return nil, err
	}
	log.Info("parcel: features fetched", zap.Int("parcels", len(parcels)))
	return parcels, nil
}

func (c *FeatureClient) featureCount(ctx context.Context, queryURL string) (int, error) {
	q := url.Values{}
	q.Set("f", "json")
	q.Set("where", "1=1")
	q.Set("returnCountOnly", "true")

	body, err := c.fetcher.Download(ctx, queryURL+"?"+q.Encode())
	if err != nil {
		return 0, eris.Wrap(err, "parcel: count query")
	}
	defer body.Close() //nolint:errcheck

	resp, err := fetcher.DecodeJSONObject[featurePage](body)
	if err != nil {
		return 0, eris.Wrap(err, "parcel: decode count")
	}
	return resp.Count, nil
}

func (c *FeatureClient) fetchPage(ctx context.Context, queryURL string, offset int) (*featurePage, error) {
	q := url.Values{}
	q.Set("f", "json")
	q.Set("where", "1=1")
	q.Set("outFields", "*")
	q.Set("returnGeometry", "true")
	q.Set("geometryPrecision", "6")
	q.Set("outSR", "4326")
	q.Set("resultOffset", strconv.Itoa(offset))
	q.Set("resultRecordCount", strconv.Itoa(c.pageSize))

	body, err := c.fetcher.Download(ctx, queryURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	return fetcher.DecodeJSONObject[featurePage](body)
}

// ringsCentroid computes the centroid of ESRI ring geometry via go-geom.
func ringsCentroid(rings [][][]float64) (lon, lat float64, ok bool) {
	exterior := rings[0]
	if len(exterior) < 3 {
		return 0, 0, false
	}
	flat := make([]float64, 0, len(exterior)*2)
	for _, pt := range exterior {
		if len(pt) < 2 {
			return 0, 0, false
		}
		flat = append(flat, pt[0], pt[1])
	}

	poly := geom.NewPolygon(geom.XY)
	if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
		return 0, 0, false
	}
	centroid := xy.PolygonsCentroid(poly)
	return centroid[0], centroid[1], true
}

func attrString(attrs map[string]any, key string) string {
	switch v := attrs[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func attrFloat(attrs map[string]any, key string) float64 {
	switch v := attrs[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
