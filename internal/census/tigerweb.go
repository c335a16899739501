package census

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/parcelworks/lvt-cli/internal/geoid"
)

// Boundary is one block-group boundary polygon keyed by its GEOID.
type Boundary struct {
	GeoID    string
	Geometry geom.T
}

// FetchBlockGroupBoundaries fetches block-group boundary polygons for a
// county from the TIGERweb ArcGIS service as GeoJSON (WGS84).
func (c *Client) FetchBlockGroupBoundaries(ctx context.Context, countyFIPS string) ([]Boundary, error) {
	stateFIPS, county, err := geoid.SplitCountyFIPS(countyFIPS)
	if err != nil {
		return nil, eris.Wrap(err, "census: county FIPS")
	}

	q := url.Values{}
	q.Set("where", fmt.Sprintf("STATE='%s' AND COUNTY='%s'", stateFIPS, county))
	q.Set("outFields", "STATE,COUNTY,TRACT,BLKGRP")
	q.Set("returnGeometry", "true")
	q.Set("f", "geojson")
	q.Set("outSR", "4326")

	body, err := c.fetcher.Download(ctx, c.tigerURL+"?"+q.Encode())
	if err != nil {
		return nil, eris.Wrapf(err, "census: fetch TIGERweb boundaries for %s", countyFIPS)
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "census: read TIGERweb response")
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "census: decode TIGERweb GeoJSON")
	}

	boundaries := make([]Boundary, 0, len(fc.Features))
	var skipped int
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			skipped++
			continue
		}
		gid, err := geoid.Compose(
			propString(f.Properties, "STATE"),
			propString(f.Properties, "COUNTY"),
			propString(f.Properties, "TRACT"),
			propString(f.Properties, "BLKGRP"),
		)
		if err != nil {
			skipped++
			continue
		}
		boundaries = append(boundaries, Boundary{GeoID: gid, Geometry: f.Geometry})
	}

	if len(boundaries) == 0 {
		return nil, eris.Errorf("census: TIGERweb returned no boundaries for %s", countyFIPS)
	}
	if skipped > 0 {
		zap.L().Debug("census: skipped boundary features",
			zap.String("county_fips", countyFIPS),
			zap.Int("skipped", skipped),
		)
	}

	zap.L().Info("census: block group boundaries fetched",
		zap.String("county_fips", countyFIPS),
		zap.Int("boundaries", len(boundaries)),
	)
	return boundaries, nil
}

// propString reads a string property from a GeoJSON feature, tolerating
// numeric encodings of FIPS components.
func propString(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
