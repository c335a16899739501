package parcel

import (
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/parcelworks/lvt-cli/internal/fetcher"
	"github.com/parcelworks/lvt-cli/internal/model"
)

// LoadShapefile reads an assessor parcel shapefile and maps its attribute
// table to parcel records. Polygon centroids are computed so rows without a
// usable geo_id can be assigned one spatially. Coordinates are assumed WGS84;
// reprojection is the caller's job.
func LoadShapefile(shpPath string, fields FieldMap) ([]model.ParcelRecord, error) {
	fields = fields.withDefaults()

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrap(err, "parcel: open shapefile")
	}
	defer func() { _ = reader.Close() }()

	parcelIDIdx := fieldIndex(reader, fields.ParcelID)
	if parcelIDIdx < 0 {
		return nil, eris.Errorf("parcel: shapefile field %q not found", fields.ParcelID)
	}
	geoIDIdx := fieldIndex(reader, fields.GeoID)
	landIdx := fieldIndex(reader, fields.LandValue)
	impIdx := fieldIndex(reader, fields.ImprovementValue)
	taxIdx := fieldIndex(reader, fields.CurrentTax)

	var parcels []model.ParcelRecord
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		rec := model.ParcelRecord{
			ParcelID:         strings.TrimSpace(reader.Attribute(parcelIDIdx)),
			GeoID:            attributeString(reader, geoIDIdx),
			LandValue:        attributeFloat(reader, landIdx),
			ImprovementValue: attributeFloat(reader, impIdx),
			CurrentTax:       attributeFloat(reader, taxIdx),
		}
		if rec.ParcelID == "" {
			skipped++
			continue
		}
		if poly, ok := shape.(*shp.Polygon); ok {
			if lon, lat, ok := polygonCentroid(poly); ok {
				rec.Longitude, rec.Latitude = lon, lat
			}
		}
		if err := rec.Validate(); err != nil {
			return nil, eris.Wrap(err, "parcel: shapefile row")
		}
		parcels = append(parcels, rec)
	}

	if err := model.ValidateParcels(parcels); err != nil {
		return nil, err
	}

	zap.L().Info("parcel: shapefile loaded",
		zap.String("path", shpPath),
		zap.Int("parcels", len(parcels)),
		zap.Int("skipped", skipped),
	)
	return parcels, nil
}

// LoadShapefileArchive extracts a zipped shapefile to a temp directory and
// loads it. Assessor portals usually serve shapefiles zipped.
func LoadShapefileArchive(zipPath string, fields FieldMap) ([]model.ParcelRecord, error) {
	destDir, err := os.MkdirTemp("", "parcel-shp-")
	if err != nil {
		return nil, eris.Wrap(err, "parcel: create temp dir")
	}
	defer os.RemoveAll(destDir) //nolint:errcheck

	paths, err := fetcher.ExtractZIP(zipPath, destDir)
	if err != nil {
		return nil, eris.Wrapf(err, "parcel: extract %s", zipPath)
	}

	for _, p := range paths {
		if strings.HasSuffix(strings.ToLower(p), ".shp") {
			return LoadShapefile(p, fields)
		}
	}
	return nil, eris.Errorf("parcel: no .shp file in %s", zipPath)
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

func attributeString(reader *shp.Reader, idx int) string {
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(reader.Attribute(idx))
}

func attributeFloat(reader *shp.Reader, idx int) float64 {
	raw := attributeString(reader, idx)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}

// polygonCentroid computes the centroid of the first ring of a shapefile
// polygon via go-geom.
func polygonCentroid(p *shp.Polygon) (lon, lat float64, ok bool) {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return 0, 0, false
	}

	end := len(p.Points)
	if p.NumParts > 1 {
		end = int(p.Parts[1])
	}
	if end < 3 {
		return 0, 0, false
	}

	flat := make([]float64, 0, end*2)
	for _, pt := range p.Points[:end] {
		flat = append(flat, pt.X, pt.Y)
	}

	poly := geom.NewPolygon(geom.XY)
	if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
		return 0, 0, false
	}
	centroid := xy.PolygonsCentroid(poly)
	return centroid[0], centroid[1], true
}
