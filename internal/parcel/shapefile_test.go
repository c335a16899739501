package parcel

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygonCentroid(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: -80.0, Y: 25.0},
			{X: -79.0, Y: 25.0},
			{X: -79.0, Y: 26.0},
			{X: -80.0, Y: 26.0},
			{X: -80.0, Y: 25.0},
		},
	}

	lon, lat, ok := polygonCentroid(poly)
	require.True(t, ok)
	assert.InDelta(t, -79.5, lon, 1e-9)
	assert.InDelta(t, 25.5, lat, 1e-9)
}

func TestPolygonCentroid_FirstRingOnly(t *testing.T) {
	// Multi-part polygon: only the exterior ring drives the centroid.
	poly := &shp.Polygon{
		NumParts: 2,
		Parts:    []int32{0, 5},
		Points: []shp.Point{
			{X: 0, Y: 0},
			{X: 10, Y: 0},
			{X: 10, Y: 10},
			{X: 0, Y: 10},
			{X: 0, Y: 0},
			// Second part, far away.
			{X: 100, Y: 100},
			{X: 101, Y: 100},
			{X: 101, Y: 101},
			{X: 100, Y: 101},
			{X: 100, Y: 100},
		},
	}

	lon, lat, ok := polygonCentroid(poly)
	require.True(t, ok)
	assert.InDelta(t, 5.0, lon, 1e-9)
	assert.InDelta(t, 5.0, lat, 1e-9)
}

func TestPolygonCentroid_Degenerate(t *testing.T) {
	_, _, ok := polygonCentroid(&shp.Polygon{})
	assert.False(t, ok)

	_, _, ok = polygonCentroid(&shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points:   []shp.Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
	})
	assert.False(t, ok)
}

func TestLoadShapefile_MissingFile(t *testing.T) {
	_, err := LoadShapefile(filepath.Join(t.TempDir(), "nope.shp"), FieldMap{})
	require.Error(t, err)
}

func TestLoadShapefileArchive_NoShapefileInZip(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "parcels.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("no shapefile here"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = LoadShapefileArchive(zipPath, FieldMap{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .shp file")
}

func TestLoadShapefileArchive_MissingArchive(t *testing.T) {
	_, err := LoadShapefileArchive(filepath.Join(t.TempDir(), "nope.zip"), FieldMap{})
	require.Error(t, err)
}
