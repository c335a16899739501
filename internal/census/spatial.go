package census

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/parcelworks/lvt-cli/internal/model"
)

// AssignGeoIDs fills in the geo_id of parcels that lack one by locating each
// parcel's centroid inside a block-group boundary. Parcels that already
// carry a geo_id are left alone. Returns the number of parcels assigned.
func AssignGeoIDs(parcels []model.ParcelRecord, boundaries []Boundary) int {
	var assigned, unlocated int

	for i := range parcels {
		if parcels[i].GeoID != "" || !parcels[i].HasCentroid() {
			continue
		}
		point := geom.Coord{parcels[i].Longitude, parcels[i].Latitude}

		found := false
		for _, b := range boundaries {
			if containsPoint(b.Geometry, point) {
				parcels[i].GeoID = b.GeoID
				assigned++
				found = true
				break
			}
		}
		if !found {
			unlocated++
		}
	}

	if assigned > 0 || unlocated > 0 {
		zap.L().Info("census: spatial geo_id assignment",
			zap.Int("assigned", assigned),
			zap.Int("unlocated", unlocated),
		)
	}
	return assigned
}

// containsPoint reports whether the point falls inside the polygon or
// multipolygon. A point inside an interior ring (hole) is outside.
func containsPoint(g geom.T, point geom.Coord) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, point)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), point) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func polygonContains(p *geom.Polygon, point geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(p.Layout(), point, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(p.Layout(), point, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}
