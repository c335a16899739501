package parcel

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/parcelworks/lvt-cli/internal/model"
	"github.com/parcelworks/lvt-cli/pkg/geocode"
)

// GeocodeParcels fills in centroid coordinates for parcels that carry a situs
// address but no coordinates. Parcels that already have a centroid, or no
// address, are left untouched. Returns the number of parcels geocoded.
func GeocodeParcels(ctx context.Context, client *geocode.Client, parcels []model.ParcelRecord) (int, error) {
	matched := 0
	unmatched := 0
	for i := range parcels {
		p := &parcels[i]
		if p.Address == "" || p.HasCentroid() {
			continue
		}

		res, err := client.Geocode(ctx, geocode.Address{ID: p.ParcelID, Street: p.Address})
		if err != nil {
			return matched, eris.Wrapf(err, "parcel: geocode %s", p.ParcelID)
		}
		if !res.Matched {
			unmatched++
			continue
		}
		p.Longitude = res.Longitude
		p.Latitude = res.Latitude
		matched++
	}

	zap.L().Info("parcel: addresses geocoded",
		zap.Int("matched", matched),
		zap.Int("unmatched", unmatched),
	)
	return matched, nil
}
