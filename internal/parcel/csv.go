package parcel

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/parcelworks/lvt-cli/internal/model"
)

// LoadCSV decodes a tax-roll CSV export into parcel records. The header must
// carry at least parcel_id; unknown columns are ignored. Rows are validated
// at the boundary so malformed rolls fail fast instead of corrupting runs.
func LoadCSV(r io.Reader) ([]model.ParcelRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		return nil, eris.Wrap(err, "parcel: read CSV header")
	}

	var parcels []model.ParcelRecord
	for {
		var rec model.ParcelRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "parcel: decode CSV row %d", len(parcels)+2)
		}
		parcels = append(parcels, rec)
	}

	if err := model.ValidateParcels(parcels); err != nil {
		return nil, err
	}

	zap.L().Info("parcel: CSV tax roll loaded", zap.Int("parcels", len(parcels)))
	return parcels, nil
}

// LoadCSVFile opens and decodes a tax-roll CSV at path.
func LoadCSVFile(path string) ([]model.ParcelRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "parcel: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return LoadCSV(f)
}
