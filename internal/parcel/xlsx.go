package parcel

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/parcelworks/lvt-cli/internal/fetcher"
	"github.com/parcelworks/lvt-cli/internal/model"
)

// LoadXLSXFile decodes an Excel tax-roll export into parcel records. The
// first row of the sheet must be a header using the same column names as the
// CSV loader (parcel_id, geo_id, land_value, ...). Unknown columns are
// ignored.
func LoadXLSXFile(path, sheetName string) ([]model.ParcelRecord, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: sheetName})
	if err != nil {
		return nil, eris.Wrapf(err, "parcel: read %s", path)
	}
	if len(rows) < 2 {
		return nil, eris.Errorf("parcel: %s has no data rows", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["parcel_id"]; !ok {
		return nil, eris.Errorf("parcel: %s missing parcel_id column", path)
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	cellFloat := func(row []string, name string) float64 {
		raw := cell(row, name)
		if raw == "" {
			return 0
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0
		}
		return f
	}

	parcels := make([]model.ParcelRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := model.ParcelRecord{
			ParcelID:         cell(row, "parcel_id"),
			GeoID:            cell(row, "geo_id"),
			LandValue:        cellFloat(row, "land_value"),
			ImprovementValue: cellFloat(row, "improvement_value"),
			CurrentTax:       cellFloat(row, "current_tax"),
			MillageRate:      cellFloat(row, "millage_rate"),
			Exemption:        cellFloat(row, "exemption"),
			PercentageCap:    cellFloat(row, "percentage_cap"),
			Address:          cell(row, "address"),
			Longitude:        cellFloat(row, "longitude"),
			Latitude:         cellFloat(row, "latitude"),
		}
		if exempt := strings.ToLower(cell(row, "exempt")); exempt == "true" || exempt == "1" || exempt == "yes" {
			rec.Exempt = true
		}
		parcels = append(parcels, rec)
	}

	if err := model.ValidateParcels(parcels); err != nil {
		return nil, err
	}

	zap.L().Info("parcel: XLSX tax roll loaded",
		zap.String("path", path),
		zap.Int("parcels", len(parcels)),
	)
	return parcels, nil
}
