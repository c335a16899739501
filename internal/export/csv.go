// Package export writes scenario results to CSV and XLSX files.
package export

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/parcelworks/lvt-cli/internal/scenario"
)

// scenarioColumns defines the ordered fixed output columns. Label columns
// follow, sorted by name.
var scenarioColumns = []string{
	"parcel_id",
	"geo_id",
	"land_value",
	"improvement_value",
	"current_tax",
	"new_tax",
	"shift",
	"pct_change",
	"matched",
}

// labelColumns collects the sorted union of label names across all rows.
func labelColumns(rows []scenario.ParcelResult) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		for name := range r.Labels {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildScenarioRow(r scenario.ParcelResult, labels []string) []string {
	row := []string{
		r.ParcelID,
		r.GeoID,
		formatMoney(r.LandValue),
		formatMoney(r.ImprovementValue),
		formatMoney(r.CurrentTax),
		formatMoney(r.NewTax),
		formatMoney(r.Shift),
		strconv.FormatFloat(r.PctChange, 'f', 4, 64),
		strconv.FormatBool(r.Matched),
	}
	for _, name := range labels {
		row = append(row, r.Labels[name])
	}
	return row
}

// formatMoney renders a dollar amount with two decimal places.
func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ScenarioCSV writes per-parcel scenario results as a CSV file.
func ScenarioCSV(result *scenario.Result, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return eris.Wrap(err, "export: create CSV file")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	defer w.Flush()

	labels := labelColumns(result.Rows)
	if err := w.Write(append(append([]string{}, scenarioColumns...), labels...)); err != nil {
		return eris.Wrap(err, "export: write CSV header")
	}

	for _, r := range result.Rows {
		if err := w.Write(buildScenarioRow(r, labels)); err != nil {
			return eris.Wrapf(err, "export: write CSV row for parcel %s", r.ParcelID)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush CSV")
	}

	zap.L().Info("export: scenario CSV written",
		zap.String("path", outputPath),
		zap.Int("rows", len(result.Rows)),
	)
	return nil
}
