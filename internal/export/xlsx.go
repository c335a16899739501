package export

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/parcelworks/lvt-cli/internal/scenario"
)

// ScenarioXLSX writes a scenario workbook with Parcels, Summary, and Groups
// sheets.
func ScenarioXLSX(result *scenario.Result, outputPath string) error {
	f := xlsx.NewFile()

	if err := addParcelSheet(f, result); err != nil {
		return err
	}
	if err := addSummarySheet(f, result); err != nil {
		return err
	}
	if len(result.Summary.Groups) > 0 {
		if err := addGroupSheet(f, result); err != nil {
			return err
		}
	}

	if err := f.Save(outputPath); err != nil {
		return eris.Wrap(err, "export: save XLSX")
	}

	zap.L().Info("export: scenario XLSX written",
		zap.String("path", outputPath),
		zap.Int("rows", len(result.Rows)),
	)
	return nil
}

func addParcelSheet(f *xlsx.File, result *scenario.Result) error {
	sheet, err := f.AddSheet("Parcels")
	if err != nil {
		return eris.Wrap(err, "export: add Parcels sheet")
	}

	labels := labelColumns(result.Rows)
	writeStringRow(sheet, append(append([]string{}, scenarioColumns...), labels...))

	for _, r := range result.Rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.ParcelID)
		row.AddCell().SetString(r.GeoID)
		row.AddCell().SetFloat(r.LandValue)
		row.AddCell().SetFloat(r.ImprovementValue)
		row.AddCell().SetFloat(r.CurrentTax)
		row.AddCell().SetFloat(r.NewTax)
		row.AddCell().SetFloat(r.Shift)
		row.AddCell().SetFloat(r.PctChange)
		row.AddCell().SetBool(r.Matched)
		for _, name := range labels {
			row.AddCell().SetString(r.Labels[name])
		}
	}
	return nil
}

func addSummarySheet(f *xlsx.File, result *scenario.Result) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add Summary sheet")
	}

	s := result.Summary
	pairs := []struct {
		name  string
		value float64
	}{
		{"land_rate", s.LandRate},
		{"improvement_rate", s.ImprovementRate},
		{"target_revenue", s.TargetRevenue},
		{"total_current_tax", s.TotalCurrentTax},
		{"total_new_tax", s.TotalNewTax},
		{"parcels", float64(s.Parcels)},
		{"winners", float64(s.Winners)},
		{"losers", float64(s.Losers)},
		{"unchanged", float64(s.Unchanged)},
		{"mean_shift", s.MeanShift},
		{"median_shift", s.MedianShift},
	}

	writeStringRow(sheet, []string{"metric", "value"})
	for _, p := range pairs {
		row := sheet.AddRow()
		row.AddCell().SetString(p.name)
		row.AddCell().SetFloat(p.value)
	}
	return nil
}

func addGroupSheet(f *xlsx.File, result *scenario.Result) error {
	sheet, err := f.AddSheet("Groups")
	if err != nil {
		return eris.Wrap(err, "export: add Groups sheet")
	}

	writeStringRow(sheet, []string{
		"covariate", "value", "parcels", "total_shift",
		"mean_shift", "median_shift", "winners", "losers",
	})
	for _, g := range result.Summary.Groups {
		row := sheet.AddRow()
		row.AddCell().SetString(g.Covariate)
		row.AddCell().SetString(g.Value)
		row.AddCell().SetString(strconv.Itoa(g.Parcels))
		row.AddCell().SetFloat(g.TotalShift)
		row.AddCell().SetFloat(g.MeanShift)
		row.AddCell().SetFloat(g.MedianShift)
		row.AddCell().SetString(strconv.Itoa(g.Winners))
		row.AddCell().SetString(strconv.Itoa(g.Losers))
	}
	return nil
}

func writeStringRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
