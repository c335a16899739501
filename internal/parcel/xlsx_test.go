package parcel

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTestRoll(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Roll")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "roll.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadXLSXFile(t *testing.T) {
	path := writeTestRoll(t, [][]string{
		{"Parcel_ID", "geo_id", "land_value", "improvement_value", "current_tax", "exempt", "note"},
		{"P-001", "421010001001", "100000", "50000", "1500", "", "corner lot"},
		{"P-002", "", "50000", "150000", "2000", "true", ""},
	})

	parcels, err := LoadXLSXFile(path, "Roll")
	require.NoError(t, err)
	require.Len(t, parcels, 2)

	assert.Equal(t, "P-001", parcels[0].ParcelID)
	assert.Equal(t, "421010001001", parcels[0].GeoID)
	assert.Equal(t, 100000.0, parcels[0].LandValue)
	assert.Equal(t, 1500.0, parcels[0].CurrentTax)
	assert.False(t, parcels[0].Exempt)

	assert.True(t, parcels[1].Exempt)
	assert.Empty(t, parcels[1].GeoID)
}

func TestLoadXLSXFile_MissingParcelID(t *testing.T) {
	path := writeTestRoll(t, [][]string{
		{"geo_id", "land_value"},
		{"421010001001", "100"},
	})

	_, err := LoadXLSXFile(path, "Roll")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parcel_id")
}

func TestLoadXLSXFile_NoDataRows(t *testing.T) {
	path := writeTestRoll(t, [][]string{
		{"parcel_id", "land_value"},
	})

	_, err := LoadXLSXFile(path, "Roll")
	require.Error(t, err)
}

func TestLoadXLSXFile_MissingSheet(t *testing.T) {
	path := writeTestRoll(t, [][]string{
		{"parcel_id"},
		{"P-001"},
	})

	_, err := LoadXLSXFile(path, "Wrong")
	require.Error(t, err)
}

func TestLoadXLSXFile_MissingFile(t *testing.T) {
	_, err := LoadXLSXFile(filepath.Join(t.TempDir(), "nope.xlsx"), "")
	require.Error(t, err)
}
