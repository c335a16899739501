package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelworks/lvt-cli/internal/model"
	"github.com/parcelworks/lvt-cli/internal/scenario"
)

func testResult(t *testing.T) *scenario.Result {
	t.Helper()
	tract := &model.CensusTract{
		GeoID:  "421010001001",
		Labels: map[string]string{"income_bracket": "50000-75000", "tract": "42101000100"},
	}
	table := []model.JoinedParcelRecord{
		{
			ParcelRecord: model.ParcelRecord{ParcelID: "P-001", GeoID: "421010001001", LandValue: 100000, ImprovementValue: 50000, CurrentTax: 1500},
			Matched:      true,
			Tract:        tract,
		},
		{
			ParcelRecord: model.ParcelRecord{ParcelID: "P-002", LandValue: 50000, ImprovementValue: 150000, CurrentTax: 2000},
		},
	}
	result, err := scenario.Run(table, scenario.Config{RevenueNeutral: true, GroupBy: []string{"income_bracket"}})
	require.NoError(t, err)
	return result
}

func TestScenarioCSV(t *testing.T) {
	result := testResult(t)
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, ScenarioCSV(result, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := records[0]
	assert.Equal(t, []string{
		"parcel_id", "geo_id", "land_value", "improvement_value", "current_tax",
		"new_tax", "shift", "pct_change", "matched",
		"income_bracket", "tract",
	}, header)

	first := records[1]
	assert.Equal(t, "P-001", first[0])
	assert.Equal(t, "421010001001", first[1])
	assert.Equal(t, "100000.00", first[2])
	assert.Equal(t, "2333.33", first[5])
	assert.Equal(t, "833.33", first[6])
	assert.Equal(t, "true", first[8])
	assert.Equal(t, "50000-75000", first[9])

	second := records[2]
	assert.Equal(t, "P-002", second[0])
	assert.Equal(t, "false", second[8])
	assert.Equal(t, "", second[9], "unmatched rows carry empty label cells")
}

func TestScenarioCSV_NoLabels(t *testing.T) {
	table := []model.JoinedParcelRecord{
		{ParcelRecord: model.ParcelRecord{ParcelID: "P-001", LandValue: 100000, CurrentTax: 1000}},
	}
	result, err := scenario.Run(table, scenario.Config{RevenueNeutral: true})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, ScenarioCSV(result, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records[0], len(scenarioColumns))
}

func TestScenarioCSV_BadPath(t *testing.T) {
	err := ScenarioCSV(testResult(t), filepath.Join(t.TempDir(), "missing-dir", "out.csv"))
	require.Error(t, err)
}

func TestLabelColumns_SortedUnion(t *testing.T) {
	rows := []scenario.ParcelResult{
		{Labels: map[string]string{"tract": "x"}},
		{Labels: map[string]string{"income_bracket": "y"}},
		{},
	}
	assert.Equal(t, []string{"income_bracket", "tract"}, labelColumns(rows))
}
