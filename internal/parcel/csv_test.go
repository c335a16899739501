package parcel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV(t *testing.T) {
	roll := strings.TrimSpace(`
parcel_id,geo_id,land_value,improvement_value,current_tax,assessor_note
P-001,421010001001,100000,50000,1500,corner lot
P-002,421010001002,50000,150000,2000,
P-003,,75000,0,900,vacant
`)

	parcels, err := LoadCSV(strings.NewReader(roll))
	require.NoError(t, err)
	require.Len(t, parcels, 3)

	first := parcels[0]
	assert.Equal(t, "P-001", first.ParcelID)
	assert.Equal(t, "421010001001", first.GeoID)
	assert.Equal(t, 100000.0, first.LandValue)
	assert.Equal(t, 50000.0, first.ImprovementValue)
	assert.Equal(t, 1500.0, first.CurrentTax)

	assert.Empty(t, parcels[2].GeoID, "missing geo_id stays empty for spatial assignment")
}

func TestLoadCSV_MillageColumns(t *testing.T) {
	roll := strings.TrimSpace(`
parcel_id,land_value,improvement_value,millage_rate,exemption,exempt,percentage_cap
P-001,100000,50000,20.5,45000,false,0.03
P-002,80000,0,20.5,0,true,0
`)

	parcels, err := LoadCSV(strings.NewReader(roll))
	require.NoError(t, err)
	require.Len(t, parcels, 2)
	assert.Equal(t, 20.5, parcels[0].MillageRate)
	assert.Equal(t, 45000.0, parcels[0].Exemption)
	assert.Equal(t, 0.03, parcels[0].PercentageCap)
	assert.True(t, parcels[1].Exempt)
}

func TestLoadCSV_Invalid(t *testing.T) {
	tests := []struct {
		name string
		roll string
	}{
		{"empty table", "parcel_id,land_value\n"},
		{"missing parcel_id", "parcel_id,land_value\n,100\n"},
		{"negative value", "parcel_id,land_value\nP-001,-5\n"},
		{"duplicate parcel_id", "parcel_id,land_value\nP-001,100\nP-001,200\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tt.roll))
			require.Error(t, err)
		})
	}
}

func TestLoadCSVFile_Missing(t *testing.T) {
	_, err := LoadCSVFile("does/not/exist.csv")
	require.Error(t, err)
}
