package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParcelRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		parcel  ParcelRecord
		wantErr bool
	}{
		{
			name:   "valid",
			parcel: ParcelRecord{ParcelID: "P1", LandValue: 100000, ImprovementValue: 50000, CurrentTax: 1500},
		},
		{
			name:   "zero values allowed",
			parcel: ParcelRecord{ParcelID: "P2"},
		},
		{
			name:    "missing parcel_id",
			parcel:  ParcelRecord{LandValue: 100000},
			wantErr: true,
		},
		{
			name:    "negative land value",
			parcel:  ParcelRecord{ParcelID: "P3", LandValue: -1},
			wantErr: true,
		},
		{
			name:    "negative improvement value",
			parcel:  ParcelRecord{ParcelID: "P4", ImprovementValue: -1},
			wantErr: true,
		},
		{
			name:    "negative current tax",
			parcel:  ParcelRecord{ParcelID: "P5", CurrentTax: -0.01},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.parcel.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateParcels(t *testing.T) {
	t.Run("empty table rejected", func(t *testing.T) {
		err := ValidateParcels(nil)
		require.Error(t, err)
	})

	t.Run("duplicate parcel_id rejected", func(t *testing.T) {
		err := ValidateParcels([]ParcelRecord{
			{ParcelID: "P1", LandValue: 1},
			{ParcelID: "P1", LandValue: 2},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate parcel_id")
	})

	t.Run("valid table", func(t *testing.T) {
		err := ValidateParcels([]ParcelRecord{
			{ParcelID: "P1", LandValue: 1},
			{ParcelID: "P2", LandValue: 2},
		})
		assert.NoError(t, err)
	})
}

func TestParcelRecord_AssessedValue(t *testing.T) {
	p := ParcelRecord{ParcelID: "P1", LandValue: 100000, ImprovementValue: 50000}
	assert.Equal(t, 150000.0, p.AssessedValue())
}

func TestParcelRecord_HasCentroid(t *testing.T) {
	assert.False(t, ParcelRecord{ParcelID: "P1"}.HasCentroid())
	assert.True(t, ParcelRecord{ParcelID: "P2", Longitude: -75.16, Latitude: 39.95}.HasCentroid())
}
