// Package model defines the tabular records flowing through the LVT pipeline.
package model

import (
	"github.com/rotisserie/eris"
)

// ParcelRecord is one row of a parcel/tax table: a single taxable unit of
// real property with its assessed values and current liability.
type ParcelRecord struct {
	ParcelID         string  `json:"parcel_id" csv:"parcel_id"`
	GeoID            string  `json:"geo_id" csv:"geo_id"`
	LandValue        float64 `json:"land_value" csv:"land_value"`
	ImprovementValue float64 `json:"improvement_value" csv:"improvement_value"`
	CurrentTax       float64 `json:"current_tax" csv:"current_tax"`

	// Optional millage inputs, used when the current liability has to be
	// computed from the assessment roll rather than read from it.
	MillageRate   float64 `json:"millage_rate,omitempty" csv:"millage_rate,omitempty"`
	Exemption     float64 `json:"exemption,omitempty" csv:"exemption,omitempty"`
	Exempt        bool    `json:"exempt,omitempty" csv:"exempt,omitempty"`
	PercentageCap float64 `json:"percentage_cap,omitempty" csv:"percentage_cap,omitempty"`

	// Optional situs address, geocodable when the roll carries neither a
	// geo_id nor coordinates.
	Address string `json:"address,omitempty" csv:"address,omitempty"`

	// Optional centroid coordinates (WGS84) for spatial block-group
	// assignment when the roll carries no usable geo_id.
	Longitude float64 `json:"longitude,omitempty" csv:"longitude,omitempty"`
	Latitude  float64 `json:"latitude,omitempty" csv:"latitude,omitempty"`
}

// AssessedValue returns the total assessed tax base for the parcel.
func (p ParcelRecord) AssessedValue() float64 {
	return p.LandValue + p.ImprovementValue
}

// HasCentroid reports whether the parcel carries usable centroid coordinates.
func (p ParcelRecord) HasCentroid() bool {
	return p.Longitude != 0 || p.Latitude != 0
}

// Validate rejects malformed parcel rows at the ingestion boundary.
func (p ParcelRecord) Validate() error {
	if p.ParcelID == "" {
		return eris.New("model: parcel_id is required")
	}
	if p.LandValue < 0 {
		return eris.Errorf("model: parcel %s: negative land_value %f", p.ParcelID, p.LandValue)
	}
	if p.ImprovementValue < 0 {
		return eris.Errorf("model: parcel %s: negative improvement_value %f", p.ParcelID, p.ImprovementValue)
	}
	if p.CurrentTax < 0 {
		return eris.Errorf("model: parcel %s: negative current_tax %f", p.ParcelID, p.CurrentTax)
	}
	return nil
}

// ValidateParcels validates every row and rejects duplicate parcel IDs.
func ValidateParcels(parcels []ParcelRecord) error {
	if len(parcels) == 0 {
		return eris.New("model: parcel table is empty")
	}
	seen := make(map[string]bool, len(parcels))
	for _, p := range parcels {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.ParcelID] {
			return eris.Errorf("model: duplicate parcel_id %q", p.ParcelID)
		}
		seen[p.ParcelID] = true
	}
	return nil
}
