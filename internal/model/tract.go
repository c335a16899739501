package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// CensusTract is one census geographic unit (tract or block group) with the
// demographic covariates attached to it. Covariates hold numeric attributes
// (population, median income); Labels hold categorical ones (income bracket,
// locality). Neither participates in tax computation.
type CensusTract struct {
	GeoID      string             `json:"geo_id"`
	Name       string             `json:"name,omitempty"`
	Covariates map[string]float64 `json:"covariates,omitempty"`
	Labels     map[string]string  `json:"labels,omitempty"`
}

// Validate rejects malformed census rows at the ingestion boundary.
func (t CensusTract) Validate() error {
	if t.GeoID == "" {
		return eris.New("model: census geo_id is required")
	}
	return nil
}

// JoinedParcelRecord is a ParcelRecord extended with the census unit
// reachable via its geo_id. Matched is false and Tract nil when the parcel
// had no census match; demographic absence is explicit, never zero-filled.
type JoinedParcelRecord struct {
	ParcelRecord
	Matched bool         `json:"matched"`
	Tract   *CensusTract `json:"tract,omitempty"`
}

// Label returns the named categorical covariate carried through the join,
// or "unknown" when the parcel is unmatched or the label is absent.
func (j JoinedParcelRecord) Label(name string) string {
	if !j.Matched || j.Tract == nil {
		return "unknown"
	}
	if v, ok := j.Tract.Labels[name]; ok {
		return v
	}
	return "unknown"
}

// BracketLabel buckets a numeric covariate into a human-readable range label
// given ascending bracket bounds. Used to derive categorical groupings
// (e.g. income brackets) from numeric census covariates.
func BracketLabel(value float64, bounds []float64) string {
	if len(bounds) == 0 {
		return "all"
	}
	if value < bounds[0] {
		return fmt.Sprintf("<%.0f", bounds[0])
	}
	for i := 1; i < len(bounds); i++ {
		if value < bounds[i] {
			return fmt.Sprintf("%.0f-%.0f", bounds[i-1], bounds[i])
		}
	}
	return fmt.Sprintf(">=%.0f", bounds[len(bounds)-1])
}
