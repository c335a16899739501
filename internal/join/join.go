// Package join aligns parcel rows with census units by geographic identifier.
package join

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/parcelworks/lvt-cli/internal/geoid"
	"github.com/parcelworks/lvt-cli/internal/model"
	"github.com/rotisserie/eris"
)

// Policy controls how parcels without a census match are handled.
type Policy string

const (
	// PolicyKeepUnmatched retains unmatched parcels with explicitly absent
	// demographics. The default.
	PolicyKeepUnmatched Policy = "keep"
	// PolicyDropUnmatched drops unmatched parcels and logs the count.
	PolicyDropUnmatched Policy = "drop"
	// PolicyStrict fails on the first unmatched parcel.
	PolicyStrict Policy = "strict"
)

// Options configures a join run.
type Options struct {
	Policy     Policy
	GeoIDWidth int // width identifiers are normalized to; default block group (12)
}

// AmbiguousJoinError reports a census geo_id that matches more than one row.
// Multi-match is a data error, never resolved by picking an arbitrary row.
type AmbiguousJoinError struct {
	GeoID string
	Count int
}

func (e *AmbiguousJoinError) Error() string {
	return fmt.Sprintf("join: geo_id %s matches %d census rows", e.GeoID, e.Count)
}

// UnmatchedJoinPolicyError reports an unmatched parcel under PolicyStrict.
type UnmatchedJoinPolicyError struct {
	ParcelID string
	GeoID    string
}

func (e *UnmatchedJoinPolicyError) Error() string {
	return fmt.Sprintf("join: parcel %s has no census match for geo_id %q", e.ParcelID, e.GeoID)
}

// Parcels left-joins a parcel table against a census table keyed on
// normalized geo_id. Parcels are the preserved side: every parcel appears
// exactly once in the output (under the default policy), with demographics
// populated on match and explicitly absent otherwise. Census-side duplicate
// keys referenced by any parcel fail with AmbiguousJoinError.
func Parcels(parcels []model.ParcelRecord, tracts []model.CensusTract, opts Options) ([]model.JoinedParcelRecord, error) {
	if opts.GeoIDWidth == 0 {
		opts.GeoIDWidth = geoid.BlockGroupWidth
	}
	if opts.Policy == "" {
		opts.Policy = PolicyKeepUnmatched
	}

	if err := model.ValidateParcels(parcels); err != nil {
		return nil, err
	}
	if len(tracts) == 0 {
		return nil, eris.New("join: census table is empty")
	}

	index, duplicates, err := indexTracts(tracts, opts.GeoIDWidth)
	if err != nil {
		return nil, err
	}

	joined := make([]model.JoinedParcelRecord, 0, len(parcels))
	var unmatched int

	for i := range parcels {
		p := parcels[i]

		var key string
		if p.GeoID != "" {
			key, err = geoid.Normalize(p.GeoID, opts.GeoIDWidth)
			if err != nil {
				return nil, eris.Wrapf(err, "join: parcel %s", p.ParcelID)
			}
		}

		if n, ok := duplicates[key]; ok {
			return nil, &AmbiguousJoinError{GeoID: key, Count: n}
		}

		tract, ok := index[key]
		if !ok {
			unmatched++
			switch opts.Policy {
			case PolicyStrict:
				return nil, &UnmatchedJoinPolicyError{ParcelID: p.ParcelID, GeoID: p.GeoID}
			case PolicyDropUnmatched:
				continue
			}
			joined = append(joined, model.JoinedParcelRecord{ParcelRecord: p})
			continue
		}

		p.GeoID = key
		joined = append(joined, model.JoinedParcelRecord{
			ParcelRecord: p,
			Matched:      true,
			Tract:        tract,
		})
	}

	if unmatched > 0 {
		zap.L().Info("join: parcels without census match",
			zap.Int("unmatched", unmatched),
			zap.Int("total", len(parcels)),
			zap.String("policy", string(opts.Policy)),
		)
	}

	return joined, nil
}

// indexTracts builds a normalized geo_id index over the census table,
// tracking duplicate keys separately so a referenced duplicate can fail the
// join instead of silently winning.
func indexTracts(tracts []model.CensusTract, width int) (map[string]*model.CensusTract, map[string]int, error) {
	index := make(map[string]*model.CensusTract, len(tracts))
	duplicates := make(map[string]int)

	for i := range tracts {
		t := &tracts[i]
		if err := t.Validate(); err != nil {
			return nil, nil, err
		}
		key, err := geoid.Normalize(t.GeoID, width)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "join: census row %s", t.GeoID)
		}
		if _, ok := index[key]; ok {
			duplicates[key]++
			continue
		}
		index[key] = t
	}

	// duplicates counted extra occurrences; report total matches per key.
	for k := range duplicates {
		duplicates[k]++
	}

	return index, duplicates, nil
}
