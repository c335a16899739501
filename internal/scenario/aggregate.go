package scenario

import (
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/rotisserie/eris"
)

// GroupSummary reports the shift distribution within one value of one
// grouping covariate.
type GroupSummary struct {
	Covariate   string  `json:"covariate"`
	Value       string  `json:"value"`
	Parcels     int     `json:"parcels"`
	TotalShift  float64 `json:"total_shift"`
	MeanShift   float64 `json:"mean_shift"`
	MedianShift float64 `json:"median_shift"`
	Winners     int     `json:"winners"`
	Losers      int     `json:"losers"`
}

// Aggregate groups parcel shifts by each requested covariate label and
// reports count, total, mean, median, and winner/loser counts per group.
// Unmatched parcels and parcels missing a label fall into "unknown".
// Output order is deterministic: sorted by covariate, then group value.
func Aggregate(rows []ParcelResult, groupBy []string) ([]GroupSummary, error) {
	if len(groupBy) == 0 {
		return nil, nil
	}

	type bucket struct {
		shifts  []float64
		total   compensatedSum
		winners int
		losers  int
	}

	var summaries []GroupSummary
	for _, covariate := range groupBy {
		buckets := make(map[string]*bucket)
		for _, r := range rows {
			value := "unknown"
			if v, ok := r.Labels[covariate]; ok && v != "" {
				value = v
			}
			b := buckets[value]
			if b == nil {
				b = &bucket{}
				buckets[value] = b
			}
			b.shifts = append(b.shifts, r.Shift)
			b.total.Add(r.Shift)
			switch {
			case roundCents(r.Shift) > 0:
				b.losers++
			case roundCents(r.Shift) < 0:
				b.winners++
			}
		}

		values := make([]string, 0, len(buckets))
		for v := range buckets {
			values = append(values, v)
		}
		sort.Strings(values)

		for _, v := range values {
			b := buckets[v]
			mean, median, err := shiftStats(b.shifts)
			if err != nil {
				return nil, eris.Wrapf(err, "scenario: aggregate %s=%s", covariate, v)
			}
			summaries = append(summaries, GroupSummary{
				Covariate:   covariate,
				Value:       v,
				Parcels:     len(b.shifts),
				TotalShift:  b.total.Total(),
				MeanShift:   mean,
				MedianShift: median,
				Winners:     b.winners,
				Losers:      b.losers,
			})
		}
	}

	return summaries, nil
}

// shiftStats returns the mean and median of a shift sample.
func shiftStats(shifts []float64) (mean, median float64, err error) {
	if len(shifts) == 0 {
		return 0, 0, nil
	}
	mean, err = stats.Mean(shifts)
	if err != nil {
		return 0, 0, eris.Wrap(err, "scenario: mean shift")
	}
	median, err = stats.Median(shifts)
	if err != nil {
		return 0, 0, eris.Wrap(err, "scenario: median shift")
	}
	return mean, median, nil
}
