package scenario

import (
	"go.uber.org/zap"

	"github.com/parcelworks/lvt-cli/internal/model"
)

// ParcelResult is one output row: a parcel's liability under the modeled
// regime and its shift relative to the current one. Demographic labels are
// carried through for aggregation.
type ParcelResult struct {
	ParcelID         string            `json:"parcel_id"`
	GeoID            string            `json:"geo_id"`
	LandValue        float64           `json:"land_value"`
	ImprovementValue float64           `json:"improvement_value"`
	CurrentTax       float64           `json:"current_tax"`
	NewTax           float64           `json:"new_tax"`
	Shift            float64           `json:"shift"`
	PctChange        float64           `json:"pct_change"`
	Matched          bool              `json:"matched"`
	Labels           map[string]string `json:"labels,omitempty"`
}

// Summary aggregates a scenario run.
type Summary struct {
	LandRate        float64        `json:"land_rate"`
	ImprovementRate float64        `json:"improvement_rate"`
	TargetRevenue   float64        `json:"target_revenue"`
	TotalCurrentTax float64        `json:"total_current_tax"`
	TotalNewTax     float64        `json:"total_new_tax"`
	Parcels         int            `json:"parcels"`
	Winners         int            `json:"winners"` // shift < 0: pay less under LVT
	Losers          int            `json:"losers"`  // shift > 0: pay more
	Unchanged       int            `json:"unchanged"`
	MeanShift       float64        `json:"mean_shift"`
	MedianShift     float64        `json:"median_shift"`
	Groups          []GroupSummary `json:"groups,omitempty"`
}

// Result is the full output of a scenario run.
type Result struct {
	Config  Config         `json:"config"`
	Rows    []ParcelResult `json:"rows"`
	Summary Summary        `json:"summary"`
}

// Run computes an LVT scenario over a joined parcel table. It resolves the
// land rate (closed form for revenue-neutral and target-revenue modes),
// computes per-parcel liabilities and shifts, and aggregates. Output row
// order matches input order; identical inputs produce identical output.
func Run(table []model.JoinedParcelRecord, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, &InvalidScenarioConfigError{Reason: "joined parcel table is empty"}
	}

	rate, target, err := resolveRate(table, cfg)
	if err != nil {
		return nil, err
	}

	rows := make([]ParcelResult, 0, len(table))
	var totalCurrent, totalNew compensatedSum
	var winners, losers, unchanged int
	shifts := make([]float64, 0, len(table))

	for _, j := range table {
		newTax := rate*j.LandValue + cfg.ImprovementRate*j.ImprovementValue
		if newTax < 0 {
			// Impossible with validated non-negative rates and values, but
			// a negative liability must never escape.
			return nil, &InvalidScenarioConfigError{
				Reason: "computed negative tax for parcel " + j.ParcelID,
			}
		}
		shift := newTax - j.CurrentTax

		var pct float64
		if j.CurrentTax > 0 {
			pct = shift / j.CurrentTax * 100
		}

		switch {
		case roundCents(shift) > 0:
			losers++
		case roundCents(shift) < 0:
			winners++
		default:
			unchanged++
		}

		totalCurrent.Add(j.CurrentTax)
		totalNew.Add(newTax)
		shifts = append(shifts, shift)

		row := ParcelResult{
			ParcelID:         j.ParcelID,
			GeoID:            j.GeoID,
			LandValue:        j.LandValue,
			ImprovementValue: j.ImprovementValue,
			CurrentTax:       j.CurrentTax,
			NewTax:           newTax,
			Shift:            shift,
			PctChange:        pct,
			Matched:          j.Matched,
		}
		if j.Matched && j.Tract != nil && len(j.Tract.Labels) > 0 {
			row.Labels = j.Tract.Labels
		}
		rows = append(rows, row)
	}

	meanShift, medianShift, err := shiftStats(shifts)
	if err != nil {
		return nil, err
	}

	groups, err := Aggregate(rows, cfg.GroupBy)
	if err != nil {
		return nil, err
	}

	summary := Summary{
		LandRate:        rate,
		ImprovementRate: cfg.ImprovementRate,
		TargetRevenue:   target,
		TotalCurrentTax: totalCurrent.Total(),
		TotalNewTax:     totalNew.Total(),
		Parcels:         len(rows),
		Winners:         winners,
		Losers:          losers,
		Unchanged:       unchanged,
		MeanShift:       meanShift,
		MedianShift:     medianShift,
		Groups:          groups,
	}

	zap.L().Info("scenario: run complete",
		zap.Float64("land_rate", rate),
		zap.Float64("improvement_rate", cfg.ImprovementRate),
		zap.Float64("total_current_tax", summary.TotalCurrentTax),
		zap.Float64("total_new_tax", summary.TotalNewTax),
		zap.Int("parcels", summary.Parcels),
		zap.Int("winners", winners),
		zap.Int("losers", losers),
	)

	return &Result{Config: cfg, Rows: rows, Summary: summary}, nil
}

// resolveRate returns the land rate and the effective revenue target.
// Liability is linear in the land rate, so revenue-neutral and
// target-revenue modes solve a single linear equation:
//
//	r = (target - improvementRate * sum(improvement)) / sum(land)
func resolveRate(table []model.JoinedParcelRecord, cfg Config) (rate, target float64, err error) {
	if !cfg.RevenueNeutral && cfg.LandRate > 0 {
		return cfg.LandRate, 0, nil
	}

	var totalLand, totalImprovement, totalCurrent compensatedSum
	for _, j := range table {
		totalLand.Add(j.LandValue)
		totalImprovement.Add(j.ImprovementValue)
		totalCurrent.Add(j.CurrentTax)
	}

	target = cfg.TargetRevenue
	if cfg.RevenueNeutral {
		target = totalCurrent.Total()
	}

	land := totalLand.Total()
	if land <= 0 {
		return 0, 0, &InfeasibleScenarioError{Reason: "total land value is zero"}
	}

	rate = (target - cfg.ImprovementRate*totalImprovement.Total()) / land
	if rate < 0 {
		return 0, 0, &InfeasibleScenarioError{
			Reason: "improvement tax alone exceeds the revenue target",
		}
	}
	return rate, target, nil
}
