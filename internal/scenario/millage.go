package scenario

import (
	"math"

	"go.uber.org/zap"

	"github.com/parcelworks/lvt-cli/internal/model"
)

// MillageOptions configures current-tax computation from an assessment roll.
type MillageOptions struct {
	// SecondMillageRate, when positive, reports the revenue of a secondary
	// levy alongside the primary. It must not exceed any parcel's primary
	// rate.
	SecondMillageRate float64
}

// MillageResult holds current-regime liabilities computed from millage rates.
type MillageResult struct {
	TotalRevenue  float64
	SecondRevenue float64
	Parcels       []model.ParcelRecord // CurrentTax populated
	Capped        int
}

// CurrentTax computes each parcel's current liability from its assessed
// value and millage rate: taxable value × rate / 1000, after exemptions,
// with an optional percentage cap on liability relative to assessed value.
func CurrentTax(parcels []model.ParcelRecord, opts MillageOptions) (*MillageResult, error) {
	if err := model.ValidateParcels(parcels); err != nil {
		return nil, err
	}

	out := make([]model.ParcelRecord, len(parcels))
	var total, second compensatedSum
	var capped int

	for i, p := range parcels {
		if p.MillageRate < 0 {
			return nil, &InvalidScenarioConfigError{Reason: "negative millage rate for parcel " + p.ParcelID}
		}
		if opts.SecondMillageRate > 0 && opts.SecondMillageRate > p.MillageRate {
			return nil, &InvalidScenarioConfigError{
				Reason: "second millage rate exceeds primary for parcel " + p.ParcelID,
			}
		}

		taxable := p.AssessedValue()
		if p.Exempt {
			taxable = 0
		}
		taxable = math.Max(taxable-p.Exemption, 0)

		tax := taxable * p.MillageRate / 1000

		if p.PercentageCap > 0 {
			maxTax := p.AssessedValue() * p.PercentageCap
			if tax > maxTax {
				tax = maxTax
				capped++
			}
		}

		p.CurrentTax = tax
		out[i] = p
		total.Add(tax)

		if opts.SecondMillageRate > 0 && p.MillageRate > 0 {
			second.Add(tax * opts.SecondMillageRate / p.MillageRate)
		}
	}

	zap.L().Info("millage: current tax computed",
		zap.Int("parcels", len(out)),
		zap.Int("capped", capped),
		zap.Float64("total_revenue", total.Total()),
	)

	return &MillageResult{
		TotalRevenue:  total.Total(),
		SecondRevenue: second.Total(),
		Parcels:       out,
		Capped:        capped,
	}, nil
}

// SplitRateOptions configures split-rate modeling.
type SplitRateOptions struct {
	Ratio         float64 // land rate : improvement rate, default 3
	MaxIterations int     // cap-solving iterations, default 40
	Tolerance     float64 // relative revenue tolerance, default 1e-5
}

// SplitParcelResult is one parcel under a split-rate regime.
type SplitParcelResult struct {
	ParcelID       string  `json:"parcel_id"`
	LandTax        float64 `json:"land_tax"`
	ImprovementTax float64 `json:"improvement_tax"`
	NewTax         float64 `json:"new_tax"`
	Shift          float64 `json:"shift"`
	PctChange      float64 `json:"pct_change"`
	Capped         bool    `json:"capped"`
}

// SplitRateResult holds the solved rates and per-parcel liabilities.
type SplitRateResult struct {
	LandMillage        float64             `json:"land_millage"`
	ImprovementMillage float64             `json:"improvement_millage"`
	TotalRevenue       float64             `json:"total_revenue"`
	Capped             int                 `json:"capped"`
	Rows               []SplitParcelResult `json:"rows"`
}

// SplitRate models a split-rate property tax where land is taxed at Ratio
// times the improvement rate, holding total revenue at targetRevenue. The
// improvement millage has the closed form target·1000 / (ΣI + ratio·ΣL);
// with percentage caps in play the rates are rescaled iteratively until
// capped revenue lands within tolerance of the target.
func SplitRate(table []model.JoinedParcelRecord, targetRevenue float64, opts SplitRateOptions) (*SplitRateResult, error) {
	if targetRevenue <= 0 {
		return nil, &InvalidScenarioConfigError{Reason: "split-rate target revenue must be positive"}
	}
	if opts.Ratio == 0 {
		opts.Ratio = 3
	}
	if opts.Ratio < 0 {
		return nil, &InvalidScenarioConfigError{Reason: "negative land:improvement ratio"}
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 40
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-5
	}
	if len(table) == 0 {
		return nil, &InvalidScenarioConfigError{Reason: "joined parcel table is empty"}
	}

	// Exemption-adjusted values: exemptions consume improvement value first,
	// then spill over onto land.
	adjLand := make([]float64, len(table))
	adjImprovement := make([]float64, len(table))
	hasCaps := false

	var totalLand, totalImprovement compensatedSum
	for i, j := range table {
		land, improvement := j.LandValue, j.ImprovementValue
		if j.Exempt {
			land, improvement = 0, 0
		}
		if j.Exemption > 0 {
			remaining := j.Exemption - improvement
			improvement = math.Max(improvement-j.Exemption, 0)
			land = math.Max(land-math.Max(remaining, 0), 0)
		}
		adjLand[i] = land
		adjImprovement[i] = improvement
		totalLand.Add(land)
		totalImprovement.Add(improvement)
		if j.PercentageCap > 0 {
			hasCaps = true
		}
	}

	denominator := totalImprovement.Total() + opts.Ratio*totalLand.Total()
	if denominator <= 0 {
		return nil, &InfeasibleScenarioError{Reason: "total taxable value is zero"}
	}

	improvementMillage := targetRevenue * 1000 / denominator
	landMillage := opts.Ratio * improvementMillage

	if hasCaps {
		for iter := 0; iter < opts.MaxIterations; iter++ {
			revenue := cappedRevenue(table, adjLand, adjImprovement, landMillage, improvementMillage)
			if math.Abs(revenue-targetRevenue)/targetRevenue < opts.Tolerance {
				break
			}
			improvementMillage *= targetRevenue / revenue
			landMillage = opts.Ratio * improvementMillage
			if iter == opts.MaxIterations-1 {
				zap.L().Warn("split-rate: max iterations reached, revenue target approximate",
					zap.Float64("revenue", revenue),
					zap.Float64("target", targetRevenue),
				)
			}
		}
	}

	rows := make([]SplitParcelResult, len(table))
	var total compensatedSum
	var cappedCount int

	for i, j := range table {
		landTax := adjLand[i] * landMillage / 1000
		improvementTax := adjImprovement[i] * improvementMillage / 1000
		newTax := landTax + improvementTax
		wasCapped := false

		if j.PercentageCap > 0 {
			maxTax := j.AssessedValue() * j.PercentageCap
			if newTax > maxTax && newTax > 0 {
				// Redistribute the capped amount proportionally between the
				// land and improvement portions.
				scale := maxTax / newTax
				landTax *= scale
				improvementTax *= scale
				newTax = maxTax
				wasCapped = true
				cappedCount++
			}
		}

		shift := newTax - j.CurrentTax
		var pct float64
		if j.CurrentTax > 0 {
			pct = shift / j.CurrentTax * 100
		}

		rows[i] = SplitParcelResult{
			ParcelID:       j.ParcelID,
			LandTax:        landTax,
			ImprovementTax: improvementTax,
			NewTax:         newTax,
			Shift:          shift,
			PctChange:      pct,
			Capped:         wasCapped,
		}
		total.Add(newTax)
	}

	zap.L().Info("split-rate: model solved",
		zap.Float64("land_millage", landMillage),
		zap.Float64("improvement_millage", improvementMillage),
		zap.Float64("ratio", opts.Ratio),
		zap.Float64("total_revenue", total.Total()),
		zap.Float64("target_revenue", targetRevenue),
		zap.Int("capped", cappedCount),
	)

	return &SplitRateResult{
		LandMillage:        landMillage,
		ImprovementMillage: improvementMillage,
		TotalRevenue:       total.Total(),
		Capped:             cappedCount,
		Rows:               rows,
	}, nil
}

// cappedRevenue computes total revenue at the given rates with caps applied.
func cappedRevenue(table []model.JoinedParcelRecord, adjLand, adjImprovement []float64, landMillage, improvementMillage float64) float64 {
	var total compensatedSum
	for i, j := range table {
		tax := adjLand[i]*landMillage/1000 + adjImprovement[i]*improvementMillage/1000
		if j.PercentageCap > 0 {
			tax = math.Min(tax, j.AssessedValue()*j.PercentageCap)
		}
		total.Add(tax)
	}
	return total.Total()
}
