package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	rows := []ParcelResult{
		{ParcelID: "A", Shift: 100, Labels: map[string]string{"income_bracket": "<25000"}},
		{ParcelID: "B", Shift: -50, Labels: map[string]string{"income_bracket": "<25000"}},
		{ParcelID: "C", Shift: 200, Labels: map[string]string{"income_bracket": "50000-75000"}},
		{ParcelID: "D", Shift: -10}, // unmatched, no labels
	}

	groups, err := Aggregate(rows, []string{"income_bracket"})
	require.NoError(t, err)
	require.Len(t, groups, 3)

	// Sorted by value: "50000-75000" < "<25000" < "unknown" in byte order.
	assert.Equal(t, "50000-75000", groups[0].Value)
	assert.Equal(t, "<25000", groups[1].Value)
	assert.Equal(t, "unknown", groups[2].Value)

	low := groups[1]
	assert.Equal(t, 2, low.Parcels)
	assert.InDelta(t, 50.0, low.TotalShift, 1e-9)
	assert.InDelta(t, 25.0, low.MeanShift, 1e-9)
	assert.InDelta(t, 25.0, low.MedianShift, 1e-9)
	assert.Equal(t, 1, low.Winners)
	assert.Equal(t, 1, low.Losers)

	unknown := groups[2]
	assert.Equal(t, 1, unknown.Parcels)
	assert.InDelta(t, -10.0, unknown.TotalShift, 1e-9)
}

func TestAggregate_MultipleCovariates(t *testing.T) {
	rows := []ParcelResult{
		{ParcelID: "A", Shift: 10, Labels: map[string]string{"income_bracket": "<25000", "tract": "42101000100"}},
		{ParcelID: "B", Shift: 20, Labels: map[string]string{"income_bracket": "<25000", "tract": "42101000200"}},
	}

	groups, err := Aggregate(rows, []string{"income_bracket", "tract"})
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "income_bracket", groups[0].Covariate)
	assert.Equal(t, "tract", groups[1].Covariate)
	assert.Equal(t, "tract", groups[2].Covariate)
}

func TestAggregate_NoGroupBy(t *testing.T) {
	groups, err := Aggregate([]ParcelResult{{ParcelID: "A", Shift: 1}}, nil)
	require.NoError(t, err)
	assert.Nil(t, groups)
}

func TestAggregate_Median(t *testing.T) {
	rows := []ParcelResult{
		{ParcelID: "A", Shift: 1, Labels: map[string]string{"g": "x"}},
		{ParcelID: "B", Shift: 2, Labels: map[string]string{"g": "x"}},
		{ParcelID: "C", Shift: 100, Labels: map[string]string{"g": "x"}},
	}

	groups, err := Aggregate(rows, []string{"g"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.InDelta(t, 2.0, groups[0].MedianShift, 1e-9, "median resists the outlier")
	assert.InDelta(t, 103.0/3.0, groups[0].MeanShift, 1e-9)
}

func TestCompensatedSum(t *testing.T) {
	// A naive float64 sum drifts on this sequence; compensation holds it.
	var s compensatedSum
	s.Add(1e16)
	for i := 0; i < 10; i++ {
		s.Add(0.1)
	}
	s.Add(-1e16)
	assert.InDelta(t, 1.0, s.Total(), 1e-9)
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 1.23, roundCents(1.234))
	assert.Equal(t, 1.24, roundCents(1.236))
	assert.Equal(t, -0.5, roundCents(-0.504))
	assert.Equal(t, 0.0, roundCents(0.004))
}
