package convergence

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthetic builds a series with v = exact + c/N^p, the form of a solver in its
// asymptotic range.
func synthetic(exact, c, p float64, N ...float64) (ls LevelSeries) {
	ls = LevelSeries{Observable: "E_solv_kJ", Elements: N}
	for _, n := range N {
		ls.Values = append(ls.Values, exact+c/math.Pow(n, p))
		ls.Labels = append(ls.Labels, fmt.Sprintf("%g", n))
	}
	return
}

func TestAnalyzeRichardsonReference(t *testing.T) {
	ls := synthetic(-2070.47, -1.e5, 1, 500, 2000, 8000, 32000)
	a, err := Analyze(ls, DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, a.Warning)
	assert.False(t, a.Degraded())
	assert.Equal(t, 4., a.ExpectedRate)
	require.NotNil(t, a.Richardson)
	assert.Equal(t, RichardsonReference, a.ReferenceKind)
	assert.InDelta(t, -2070.47, *a.Richardson, 1.e-6)
	assert.Equal(t, [3]int{3, 2, 1}, a.Triple)
	assert.True(t, a.Report.Pass)
	assert.InDelta(t, 1., a.FittedOrder, 1.e-3)

	// Errors against the extrapolated reference never grow with refinement
	for i := 1; i < len(a.Errors); i++ {
		assert.LessOrEqual(t, a.Errors[i], a.Errors[i-1])
	}
}

func TestAnalyzeAnalyticalReference(t *testing.T) {
	exact := 2.5
	ls := synthetic(exact, 1, 2, 10, 20, 40)
	opts := DefaultOptions()
	opts.Exponent = 2
	opts.Analytical = &exact
	a, err := Analyze(ls, opts)
	require.NoError(t, err)
	assert.Equal(t, AnalyticalReference, a.ReferenceKind)
	assert.Equal(t, exact, a.Reference)
	assert.Equal(t, 4., a.ExpectedRate)
	assert.InDeltaSlice(t, []float64{4, 4}, a.Report.ObservedRates, 1.e-9)
	assert.True(t, a.Report.Pass)
	require.NotNil(t, a.Richardson)
	assert.InDelta(t, exact, *a.Richardson, 1.e-9)
}

func TestAnalyzeFineToCoarse(t *testing.T) {
	ls := synthetic(1, 1, 1, 32000, 8000, 2000, 500)
	ls.Order = FineToCoarse
	a, err := Analyze(ls, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, CoarseToFine, a.Series.Order)
	assert.Equal(t, []float64{500, 2000, 8000, 32000}, a.Series.Elements)
	assert.Equal(t, []float64{4, 4, 4}, a.Ratios)
	// The input is left alone
	assert.Equal(t, 32000., ls.Elements[0])
}

func TestAnalyzeInconsistentRatios(t *testing.T) {
	ls := synthetic(1, 1, 1, 500, 2000, 8000, 24000)
	a, err := Analyze(ls, DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, a.Warning)
	assert.True(t, a.Degraded())
	assert.Equal(t, 4., a.ExpectedRate)
	assert.NotEmpty(t, a.Notes)
	// 8000 -> 24000 reduces the error by 3, not 4
	assert.False(t, a.Report.Pass)
}

func TestAnalyzeDensity(t *testing.T) {
	ls := synthetic(1, 1, 1, 500, 2000, 8000)
	ls.Density = Densities(ls.Elements, 100)
	a, err := Analyze(ls, DefaultOptions())
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4, 4}, a.Ratios, 1.e-12)
}

func TestAnalyzeErrors(t *testing.T) {
	{ // Two levels and no analytical value leaves nothing to measure against
		_, err := Analyze(synthetic(1, 1, 1, 10, 20), DefaultOptions())
		assert.True(t, errors.Is(err, ErrInsufficientData))
	}
	{
		exact := 1.
		opts := DefaultOptions()
		opts.Analytical = &exact
		a, err := Analyze(synthetic(1, 1, 1, 10, 20), opts)
		require.NoError(t, err)
		assert.Nil(t, a.Richardson)
		assert.NotEmpty(t, a.Notes)
	}
	{
		ls := LevelSeries{Elements: []float64{10, 20, 40}, Values: []float64{3, 3, 3}}
		_, err := Analyze(ls, DefaultOptions())
		assert.True(t, errors.Is(err, ErrDegenerateExtrapolation))
	}
	{
		ls := synthetic(1, 1, 1, 10, 20, 40)
		ls.Elements = ls.Elements[:2]
		_, err := Analyze(ls, DefaultOptions())
		assert.Error(t, err)
	}
}

func TestAnalyzeNoGeometricTriple(t *testing.T) {
	// Level 32 of 16, 32, 64, 128 was lost; 16, 64, 128 has no constant ratio
	ls := synthetic(3-math.E, -0.02, 2, 16, 64, 128)
	opts := DefaultOptions()
	opts.Exponent = 2
	a, err := Analyze(ls, opts)
	require.NoError(t, err)
	assert.Equal(t, [3]int{2, 1, 0}, a.Triple)
	require.NotNil(t, a.Richardson)
	assert.Equal(t, RichardsonReference, a.ReferenceKind)
	assert.Len(t, a.Report.ObservedRates, 2)
	assert.True(t, a.Degraded())
	assert.Contains(t, fmt.Sprint(a.Notes), "not at a constant refinement ratio")
}

func TestAnalyzeRichardsonLevels(t *testing.T) {
	{ // Named levels are found by label, wherever they sit in the series
		ls := synthetic(1, 1, 1, 16, 32, 64, 96, 128)
		opts := DefaultOptions()
		opts.RichardsonLevels = &[3]string{"64", "32", "16"}
		a, err := Analyze(ls, opts)
		require.NoError(t, err)
		assert.Equal(t, [3]int{2, 1, 0}, a.Triple)
		assert.InDelta(t, 1., *a.Richardson, 1.e-12)
		assert.NotContains(t, fmt.Sprint(a.Notes), "richardson")
	}
	{ // A skipped level falls back to the automatic choice, with a note
		ls := synthetic(1, 1, 1, 32, 64, 96, 128)
		opts := DefaultOptions()
		opts.RichardsonLevels = &[3]string{"64", "32", "16"}
		a, err := Analyze(ls, opts)
		require.NoError(t, err)
		assert.Equal(t, [3]int{3, 1, 0}, a.Triple)
		assert.Contains(t, fmt.Sprint(a.Notes), `level "16" is not in the series`)
		assert.True(t, a.Degraded())
	}
	{ // Named levels off a constant ratio are used but noted
		ls := synthetic(1, 1, 1, 16, 32, 64, 96, 128)
		opts := DefaultOptions()
		opts.RichardsonLevels = &[3]string{"96", "64", "32"}
		a, err := Analyze(ls, opts)
		require.NoError(t, err)
		assert.Equal(t, [3]int{3, 2, 1}, a.Triple)
		assert.Contains(t, fmt.Sprint(a.Notes), "richardson levels 96, 64, 32 are not at a constant refinement ratio")
	}
}

func TestFitOrder(t *testing.T) {
	N := []float64{10, 20, 40, 80}
	errs := []float64{1. / 100, 1. / 400, 1. / 1600, 1. / 6400}
	assert.InDelta(t, 2., FitOrder(N, errs), 1.e-9)
	assert.True(t, math.IsNaN(FitOrder(N, []float64{0, 0, 0, 1})))
}
