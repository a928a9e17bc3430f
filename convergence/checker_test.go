package convergence

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPass(t *testing.T) {
	rep, err := Check([]float64{8, 4, 2, 1}, 2, DefaultRateTolerance)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 2}, rep.ObservedRates)
	assert.Empty(t, rep.Flagged)
	assert.True(t, rep.Pass)
	assert.Len(t, rep.Pairs, 3)
}

func TestCheckFlagsStalledPair(t *testing.T) {
	rep, err := Check([]float64{8, 4, 3.9, 0.5}, 2, DefaultRateTolerance)
	require.NoError(t, err)
	assert.False(t, rep.Pass)
	require.Len(t, rep.Flagged, 2)
	pd := rep.Flagged[0]
	assert.Equal(t, 1, pd.I)
	assert.Equal(t, 2, pd.J)
	assert.InDelta(t, 1.0256, pd.Rate, 1.e-4)
	assert.InDelta(t, 0.974, pd.Deviation, 1.e-3)
	// 3.9/0.5 = 7.8 is far from 2 as well
	assert.False(t, rep.Pairs[0].Flagged)
	assert.True(t, rep.Pairs[2].Flagged)
}

func TestCheckFlagsOnlyDeviation(t *testing.T) {
	rep, err := Check([]float64{8, 4, 3.9, 1.95}, 2, DefaultRateTolerance)
	require.NoError(t, err)
	require.Len(t, rep.Flagged, 1)
	assert.Equal(t, 1, rep.Flagged[0].I)
	assert.False(t, rep.Pairs[0].Flagged)
	assert.False(t, rep.Pairs[2].Flagged)
	assert.Contains(t, rep.Flagged[0].String(), "Bad convergence for mesh 1 to 2")
}

func TestCheckZeroErrors(t *testing.T) {
	{ // Exact agreement at the finest level passes
		rep, err := Check([]float64{4, 2, 0}, 2, DefaultRateTolerance)
		require.NoError(t, err)
		assert.True(t, rep.Pass)
		assert.True(t, rep.Pairs[1].Perfect)
		assert.True(t, math.IsInf(rep.ObservedRates[1], 1))
	}
	{ // Both zero
		rep, err := Check([]float64{0, 0}, 2, DefaultRateTolerance)
		require.NoError(t, err)
		assert.True(t, rep.Pass)
		assert.True(t, math.IsNaN(rep.ObservedRates[0]))
	}
	{ // Zero followed by a non-zero error is a rate of 0 and gets flagged
		rep, err := Check([]float64{0, 1}, 2, DefaultRateTolerance)
		require.NoError(t, err)
		assert.False(t, rep.Pass)
		assert.Equal(t, 0., rep.ObservedRates[0])
	}
}

func TestCheckBadInput(t *testing.T) {
	_, err := Check([]float64{1}, 2, DefaultRateTolerance)
	assert.True(t, errors.Is(err, ErrInsufficientData))
	_, err = Check([]float64{1, -1}, 2, DefaultRateTolerance)
	assert.Error(t, err)
}

func TestRelativeErrors(t *testing.T) {
	errs := RelativeErrors([]float64{90, 110, 100}, 100)
	assert.InDeltaSlice(t, []float64{0.1, 0.1, 0}, errs, 1.e-15)
	errs = RelativeErrors([]float64{0.5}, 0)
	assert.Equal(t, []float64{0.5}, errs)
}
