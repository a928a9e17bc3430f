package convergence

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatios(t *testing.T) {
	{ // Length and exact division
		measures := []float64{508, 2032, 8128, 32512}
		r, err := Ratios(measures)
		require.NoError(t, err)
		assert.Equal(t, len(measures)-1, len(r))
		for i := range r {
			assert.Equal(t, measures[i+1]/measures[i], r[i])
		}
	}
	{ // Irregular spacing still yields one ratio per pair
		measures := []float64{1, 2, 4, 8, 12, 16}
		r, err := Ratios(measures)
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 2, 2, 1.5, 16. / 12.}, r)
	}
	{ // Too few measures
		_, err := Ratios([]float64{10})
		assert.True(t, errors.Is(err, ErrInsufficientData))
		var ide *InsufficientDataError
		require.True(t, errors.As(err, &ide))
		assert.Equal(t, 1, ide.Have)
		assert.Equal(t, 2, ide.Need)
	}
}

func TestExpectedRate(t *testing.T) {
	{
		rate, warn := ExpectedRate([]float64{4, 4, 4}, 0)
		assert.Nil(t, warn)
		assert.Equal(t, 4., rate)
	}
	{ // Inconsistent ratios degrade to the first one with a warning
		rate, warn := ExpectedRate([]float64{4, 3.9, 4}, 0)
		require.NotNil(t, warn)
		assert.Equal(t, 4., rate)
		assert.Equal(t, 4., warn.Used)
		assert.Contains(t, warn.Error(), "mesh ratio inconsistency")
	}
	{ // A tolerance absorbs small differences
		rate, warn := ExpectedRate([]float64{4, 4.001, 3.999}, 1.e-3)
		assert.Nil(t, warn)
		assert.Equal(t, 4., rate)
	}
	{ // but not a real change in refinement
		_, warn := ExpectedRate([]float64{4, 4.1}, 1.e-3)
		assert.NotNil(t, warn)
	}
	{
		_, warn := ExpectedRate(nil, 0)
		assert.NotNil(t, warn)
	}
}

func TestExpectedRateOrder(t *testing.T) {
	rate, warn := ExpectedRateOrder([]float64{2, 2, 2}, 0, 2)
	assert.Nil(t, warn)
	assert.Equal(t, 4., rate)

	rate, warn = ExpectedRateOrder([]float64{2, 3}, 0, 2)
	require.NotNil(t, warn)
	assert.Equal(t, 4., rate)
	assert.Equal(t, 4., warn.Used)

	rate, _ = ExpectedRateOrder([]float64{4, 4}, 0, 0)
	assert.Equal(t, 4., rate)
}

func TestDensities(t *testing.T) {
	d := Densities([]float64{100, 400}, 50)
	assert.Equal(t, []float64{2, 8}, d)
	r, err := Ratios(d)
	require.NoError(t, err)
	assert.True(t, math.Abs(r[0]-4) < 1.e-15)
}
