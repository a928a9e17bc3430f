package convergence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtrapolate(t *testing.T) {
	var (
		f1, f2, f3 = -2102.6, -2121.5, -2142.0
	)
	fex, err := Extrapolate(f1, f2, f3)
	require.NoError(t, err)
	assert.Equal(t, (f1*f3-f2*f2)/(f3-2*f2+f1), fex)
	// The estimate lies beyond the finest value, in the direction of convergence
	assert.True(t, fex > f1)
	assert.InDelta(t, -1879.3, fex, 1.)
}

func TestExtrapolateGeometricSequence(t *testing.T) {
	// f(h) = 3 + 0.5*h with h halving each level is recovered exactly
	var (
		exact      = 3.
		f3, f2, f1 = exact + 0.5*0.4, exact + 0.5*0.2, exact + 0.5*0.1
	)
	fex, err := Extrapolate(f1, f2, f3)
	require.NoError(t, err)
	assert.InDelta(t, exact, fex, 1.e-12)
}

func TestExtrapolateDegenerate(t *testing.T) {
	_, err := Extrapolate(5, 5, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDegenerateExtrapolation))
	assert.True(t, IsDegenerate(err))

	// Colinear values have a zero second difference as well
	_, err = Extrapolate(1, 2, 3)
	assert.True(t, IsDegenerate(err))
}

func TestGeometricTriple(t *testing.T) {
	{ // Six runs at 1, 2, 4, 8, 12, 16: the finest triple at ratio 2 is 16, 8, 4
		fine, mid, coarse, err := GeometricTriple([]float64{1, 2, 4, 8, 12, 16}, 0)
		require.NoError(t, err)
		assert.Equal(t, [3]int{5, 3, 2}, [3]int{fine, mid, coarse})
	}
	{
		fine, mid, coarse, err := GeometricTriple([]float64{500, 2000, 8000, 32000}, 0)
		require.NoError(t, err)
		assert.Equal(t, [3]int{3, 2, 1}, [3]int{fine, mid, coarse})
	}
	{
		fine, mid, coarse, err := GeometricTriple([]float64{1, 2, 5}, 0)
		assert.True(t, errors.Is(err, ErrInsufficientData))
		assert.Equal(t, [3]int{0, 0, 0}, [3]int{fine, mid, coarse})
	}
	{
		_, _, _, err := GeometricTriple([]float64{1, 2}, 0)
		var ide *InsufficientDataError
		assert.True(t, errors.As(err, &ide))
	}
	{ // Tolerance admits element counts that are only nearly geometric
		_, _, _, err := GeometricTriple([]float64{508, 2030, 8128}, 1.e-2)
		assert.NoError(t, err)
		_, _, _, err = GeometricTriple([]float64{508, 2030, 8128}, 0)
		assert.Error(t, err)
	}
}
