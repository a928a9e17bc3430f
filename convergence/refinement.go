package convergence

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Ratios returns the refinement ratio between consecutive levels,
// ratios[i] = measures[i+1] / measures[i].
func Ratios(measures []float64) (ratios []float64, err error) {
	if len(measures) < 2 {
		err = &InsufficientDataError{Op: "refinement ratios", Have: len(measures), Need: 2}
		return
	}
	ratios = make([]float64, len(measures)-1)
	for i := range ratios {
		ratios[i] = measures[i+1] / measures[i]
	}
	return
}

// ExpectedRate returns the common refinement ratio when every ratio matches the
// first within tol. Otherwise the first ratio is returned as a best-effort
// value together with a warning; the analysis continues in degraded form.
func ExpectedRate(ratios []float64, tol float64) (rate float64, warn *RatioInconsistencyWarning) {
	if len(ratios) == 0 {
		warn = &RatioInconsistencyWarning{Tolerance: tol}
		return
	}
	rate = ratios[0]
	for _, r := range ratios[1:] {
		if !equalWithin(r, rate, tol) {
			warn = &RatioInconsistencyWarning{
				Ratios:    append([]float64(nil), ratios...),
				Tolerance: tol,
				Used:      rate,
			}
			return
		}
	}
	return
}

// ExpectedRateOrder raises the refinement ratio to the discretisation order of
// the error measure. An exponent of 1 reproduces ExpectedRate.
func ExpectedRateOrder(ratios []float64, tol, exponent float64) (rate float64, warn *RatioInconsistencyWarning) {
	rate, warn = ExpectedRate(ratios, tol)
	if exponent != 0 && exponent != 1 {
		rate = math.Pow(rate, exponent)
		if warn != nil {
			warn.Used = rate
		}
	}
	return
}

// Densities converts element counts into elements per unit area.
func Densities(elements []float64, totalArea float64) (density []float64) {
	density = make([]float64, len(elements))
	for i, n := range elements {
		density[i] = n / totalArea
	}
	return
}

func equalWithin(a, b, tol float64) bool {
	if tol == 0 {
		return a == b
	}
	return scalar.EqualWithinAbsOrRel(a, b, tol, tol)
}
