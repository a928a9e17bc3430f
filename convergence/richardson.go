package convergence

import (
	"fmt"
	"math"
)

const (
	DegenerateEpsilon = 1.e-12
)

// Extrapolate estimates the exact solution from three results at a constant
// refinement ratio,
//
//	f_ex = (f1*f3 - f2^2) / (f3 - 2*f2 + f1)
//
// where f1 is the finest level and f3 the coarsest. The ratio is not checked
// here; see GeometricTriple.
func Extrapolate(f1, f2, f3 float64) (fex float64, err error) {
	var (
		den   = f3 - 2*f2 + f1
		scale = math.Max(1, math.Max(math.Abs(f1), math.Max(math.Abs(f2), math.Abs(f3))))
	)
	if math.Abs(den) <= DegenerateEpsilon*scale {
		err = &DegenerateExtrapolationError{F1: f1, F2: f2, F3: f3, Denominator: den}
		return
	}
	fex = (f1*f3 - f2*f2) / den
	return
}

// GeometricTriple finds three levels whose measures step by the same ratio,
// measures[fine]/measures[mid] == measures[mid]/measures[coarse] within tol.
// measures must be ordered coarse to fine. The finest qualifying triple wins.
func GeometricTriple(measures []float64, tol float64) (fine, mid, coarse int, err error) {
	n := len(measures)
	if n < 3 {
		err = &InsufficientDataError{Op: "richardson extrapolation", Have: n, Need: 3}
		return
	}
	for fine = n - 1; fine >= 2; fine-- {
		for mid = fine - 1; mid >= 1; mid-- {
			rFine := measures[fine] / measures[mid]
			for coarse = mid - 1; coarse >= 0; coarse-- {
				rCoarse := measures[mid] / measures[coarse]
				if rFine > 1 && equalWithin(rFine, rCoarse, tol) {
					return
				}
			}
		}
	}
	fine, mid, coarse = 0, 0, 0
	err = fmt.Errorf("no three levels form a constant refinement ratio in %v: %w",
		measures, ErrInsufficientData)
	return
}
