package convergence

import (
	"fmt"
	"math"
)

const (
	// DefaultRateTolerance is an absolute bound on |observed - expected| rate.
	// Loose enough to absorb discretisation and round-off noise, tight enough to
	// catch an order-of-magnitude convergence failure.
	DefaultRateTolerance = 0.4
)

// PairDiagnostic describes the error reduction between level I and level I+1.
type PairDiagnostic struct {
	I, J      int
	Rate      float64
	Deviation float64
	Perfect   bool // the finer level reproduced the reference exactly
	Flagged   bool
}

func (p PairDiagnostic) String() string {
	switch {
	case p.Perfect:
		return fmt.Sprintf("mesh %d to %d: exact agreement", p.I, p.J)
	case p.Flagged:
		return fmt.Sprintf("Bad convergence for mesh %d to %d, with rate %v", p.I, p.J, p.Rate)
	}
	return fmt.Sprintf("mesh %d to %d: rate %v", p.I, p.J, p.Rate)
}

// Report is the verdict of one convergence check. It is not modified after
// Check returns it.
type Report struct {
	ExpectedRate  float64
	Tolerance     float64
	ObservedRates []float64
	Pairs         []PairDiagnostic
	Flagged       []PairDiagnostic
	Pass          bool
}

// Check compares the observed error reduction between consecutive levels
// against the expected rate. errors must be ordered coarse to fine.
func Check(errors []float64, expected, tol float64) (rep Report, err error) {
	if len(errors) < 2 {
		err = &InsufficientDataError{Op: "convergence check", Have: len(errors), Need: 2}
		return
	}
	for i, e := range errors {
		if e < 0 || math.IsNaN(e) {
			err = fmt.Errorf("error at level %d is %v, must be a non-negative number", i, e)
			return
		}
	}
	rep = Report{
		ExpectedRate:  expected,
		Tolerance:     tol,
		ObservedRates: make([]float64, len(errors)-1),
		Pairs:         make([]PairDiagnostic, len(errors)-1),
	}
	for i := 0; i < len(errors)-1; i++ {
		var (
			eC, eF = errors[i], errors[i+1]
			pd     = PairDiagnostic{I: i, J: i + 1}
		)
		switch {
		case eF == 0:
			// 0/0 is left as NaN, x/0 as +Inf; both count as exact agreement
			pd.Perfect = true
			if eC == 0 {
				pd.Rate = math.NaN()
			} else {
				pd.Rate = math.Inf(1)
			}
		default:
			pd.Rate = eC / eF
			pd.Deviation = math.Abs(pd.Rate - expected)
			pd.Flagged = pd.Deviation > tol
		}
		rep.ObservedRates[i] = pd.Rate
		rep.Pairs[i] = pd
		if pd.Flagged {
			rep.Flagged = append(rep.Flagged, pd)
		}
	}
	rep.Pass = len(rep.Flagged) == 0
	return
}

// RelativeErrors returns |v - ref| / |ref| per level. A zero reference falls
// back to the absolute error.
func RelativeErrors(values []float64, ref float64) (errs []float64) {
	errs = make([]float64, len(values))
	scale := math.Abs(ref)
	if scale == 0 {
		scale = 1
	}
	for i, v := range values {
		errs[i] = math.Abs(v-ref) / scale
	}
	return
}
