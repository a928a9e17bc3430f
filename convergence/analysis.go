package convergence

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Ratios of a chosen Richardson triple closer than this are taken as equal.
const tripleRatioTol = 1.e-9

type ReferenceKind uint8

const (
	NoReference ReferenceKind = iota
	AnalyticalReference
	RichardsonReference
)

func (k ReferenceKind) String() string {
	switch k {
	case AnalyticalReference:
		return "analytical"
	case RichardsonReference:
		return "richardson"
	}
	return "none"
}

type Options struct {
	Exponent       float64 // expected rate = ratio^Exponent, 0 is treated as 1
	RatioTolerance float64
	RateTolerance  float64
	Analytical     *float64
	// RichardsonLevels names the fine, mid and coarse levels by label. When
	// nil, or when one of them is not in the series, GeometricTriple picks
	// them instead.
	RichardsonLevels *[3]string
}

func DefaultOptions() Options {
	return Options{
		Exponent:      1,
		RateTolerance: DefaultRateTolerance,
	}
}

// Analysis is everything derived from one LevelSeries.
type Analysis struct {
	Series        LevelSeries
	Ratios        []float64
	ExpectedRate  float64
	Warning       *RatioInconsistencyWarning
	Richardson    *float64
	Triple        [3]int
	Reference     float64
	ReferenceKind ReferenceKind
	Errors        []float64
	Report        Report
	FittedOrder   float64
	Notes         []string
}

// Degraded reports whether the verdict rests on inconsistent refinement or a
// fallback Richardson reference.
func (a *Analysis) Degraded() bool { return a.Warning != nil || len(a.Notes) != 0 }

// Analyze runs the refinement, extrapolation and convergence checks over a
// series. Errors are measured against the analytical value when one is given,
// otherwise against the Richardson estimate.
func Analyze(series LevelSeries, opts Options) (a *Analysis, err error) {
	if err = series.Validate(); err != nil {
		return
	}
	a = &Analysis{
		Series:      series.Normalize(),
		FittedOrder: math.NaN(),
	}
	ls := a.Series
	if ls.Len() < 2 {
		err = &InsufficientDataError{Op: "convergence analysis", Have: ls.Len(), Need: 2}
		return
	}
	measures := ls.Measures()
	if a.Ratios, err = Ratios(measures); err != nil {
		return
	}
	a.ExpectedRate, a.Warning = ExpectedRateOrder(a.Ratios, opts.RatioTolerance, opts.Exponent)
	if a.Warning != nil {
		a.Notes = append(a.Notes, a.Warning.Error())
	}

	if rerr := a.extrapolate(measures, opts); rerr != nil {
		if opts.Analytical == nil {
			err = rerr
			return
		}
		a.Notes = append(a.Notes, fmt.Sprintf("richardson extrapolation skipped: %v", rerr))
	}

	switch {
	case opts.Analytical != nil:
		a.Reference, a.ReferenceKind = *opts.Analytical, AnalyticalReference
	case a.Richardson != nil:
		a.Reference, a.ReferenceKind = *a.Richardson, RichardsonReference
	}
	a.Errors = RelativeErrors(ls.Values, a.Reference)
	if a.Report, err = Check(a.Errors, a.ExpectedRate, opts.RateTolerance); err != nil {
		return
	}
	a.FittedOrder = FitOrder(measures, a.Errors)
	return
}

// extrapolate picks the Richardson triple and evaluates it. Named levels that
// were skipped fall back to GeometricTriple, and a series with no geometric
// triple falls back to its three finest levels. Every fallback is noted.
func (a *Analysis) extrapolate(measures []float64, opts Options) (err error) {
	var (
		ls                = a.Series
		n                 = ls.Len()
		fine, mid, coarse = -1, -1, -1
	)
	if n < 3 {
		return &InsufficientDataError{Op: "richardson extrapolation", Have: n, Need: 3}
	}
	if opts.RichardsonLevels != nil {
		if fine, mid, coarse, err = ls.indicesOf(opts.RichardsonLevels[:]...); err != nil {
			a.Notes = append(a.Notes, fmt.Sprintf("richardson levels %v: %v, selecting levels automatically",
				*opts.RichardsonLevels, err))
			fine, err = -1, nil
		}
	}
	if fine < 0 {
		if fine, mid, coarse, err = GeometricTriple(measures, opts.RatioTolerance); err != nil {
			fine, mid, coarse, err = n-1, n-2, n-3, nil
		}
	}
	rFine, rCoarse := measures[fine]/measures[mid], measures[mid]/measures[coarse]
	if !equalWithin(rFine, rCoarse, math.Max(opts.RatioTolerance, tripleRatioTol)) {
		a.Notes = append(a.Notes, fmt.Sprintf("richardson levels %s, %s, %s are not at a constant refinement ratio (%.4g, %.4g)",
			ls.label(fine), ls.label(mid), ls.label(coarse), rFine, rCoarse))
	}
	fex, err := Extrapolate(ls.Values[fine], ls.Values[mid], ls.Values[coarse])
	if err != nil {
		return
	}
	a.Richardson = &fex
	a.Triple = [3]int{fine, mid, coarse}
	return
}

// FitOrder is the least-squares slope of -log(error) against log(measure).
// Levels with zero error are left out; NaN when fewer than two remain.
func FitOrder(measures, errs []float64) float64 {
	var x, y []float64
	for i, e := range errs {
		if e > 0 && i < len(measures) && measures[i] > 0 {
			x = append(x, math.Log(measures[i]))
			y = append(y, math.Log(e))
		}
	}
	if len(x) < 2 {
		return math.NaN()
	}
	_, beta := stat.LinearRegression(x, y, nil, false)
	return -beta
}

// IsDegenerate reports whether err came from a Richardson denominator near zero.
func IsDegenerate(err error) bool {
	var de *DegenerateExtrapolationError
	return errors.As(err, &de)
}
