package convergence

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInsufficientData        = errors.New("insufficient data")
	ErrMissingField            = errors.New("missing field")
	ErrDegenerateExtrapolation = errors.New("degenerate extrapolation")
	ErrSolverInvocation        = errors.New("solver invocation failed")
)

// InsufficientDataError reports that fewer levels were provided (or survived)
// than the requested analysis needs.
type InsufficientDataError struct {
	Op   string
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: have %d levels, need at least %d", e.Op, e.Have, e.Need)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// MissingFieldError reports a required scalar field absent from every record.
type MissingFieldError struct {
	Field   string
	Sources int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field %q not found in any of %d records", e.Field, e.Sources)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

type DegenerateExtrapolationError struct {
	F1, F2, F3  float64
	Denominator float64
}

func (e *DegenerateExtrapolationError) Error() string {
	return fmt.Sprintf("richardson denominator %g too close to zero for f1=%g f2=%g f3=%g",
		e.Denominator, e.F1, e.F2, e.F3)
}

func (e *DegenerateExtrapolationError) Unwrap() error { return ErrDegenerateExtrapolation }

// RatioInconsistencyWarning is non-fatal. It is returned as a value next to the
// best-effort expected rate so callers can mark the analysis as degraded.
type RatioInconsistencyWarning struct {
	Ratios    []float64
	Tolerance float64
	Used      float64
}

func (w *RatioInconsistencyWarning) Error() string {
	parts := make([]string, len(w.Ratios))
	for i, r := range w.Ratios {
		parts[i] = fmt.Sprintf("%.6g", r)
	}
	return fmt.Sprintf("mesh ratio inconsistency: ratios [%s] differ by more than %g, using %.6g as expected rate",
		strings.Join(parts, " "), w.Tolerance, w.Used)
}

type FailureKind uint8

const (
	LaunchFailure FailureKind = iota
	ResourceExhausted
	BadOutput
)

func (k FailureKind) String() string {
	switch k {
	case LaunchFailure:
		return "launch"
	case ResourceExhausted:
		return "resource"
	case BadOutput:
		return "output"
	}
	return "unknown"
}

// SolverInvocationFailure wraps the failure of a single refinement level.
type SolverInvocationFailure struct {
	Level string
	Kind  FailureKind
	Err   error
}

func (e *SolverInvocationFailure) Error() string {
	return fmt.Sprintf("level %s: %s failure: %v", e.Level, e.Kind, e.Err)
}

func (e *SolverInvocationFailure) Unwrap() []error { return []error{ErrSolverInvocation, e.Err} }
