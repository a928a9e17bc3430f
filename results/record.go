package results

import (
	"fmt"
	"math"
	"sort"

	"github.com/notargets/convstudy/convergence"
)

// RunResult is the output of one solver invocation on one refinement level.
type RunResult struct {
	Level         string
	TotalElements int
	Iterations    int
	Observables   map[string]float64
	TotalTime     float64 // wall clock seconds
	Instructions  uint64  // 0 when not measured
}

// NewRunResult builds a RunResult from the flat field mapping a solver returns.
// total_elements, iterations and total_time are required, as is every name in
// observables.
func NewRunResult(level string, fields map[string]float64, observables ...string) (r RunResult, err error) {
	for _, name := range append([]string{TotalElementsField, IterationsField, TotalTimeField}, observables...) {
		if v, ok := fields[name]; !ok || math.IsNaN(v) {
			err = &convergence.MissingFieldError{Field: name, Sources: 1}
			return
		}
	}
	var (
		n     = fields[TotalElementsField]
		iters = fields[IterationsField]
		tt    = fields[TotalTimeField]
	)
	switch {
	case n <= 0 || n != math.Trunc(n):
		err = fmt.Errorf("level %s: total_elements must be a positive integer, got %v", level, n)
	case iters < 0 || iters != math.Trunc(iters):
		err = fmt.Errorf("level %s: iterations must be a non-negative integer, got %v", level, iters)
	case tt <= 0:
		err = fmt.Errorf("level %s: total_time must be positive, got %v", level, tt)
	}
	if err != nil {
		return
	}
	r = RunResult{
		Level:         level,
		TotalElements: int(n),
		Iterations:    int(iters),
		TotalTime:     tt,
		Observables:   make(map[string]float64),
	}
	if v, ok := fields[InstructionsField]; ok {
		r.Instructions = uint64(v)
	}
	for k, v := range fields {
		switch k {
		case TotalElementsField, IterationsField, TotalTimeField, InstructionsField:
		default:
			r.Observables[k] = v
		}
	}
	return
}

// Record flattens r into the persisted mapping.
func (r RunResult) Record() (rec map[string]any) {
	rec = map[string]any{
		LevelField:         r.Level,
		TotalElementsField: r.TotalElements,
		IterationsField:    r.Iterations,
		TotalTimeField:     r.TotalTime,
	}
	if r.Instructions != 0 {
		rec[InstructionsField] = r.Instructions
	}
	for k, v := range r.Observables {
		rec[k] = v
	}
	return
}

// Records converts results to the mappings Aggregate consumes.
func Records(rs []RunResult) (recs []map[string]any) {
	recs = make([]map[string]any, len(rs))
	for i, r := range rs {
		recs[i] = r.Record()
	}
	return
}

// Skipped is a row left out of a series, with the reason.
type Skipped struct {
	Index  int
	Label  string
	Reason string
}

// Series extracts the primary observable into a LevelSeries. Rows missing the
// observable or the element count are dropped and returned in skipped. labels
// may be nil.
func (c Columns) Series(observable string, order convergence.Ordering, labels []string) (ls convergence.LevelSeries, skipped []Skipped, err error) {
	for _, name := range []string{observable, TotalElementsField} {
		if _, ok := c[name]; !ok {
			err = &convergence.MissingFieldError{Field: name, Sources: c.Len()}
			return
		}
	}
	ls = convergence.LevelSeries{Order: order, Observable: observable}
	get := func(name string, i int) float64 {
		if col, ok := c[name]; ok {
			return col[i]
		}
		return math.NaN()
	}
	for i := 0; i < c.Len(); i++ {
		label := fmt.Sprintf("%d", i)
		if i < len(labels) {
			label = labels[i]
		}
		var (
			v = get(observable, i)
			n = get(TotalElementsField, i)
		)
		switch {
		case math.IsNaN(v):
			skipped = append(skipped, Skipped{Index: i, Label: label, Reason: "no " + observable})
			continue
		case math.IsNaN(n):
			skipped = append(skipped, Skipped{Index: i, Label: label, Reason: "no " + TotalElementsField})
			continue
		}
		ls.Labels = append(ls.Labels, label)
		ls.Values = append(ls.Values, v)
		ls.Elements = append(ls.Elements, n)
		ls.Iterations = append(ls.Iterations, get(IterationsField, i))
		ls.TotalTime = append(ls.TotalTime, get(TotalTimeField, i))
	}
	return
}

// ObservableNames lists the observables present on r, sorted.
func (r RunResult) ObservableNames() (names []string) {
	for k := range r.Observables {
		names = append(names, k)
	}
	sort.Strings(names)
	return
}
