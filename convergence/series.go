package convergence

import (
	"fmt"
	"slices"
)

type Ordering uint8

const (
	CoarseToFine Ordering = iota
	FineToCoarse
)

func (o Ordering) String() string {
	if o == FineToCoarse {
		return "fine-to-coarse"
	}
	return "coarse-to-fine"
}

func NewOrdering(label string) (o Ordering, err error) {
	switch label {
	case "", "coarse-to-fine", "CoarseToFine":
		o = CoarseToFine
	case "fine-to-coarse", "FineToCoarse":
		o = FineToCoarse
	default:
		err = fmt.Errorf("unknown level ordering %q", label)
	}
	return
}

// LevelSeries holds one primary observable per refinement level. The order of
// the levels is declared by Order and never inferred from the data.
type LevelSeries struct {
	Order      Ordering
	Observable string
	Labels     []string
	Elements   []float64
	Density    []float64 // optional, elements per unit area
	Iterations []float64
	Values     []float64
	TotalTime  []float64
}

func (ls LevelSeries) Len() int { return len(ls.Values) }

func (ls LevelSeries) Validate() (err error) {
	n := len(ls.Values)
	check := func(name string, l int, optional bool) {
		if err != nil || (optional && l == 0) {
			return
		}
		if l != n {
			err = fmt.Errorf("level series %s has %d entries, %s has %d", ls.Observable, n, name, l)
		}
	}
	check("labels", len(ls.Labels), true)
	check("elements", len(ls.Elements), false)
	check("density", len(ls.Density), true)
	check("iterations", len(ls.Iterations), true)
	check("total time", len(ls.TotalTime), true)
	return
}

// Normalize returns the series ordered coarse to fine. The receiver is not
// modified.
func (ls LevelSeries) Normalize() (out LevelSeries) {
	out = LevelSeries{
		Order:      CoarseToFine,
		Observable: ls.Observable,
		Labels:     slices.Clone(ls.Labels),
		Elements:   slices.Clone(ls.Elements),
		Density:    slices.Clone(ls.Density),
		Iterations: slices.Clone(ls.Iterations),
		Values:     slices.Clone(ls.Values),
		TotalTime:  slices.Clone(ls.TotalTime),
	}
	if ls.Order == FineToCoarse {
		slices.Reverse(out.Labels)
		slices.Reverse(out.Elements)
		slices.Reverse(out.Density)
		slices.Reverse(out.Iterations)
		slices.Reverse(out.Values)
		slices.Reverse(out.TotalTime)
	}
	return
}

// Measures returns the problem-size measure used for refinement ratios:
// density when it is present, element count otherwise.
func (ls LevelSeries) Measures() []float64 {
	if len(ls.Density) == len(ls.Values) && len(ls.Density) > 0 {
		return ls.Density
	}
	return ls.Elements
}

// indicesOf returns the positions of the labelled levels, in argument order.
func (ls LevelSeries) indicesOf(labels ...string) (fine, mid, coarse int, err error) {
	idx := make([]int, 3)
	for k, l := range labels[:3] {
		if idx[k] = slices.Index(ls.Labels, l); idx[k] < 0 {
			err = fmt.Errorf("level %q is not in the series", l)
			return
		}
	}
	return idx[0], idx[1], idx[2], nil
}

func (ls LevelSeries) label(i int) string {
	if i < len(ls.Labels) && len(ls.Labels[i]) != 0 {
		return ls.Labels[i]
	}
	return fmt.Sprintf("%d", i)
}
