package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/notargets/convstudy/convergence"
)

const (
	ruleWidth = 60
)

// Skipped is a level that was attempted but is not part of the analysis.
type Skipped struct {
	Level  string
	Reason string
}

// Context is the study metadata printed around a convergence verdict.
type Context struct {
	TestName    string
	StudyID     string
	Timestamp   time.Time
	Observable  string
	Levels      []string
	Elements    []float64
	Density     []float64
	Iterations  []float64
	Values      []float64
	Analytical  *float64
	Richardson  *float64
	Errors      []float64
	TotalTime   []float64
	FittedOrder float64
	Skipped     []Skipped
	Warnings    []string
}

// FromAnalysis fills the per-level series of a Context from an Analysis.
func FromAnalysis(testName, studyID string, a *convergence.Analysis) (ctx Context) {
	ls := a.Series
	ctx = Context{
		TestName:    testName,
		StudyID:     studyID,
		Observable:  ls.Observable,
		Levels:      ls.Labels,
		Elements:    ls.Elements,
		Density:     ls.Density,
		Iterations:  ls.Iterations,
		Values:      ls.Values,
		Richardson:  a.Richardson,
		Errors:      a.Errors,
		TotalTime:   ls.TotalTime,
		FittedOrder: a.FittedOrder,
		Warnings:    append([]string(nil), a.Notes...),
	}
	if a.ReferenceKind == convergence.AnalyticalReference {
		ref := a.Reference
		ctx.Analytical = &ref
	}
	return
}

// Degraded is true when the verdict rests on incomplete data or inconsistent
// refinement.
func (c Context) Degraded() bool {
	return len(c.Skipped) != 0 || len(c.Warnings) != 0
}

// Writer appends study reports to a log file. Prior contents are never
// truncated or rewritten.
type Writer struct {
	Path string
}

func NewWriter(path string) *Writer {
	return &Writer{Path: path}
}

func (w *Writer) Write(rep convergence.Report, ctx Context) error {
	var buf bytes.Buffer
	Format(&buf, rep, ctx)
	return w.append(buf.Bytes())
}

// WriteAborted logs a study that ended before a verdict could be reached.
func (w *Writer) WriteAborted(ctx Context, cause error) error {
	var buf bytes.Buffer
	FormatAborted(&buf, ctx, cause)
	return w.append(buf.Bytes())
}

func (w *Writer) append(data []byte) (err error) {
	var f *os.File
	if f, err = os.OpenFile(w.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err != nil {
		return
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err = f.Write(data); err != nil {
		return
	}
	return f.Sync()
}

// Format renders one delimited report section.
func Format(w io.Writer, rep convergence.Report, ctx Context) {
	header(w, ctx)
	for _, pd := range rep.Flagged {
		fmt.Fprintln(w, pd.String())
	}
	switch {
	case rep.Pass && ctx.Degraded():
		fmt.Fprintln(w, "Passed convergence test (degraded, see warnings)")
	case rep.Pass:
		fmt.Fprintln(w, "Passed convergence test!")
	default:
		fmt.Fprintf(w, "Failed convergence test: %d of %d pairs outside tolerance %g\n",
			len(rep.Flagged), len(rep.Pairs), rep.Tolerance)
	}
	annotations(w, ctx)
	fmt.Fprintln(w)
	if len(ctx.Levels) != 0 {
		fmt.Fprintf(w, "Levels             : %v\n", ctx.Levels)
	}
	fmt.Fprintf(w, "Number of elements : %v\n", ints(ctx.Elements))
	if len(ctx.Density) != 0 {
		fmt.Fprintf(w, "Average density    : %v\n", ctx.Density)
	}
	fmt.Fprintf(w, "Number of iteration: %v\n", ints(ctx.Iterations))
	fmt.Fprintf(w, "%-19s: %v\n", ctx.Observable, ctx.Values)
	if ctx.Analytical != nil {
		fmt.Fprintf(w, "Analytical solution: %v\n", *ctx.Analytical)
	}
	if ctx.Richardson != nil {
		fmt.Fprintf(w, "Richardson extrapolation solution: %v\n", *ctx.Richardson)
	}
	fmt.Fprintf(w, "Expected rate      : %v\n", rep.ExpectedRate)
	fmt.Fprintf(w, "Observed rates     : %v\n", rep.ObservedRates)
	if !math.IsNaN(ctx.FittedOrder) && ctx.FittedOrder != 0 {
		fmt.Fprintf(w, "Fitted order       : %.4f\n", ctx.FittedOrder)
	}
	fmt.Fprintf(w, "Error              : %v\n", ctx.Errors)
	fmt.Fprintf(w, "Total time         : %v\n", ctx.TotalTime)
}

// FormatAborted renders the section for a study with no verdict: what was
// attempted and why it stopped.
func FormatAborted(w io.Writer, ctx Context, cause error) {
	header(w, ctx)
	fmt.Fprintf(w, "Aborted convergence test: %v\n", cause)
	annotations(w, ctx)
	if len(ctx.Levels) != 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Levels             : %v\n", ctx.Levels)
		fmt.Fprintf(w, "Number of elements : %v\n", ints(ctx.Elements))
		fmt.Fprintf(w, "%-19s: %v\n", ctx.Observable, ctx.Values)
	}
}

func header(w io.Writer, ctx Context) {
	ts := ctx.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	rule := strings.Repeat("-", ruleWidth)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, center(" Running: "+ctx.TestName+" ", ruleWidth, '-'))
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, ts.Format("2006-01-02 15:04:05.000000"))
	if ctx.StudyID != "" {
		fmt.Fprintf(w, "Study id           : %s\n", ctx.StudyID)
	}
}

func annotations(w io.Writer, ctx Context) {
	for _, s := range ctx.Skipped {
		fmt.Fprintf(w, "Skipped level %s: %s\n", s.Level, s.Reason)
	}
	for _, warn := range ctx.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn)
	}
}

func center(s string, width int, pad byte) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return strings.Repeat(string(pad), left) + s + strings.Repeat(string(pad), width-len(s)-left)
}

func ints(v []float64) (out []int) {
	out = make([]int, len(v))
	for i, f := range v {
		if !math.IsNaN(f) {
			out[i] = int(f)
		}
	}
	return
}
