package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/notargets/convstudy/convergence"
)

var (
	csvFile  string
	ratioTol = 0.
	rateTol  = convergence.DefaultRateTolerance
)

// Reads a CSV of error norms from a refinement sweep:
//
//	title, npts, order, CFL, <error norm>, <error norm>, ...
//
// The header row names the error norm columns. Rows sharing title and order
// form one study, listed coarse to fine.
func main() {
	csvFilePtr := flag.String("csvFile", csvFile, "file containing entries of a convergence study")
	ratioTolPtr := flag.Float64("ratioTol", ratioTol, "tolerance on the refinement ratios being equal")
	rateTolPtr := flag.Float64("rateTol", rateTol, "absolute tolerance on observed vs expected rate")
	flag.Parse()
	csvFile, ratioTol, rateTol = *csvFilePtr, *ratioTolPtr, *rateTolPtr
	if len(csvFile) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	fmt.Printf("Input file: %v\n", csvFile)
	f, err := os.Open(csvFile)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	studies, norms, err := readCSV(bufio.NewReader(f))
	if err != nil {
		panic(err)
	}
	for _, cs := range sortedStudies(studies) {
		fmt.Printf("Title = %s, Order = %d, CFL = %5.2f\n", cs.title, cs.order, cs.CFL)
		for _, line := range cs.Summarize(norms, ratioTol, rateTol) {
			fmt.Println(line)
		}
	}
}

type ConvergenceStudy struct {
	title  string
	order  int
	CFL    float64
	numPTS []float64
	errors [][]float64 // one column per error norm
}

func NewConvergenceStudy(title string, order int, CFL float64, nNorms int) *ConvergenceStudy {
	return &ConvergenceStudy{
		title:  title,
		order:  order,
		CFL:    CFL,
		errors: make([][]float64, nNorms),
	}
}

func (cs *ConvergenceStudy) Add(numPTS int, errs []float64) {
	cs.numPTS = append(cs.numPTS, float64(numPTS))
	for i := range cs.errors {
		cs.errors[i] = append(cs.errors[i], errs[i])
	}
}

// Summarize checks each error norm against the rate expected for the study's
// order and reports one line per norm.
func (cs *ConvergenceStudy) Summarize(norms []string, ratioTol, rateTol float64) (lines []string) {
	ratios, err := convergence.Ratios(cs.numPTS)
	if err != nil {
		return []string{fmt.Sprintf("  %v", err)}
	}
	expected, warn := convergence.ExpectedRateOrder(ratios, ratioTol, float64(cs.order))
	if warn != nil {
		lines = append(lines, fmt.Sprintf("  warning: %v", warn))
	}
	for i, name := range norms {
		rep, err := convergence.Check(cs.errors[i], expected, rateTol)
		if err != nil {
			lines = append(lines, fmt.Sprintf("  %-8s: %v", name, err))
			continue
		}
		verdict := "FAIL"
		if rep.Pass {
			verdict = "PASS"
		}
		lines = append(lines, fmt.Sprintf("  %-8s: rates %8.4f, fitted order %6.3f, expected rate %g %s",
			name, rep.ObservedRates, convergence.FitOrder(cs.numPTS, cs.errors[i]), expected, verdict))
	}
	return
}

func readCSV(r io.Reader) (studies map[string]*ConvergenceStudy, norms []string, err error) {
	var (
		records [][]string
		cs      *ConvergenceStudy
		ok      bool
		cfl     float64
	)
	studies = make(map[string]*ConvergenceStudy)
	if records, err = csv.NewReader(r).ReadAll(); err != nil {
		return
	}
	if len(records) == 0 || len(records[0]) < 5 {
		err = fmt.Errorf("need a header of title, npts, order, CFL and at least one error norm")
		return
	}
	norms = records[0][4:]
	for i, rec := range records {
		if i == 0 {
			continue
		}
		title, nptstxt, ntxt, cfltxt := rec[0], rec[1], rec[2], rec[3]
		n, _ := strconv.Atoi(ntxt)
		npts, _ := strconv.Atoi(nptstxt)
		_, _ = fmt.Sscanf(cfltxt, "%f", &cfl)
		combTitle := title + ntxt
		if cs, ok = studies[combTitle]; !ok {
			cs = NewConvergenceStudy(title, n, cfl, len(norms))
			studies[combTitle] = cs
		}
		errs := make([]float64, len(norms))
		for j := range errs {
			if errs[j], err = strconv.ParseFloat(rec[4+j], 64); err != nil {
				err = fmt.Errorf("row %d, %s: %w", i+1, norms[j], err)
				return
			}
		}
		cs.Add(npts, errs)
	}
	return
}

func sortedStudies(studies map[string]*ConvergenceStudy) (list []*ConvergenceStudy) {
	keys := make([]string, 0, len(studies))
	for k := range studies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		list = append(list, studies[k])
	}
	return
}
