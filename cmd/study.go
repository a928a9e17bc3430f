/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notargets/convstudy/InputParameters"
	"github.com/notargets/convstudy/convergence"
	"github.com/notargets/convstudy/history"
	"github.com/notargets/convstudy/model_problems/Poisson1D"
	"github.com/notargets/convstudy/orchestrator"
	"github.com/notargets/convstudy/report"
	"github.com/notargets/convstudy/results"
	"github.com/notargets/convstudy/utils"
)

const (
	BuiltinPoisson = "builtin:poisson1d"
)

type studyEnv struct {
	log         *zap.Logger
	reportPath  string
	historyPath string // empty disables the history database
	out         io.Writer
}

// newSolver picks the in-process Poisson fixture or a subprocess solver. For
// the fixture a level's Config is its element count.
func newSolver(sp *InputParameters.StudyParameters) (s orchestrator.Solver, err error) {
	switch cmd := sp.Solver.Command; {
	case cmd == BuiltinPoisson:
		s = orchestrator.FuncSolver(func(ctx context.Context, lv orchestrator.Level) (map[string]float64, error) {
			K, err := strconv.Atoi(strings.TrimSpace(lv.Config))
			if err != nil {
				return nil, fmt.Errorf("element count %q: %w", lv.Config, err)
			}
			p, err := Poisson1D.NewPoisson(K)
			if err != nil {
				return nil, err
			}
			return p.Solve(ctx)
		})
	case len(cmd) == 0:
		err = fmt.Errorf("study %s has no Solver.Command", sp.Title)
	default:
		s = &orchestrator.CommandSolver{
			Command:           cmd,
			Args:              sp.Solver.Args,
			Dir:               sp.Solver.Dir,
			ResourceExitCodes: sp.Solver.ResourceExitCodes,
		}
	}
	return
}

// runStudy solves every level of the study, persists the records and analyses
// the surviving levels. A report section is appended whether or not the study
// reaches a verdict.
func (env *studyEnv) runStudy(ctx context.Context, sp *InputParameters.StudyParameters) (a *convergence.Analysis, err error) {
	var (
		solver  orchestrator.Solver
		cd      time.Duration
		studyID = uuid.NewString()
		log     = env.log.With(zap.String("study", sp.Title), zap.String("id", studyID))
	)
	if solver, err = newSolver(sp); err != nil {
		return
	}
	if cd, err = sp.CooldownDuration(); err != nil {
		return
	}
	opts := []orchestrator.Option{
		orchestrator.WithObservables(sp.Observable),
		orchestrator.WithCooldown(cd),
		orchestrator.WithLogger(log),
	}
	if sp.Solver.CountInstructions {
		opts = append(opts, orchestrator.WithMeter(utils.InstructionMeter{}))
	}
	study, runErr := orchestrator.New(solver, opts...).Run(ctx, sp.RunLevels())
	log.Debug("levels finished", zap.String("memory", utils.GetMemUsage()))

	var (
		skipped []report.Skipped
		labels  []string
	)
	_, external := solver.(*orchestrator.CommandSolver)
	for _, oc := range study.Outcomes {
		switch oc.State {
		case orchestrator.Succeeded:
			labels = append(labels, oc.Level.Name)
			if !external {
				if err = results.Save(oc.Level.Output, *oc.Result); err != nil {
					return
				}
			}
		case orchestrator.Failed:
			skipped = append(skipped, report.Skipped{Level: oc.Level.Name, Reason: oc.Err.Error()})
		default:
			skipped = append(skipped, report.Skipped{Level: oc.Level.Name, Reason: "not run, " + oc.State.String()})
		}
	}
	cols, aggErr := results.Aggregate(results.Records(study.Results()), sp.Observable)
	if runErr != nil || aggErr != nil {
		if runErr == nil {
			runErr = aggErr
		}
		rctx := report.Context{
			TestName:   sp.Title,
			StudyID:    studyID,
			Timestamp:  time.Now(),
			Observable: sp.Observable,
			Skipped:    skipped,
		}
		if aggErr == nil {
			rctx.Levels = labels
			rctx.Elements = cols[results.TotalElementsField]
			rctx.Values = cols[sp.Observable]
		}
		if werr := report.NewWriter(env.reportPath).WriteAborted(rctx, runErr); werr != nil {
			log.Error("report log", zap.Error(werr))
		}
		env.remember(ctx, history.Entry{
			ID:            studyID,
			TestName:      sp.Title,
			CreatedAt:     rctx.Timestamp,
			Observable:    sp.Observable,
			Attempted:     len(study.Outcomes),
			Succeeded:     len(labels),
			Reference:     math.NaN(),
			ReferenceKind: convergence.NoReference.String(),
		})
		return nil, runErr
	}
	return env.analyze(ctx, sp, studyID, cols, labels, skipped, len(study.Outcomes))
}

// analyze runs the convergence analysis over aggregated columns, appends the
// report and records the study in the history database.
func (env *studyEnv) analyze(ctx context.Context, sp *InputParameters.StudyParameters, studyID string,
	cols results.Columns, labels []string, skipped []report.Skipped, attempted int) (a *convergence.Analysis, err error) {
	var (
		ls   convergence.LevelSeries
		rows []results.Skipped
		now  = time.Now()
	)
	abort := func(cause error) {
		rctx := report.Context{
			TestName:   sp.Title,
			StudyID:    studyID,
			Timestamp:  now,
			Observable: sp.Observable,
			Levels:     labels,
			Elements:   cols[results.TotalElementsField],
			Values:     cols[sp.Observable],
			Skipped:    skipped,
		}
		if werr := report.NewWriter(env.reportPath).WriteAborted(rctx, cause); werr != nil {
			env.log.Error("report log", zap.Error(werr))
		}
		env.remember(ctx, history.Entry{
			ID:            studyID,
			TestName:      sp.Title,
			CreatedAt:     now,
			Observable:    sp.Observable,
			Attempted:     attempted,
			Succeeded:     len(labels),
			Reference:     math.NaN(),
			ReferenceKind: convergence.NoReference.String(),
		})
	}
	if ls, rows, err = cols.Series(sp.Observable, sp.Ordering(), labels); err != nil {
		abort(err)
		return
	}
	for _, r := range rows {
		skipped = append(skipped, report.Skipped{Level: r.Label, Reason: r.Reason})
	}
	if sp.TotalArea > 0 {
		ls.Density = convergence.Densities(ls.Elements, sp.TotalArea)
	}
	if a, err = convergence.Analyze(ls, sp.Options()); err != nil {
		abort(err)
		return nil, err
	}
	rctx := report.FromAnalysis(sp.Title, studyID, a)
	rctx.Timestamp = now
	rctx.Skipped = skipped
	if err = report.NewWriter(env.reportPath).Write(a.Report, rctx); err != nil {
		return
	}
	report.Format(env.out, a.Report, rctx)
	env.log.Info("convergence study complete", zap.String("study", sp.Title), zap.String("id", studyID),
		zap.Bool("pass", a.Report.Pass), zap.Float64("expected_rate", a.ExpectedRate),
		zap.Float64s("observed_rates", a.Report.ObservedRates))

	ref := math.NaN()
	if a.ReferenceKind != convergence.NoReference {
		ref = a.Reference
	}
	env.remember(ctx, history.Entry{
		ID:            studyID,
		TestName:      sp.Title,
		CreatedAt:     now,
		Observable:    sp.Observable,
		Attempted:     attempted,
		Succeeded:     ls.Len(),
		ExpectedRate:  a.ExpectedRate,
		Pass:          a.Report.Pass,
		Degraded:      rctx.Degraded(),
		Reference:     ref,
		ReferenceKind: a.ReferenceKind.String(),
	})
	return
}

// remember appends e to the history database. The database is a convenience;
// failures are logged and do not fail the study.
func (env *studyEnv) remember(ctx context.Context, e history.Entry) {
	if len(env.historyPath) == 0 {
		return
	}
	h, err := history.Open(env.historyPath)
	if err != nil {
		env.log.Warn("history unavailable", zap.String("path", env.historyPath), zap.Error(err))
		return
	}
	defer h.Close()
	if err = h.Record(ctx, e); err != nil {
		env.log.Warn("history record", zap.Error(err))
	}
}
