package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/notargets/convstudy/convergence"
	"github.com/notargets/convstudy/results"
)

const (
	DefaultCooldown = 4 * time.Second
)

type State uint8

const (
	Pending State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Running:
		return "RUNNING"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Meter counts work done while f runs. ran is false when the meter could not
// start and f was never called.
type Meter interface {
	Measure(f func() error) (count uint64, ran bool, err error)
}

// Outcome is the record of one level's attempt.
type Outcome struct {
	Level   Level
	State   State
	Result  *results.RunResult
	Err     error
	Elapsed time.Duration
}

// Study is the aggregate of a sequential run over all levels.
type Study struct {
	Outcomes []Outcome
}

// Results returns the succeeded levels' results in level order.
func (s *Study) Results() (rs []results.RunResult) {
	for _, o := range s.Outcomes {
		if o.State == Succeeded {
			rs = append(rs, *o.Result)
		}
	}
	return
}

// Failed returns the outcomes of levels that did not produce a result.
func (s *Study) Failed() (fs []Outcome) {
	for _, o := range s.Outcomes {
		if o.State == Failed {
			fs = append(fs, o)
		}
	}
	return
}

type Orchestrator struct {
	solver      Solver
	observables []string
	cooldown    time.Duration
	log         *zap.Logger
	meter       Meter
	sleep       func(ctx context.Context, d time.Duration) error
}

type Option func(*Orchestrator)

func WithCooldown(d time.Duration) Option { return func(o *Orchestrator) { o.cooldown = d } }

func WithLogger(l *zap.Logger) Option { return func(o *Orchestrator) { o.log = l } }

func WithMeter(m Meter) Option { return func(o *Orchestrator) { o.meter = m } }

// WithObservables names the fields a level must return to count as succeeded.
func WithObservables(names ...string) Option {
	return func(o *Orchestrator) { o.observables = append(o.observables, names...) }
}

func New(s Solver, opts ...Option) (o *Orchestrator) {
	o = &Orchestrator{
		solver:   s,
		cooldown: DefaultCooldown,
		log:      zap.NewNop(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return
}

// Run solves every level in order, one at a time. A failed level is logged,
// followed by the cooldown, and skipped; it is never retried. With fewer than
// two successful levels the Study is returned along with an
// InsufficientDataError so the attempts can still be reported.
func (o *Orchestrator) Run(ctx context.Context, levels []Level) (study *Study, err error) {
	study = &Study{Outcomes: make([]Outcome, len(levels))}
	for i, lv := range levels {
		study.Outcomes[i] = Outcome{Level: lv, State: Pending}
	}
	for i := range study.Outcomes {
		if err = ctx.Err(); err != nil {
			return
		}
		oc := &study.Outcomes[i]
		oc.State = Running
		o.log.Info("start run", zap.String("level", oc.Level.Name), zap.String("config", oc.Level.Config))
		start := time.Now()
		res, serr := o.solveLevel(ctx, oc.Level)
		oc.Elapsed = time.Since(start)
		if serr == nil {
			oc.State, oc.Result = Succeeded, &res
			o.log.Info("level succeeded", zap.String("level", oc.Level.Name),
				zap.Int("total_elements", res.TotalElements), zap.Int("iterations", res.Iterations),
				zap.Duration("elapsed", oc.Elapsed))
			continue
		}
		oc.State, oc.Err = Failed, serr
		if err = ctx.Err(); err != nil {
			return
		}
		o.log.Warn("level failed, skipping; convergence study continues",
			zap.String("level", oc.Level.Name), zap.Error(serr), zap.Duration("cooldown", o.cooldown))
		if err = o.sleep(ctx, o.cooldown); err != nil {
			return
		}
	}
	if n := len(study.Results()); n < 2 {
		err = &convergence.InsufficientDataError{Op: "convergence study", Have: n, Need: 2}
	}
	return
}

func (o *Orchestrator) solveLevel(ctx context.Context, lv Level) (res results.RunResult, err error) {
	var (
		fields map[string]float64
		count  uint64
	)
	solve := func() (serr error) {
		fields, serr = o.solver.Solve(ctx, lv)
		return
	}
	if o.meter != nil {
		var ran bool
		count, ran, err = o.meter.Measure(solve)
		if !ran {
			o.log.Debug("meter unavailable", zap.Error(err))
			count, err = 0, solve()
		}
	} else {
		err = solve()
	}
	if err != nil {
		var sif *convergence.SolverInvocationFailure
		if !errors.As(err, &sif) {
			err = &convergence.SolverInvocationFailure{Level: lv.Name, Kind: convergence.LaunchFailure, Err: err}
		}
		return
	}
	if count != 0 && fields != nil {
		fields[results.InstructionsField] = float64(count)
	}
	if res, err = results.NewRunResult(lv.Name, fields, o.observables...); err != nil {
		err = &convergence.SolverInvocationFailure{Level: lv.Name, Kind: convergence.BadOutput, Err: err}
	}
	return
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
