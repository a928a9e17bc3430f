package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/notargets/convstudy/convergence"
	"github.com/notargets/convstudy/results"
)

// Level is one refinement level of a study: the mesh/config reference handed
// to the solver and where its result record goes.
type Level struct {
	Name   string
	Config string
	Output string
}

// Solver runs the field solver on one level and returns its scalar fields.
// Returned errors are treated as a failure of that level only.
type Solver interface {
	Solve(ctx context.Context, lv Level) (map[string]float64, error)
}

// FuncSolver adapts an in-process function to Solver.
type FuncSolver func(ctx context.Context, lv Level) (map[string]float64, error)

func (f FuncSolver) Solve(ctx context.Context, lv Level) (map[string]float64, error) {
	return f(ctx, lv)
}

// CommandSolver runs the solver as a subprocess. Args may reference {config},
// {output} and {level}; the process is expected to write a run record to the
// level's Output path.
type CommandSolver struct {
	Command string
	Args    []string
	Dir     string
	// ResourceExitCodes mark exit statuses that mean the solver ran out of
	// memory or device resources.
	ResourceExitCodes []int
}

func (cs *CommandSolver) Solve(ctx context.Context, lv Level) (fields map[string]float64, err error) {
	var (
		stderr bytes.Buffer
		args   = make([]string, len(cs.Args))
		rpl    = strings.NewReplacer("{config}", lv.Config, "{output}", lv.Output, "{level}", lv.Name)
	)
	for i, a := range cs.Args {
		args[i] = rpl.Replace(a)
	}
	cmd := exec.CommandContext(ctx, cs.Command, args...)
	cmd.Dir = cs.Dir
	cmd.Stderr = &stderr
	if err = cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			err = &convergence.SolverInvocationFailure{Level: lv.Name, Kind: convergence.LaunchFailure, Err: err}
			return
		}
		kind := convergence.LaunchFailure
		for _, code := range cs.ResourceExitCodes {
			if exitErr.ExitCode() == code {
				kind = convergence.ResourceExhausted
			}
		}
		if msg := strings.TrimSpace(stderr.String()); len(msg) != 0 {
			err = fmt.Errorf("%w: %s", err, lastLine(msg))
		}
		err = &convergence.SolverInvocationFailure{Level: lv.Name, Kind: kind, Err: err}
		return
	}
	rec, rerr := results.ReadRecord(lv.Output)
	if rerr != nil {
		err = &convergence.SolverInvocationFailure{Level: lv.Name, Kind: convergence.BadOutput, Err: rerr}
		return
	}
	fields = make(map[string]float64, len(rec))
	for k, v := range rec {
		if f, ok := v.(float64); ok {
			fields[k] = f
		}
	}
	return
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
