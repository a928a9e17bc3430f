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
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/notargets/convstudy/InputParameters"
	"github.com/notargets/convstudy/convergence"
	"github.com/notargets/convstudy/report"
	"github.com/notargets/convstudy/results"
)

// AnalyzeCmd represents the analyze command
var AnalyzeCmd = &cobra.Command{
	Use:   "analyze [records...]",
	Short: "Check convergence of previously written run records",
	Long: `Aggregates run records written by earlier solver runs and checks convergence
without running the solver. With no records named, the study's level outputs are
read. Named records are put in refinement order using the study's level list.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
			sp  *InputParameters.StudyParameters
			env *studyEnv
		)
		if sp, err = studyFile(cmd); err != nil {
			exitOn(err)
		}
		if env, err = environment(); err != nil {
			exitOn(err)
		}
		if _, err = env.analyzeRecords(context.Background(), sp, args); err != nil {
			exitOn(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(AnalyzeCmd)
	AnalyzeCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML study file naming the levels and observable")
}

// analyzeRecords loads persisted records and runs the analysis over them. With
// no paths the study's level outputs are used and missing ones are reported as
// skipped levels.
func (env *studyEnv) analyzeRecords(ctx context.Context, sp *InputParameters.StudyParameters,
	paths []string) (a *convergence.Analysis, err error) {
	var (
		labels  []string
		skipped []report.Skipped
		cols    results.Columns
	)
	attempted := len(paths)
	switch {
	case len(paths) == 0 && len(sp.Levels) == 0:
		return nil, fmt.Errorf("study %s lists no levels and no records were named", sp.Title)
	case len(paths) == 0:
		levels := sp.RunLevels()
		attempted = len(levels)
		for _, lv := range levels {
			if _, serr := os.Stat(lv.Output); serr != nil {
				skipped = append(skipped, report.Skipped{Level: lv.Name, Reason: "no run record at " + lv.Output})
				continue
			}
			paths = append(paths, lv.Output)
			labels = append(labels, lv.Name)
		}
	default:
		if len(sp.Levels) != 0 {
			if paths, err = results.SortByLevel(paths, sp.LevelNames()); err != nil {
				return
			}
		}
		for _, p := range paths {
			labels = append(labels, results.LevelFromName(p))
		}
	}
	if len(paths) < 2 {
		return nil, &convergence.InsufficientDataError{Op: "convergence analysis", Have: len(paths), Need: 2}
	}
	if cols, err = results.Load(paths, sp.Observable); err != nil {
		return
	}
	return env.analyze(ctx, sp, uuid.NewString(), cols, labels, skipped, attempted)
}
