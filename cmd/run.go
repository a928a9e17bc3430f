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
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/notargets/convstudy/InputParameters"
)

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Solve every refinement level of a study, then check convergence",
	Long: `Runs the solver once per level, in the order the study file lists them.
A level that fails is logged and skipped, followed by a cooldown before the next
level starts. The surviving levels are analysed and a report section is appended
to the report log.`,
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
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if viper.GetBool("verbose") {
			sp.Print()
		}
		if _, err = env.runStudy(ctx, sp); err != nil {
			env.log.Error("convergence study", zap.Error(err))
			exitOn(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(RunCmd)
	RunCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML study file naming the solver, levels and observable")
}

func studyFile(cmd *cobra.Command) (sp *InputParameters.StudyParameters, err error) {
	var path string
	if path, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
		return
	}
	if len(path) == 0 {
		exampleFile := `
########################################
Title: lspr_silver_sphere
Observable: Cext_0
Solver:
  Command: pygbe-lspr
  Args: ["-p", "sphere.param", "-c", "{config}", "-o", "{output}"]
  ResourceExitCodes: [2]
Levels:
  - {Name: "500", Config: sphere_500.config}
  - {Name: "2K", Config: sphere_2K.config}
  - {Name: "8K", Config: sphere_8K.config}
  - {Name: "32K", Config: sphere_32K.config}
OutputDir: output
TotalArea: 314.159
RateExponent: 1
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		return nil, fmt.Errorf("must supply a study file (-I, --inputConditionsFile)")
	}
	return InputParameters.ReadFile(path)
}

func exitOn(err error) {
	fmt.Printf("error: %s\n", err.Error())
	_ = logger.Sync()
	os.Exit(1)
}
