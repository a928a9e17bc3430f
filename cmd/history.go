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

	"github.com/spf13/cobra"

	"github.com/notargets/convstudy/history"
)

// HistoryCmd represents the history command
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List past convergence studies, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		env, err := environment()
		if err != nil {
			exitOn(err)
		}
		if len(env.historyPath) == 0 {
			exitOn(fmt.Errorf("history is disabled, set --historyFile"))
		}
		n, _ := cmd.Flags().GetInt("number")
		if err = listHistory(context.Background(), env.out, env.historyPath, n); err != nil {
			exitOn(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(HistoryCmd)
	HistoryCmd.Flags().IntP("number", "n", 20, "number of studies to list, 0 for all")
}

func listHistory(ctx context.Context, w io.Writer, path string, n int) (err error) {
	var (
		h       *history.Store
		entries []history.Entry
	)
	if h, err = history.Open(path); err != nil {
		return
	}
	defer h.Close()
	if entries, err = h.List(ctx, n); err != nil {
		return
	}
	for _, e := range entries {
		verdict := "FAIL"
		switch {
		case e.Pass && e.Degraded:
			verdict = "PASS*"
		case e.Pass:
			verdict = "PASS"
		case e.Succeeded < 2:
			verdict = "ABORT"
		}
		ref := "-"
		if !math.IsNaN(e.Reference) {
			ref = fmt.Sprintf("%g (%s)", e.Reference, e.ReferenceKind)
		}
		fmt.Fprintf(w, "%s  %-5s  %-24s %-12s levels %d/%d  rate %-8.4g ref %s  [%s]\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), verdict, e.TestName, e.Observable,
			e.Succeeded, e.Attempted, e.ExpectedRate, ref, e.ID)
	}
	return
}
