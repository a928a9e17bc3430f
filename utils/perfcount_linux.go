//go:build linux

package utils

import (
	"runtime"

	"github.com/hodgesds/perf-utils"
)

// InstructionMeter counts retired CPU instructions on the calling thread
// while an in-process solver runs. Work done in child processes is not
// counted.
type InstructionMeter struct{}

func (InstructionMeter) Measure(f func() error) (count uint64, ran bool, err error) {
	var ferr error
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	pv, perr := perf.CPUInstructions(func() error {
		ran = true
		ferr = f()
		return ferr
	})
	switch {
	case !ran:
		err = perr
	case ferr != nil:
		err = ferr
	case perr == nil && pv != nil:
		count = pv.Value
	}
	return
}
