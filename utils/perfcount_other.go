//go:build !linux

package utils

import "errors"

type InstructionMeter struct{}

func (InstructionMeter) Measure(f func() error) (count uint64, ran bool, err error) {
	return 0, false, errors.New("instruction counting requires linux perf events")
}
