package results

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/convstudy/convergence"
)

func lysozymeRuns() []RunResult {
	return []RunResult{
		{Level: "1", TotalElements: 8000, Iterations: 31, TotalTime: 4.1,
			Observables: map[string]float64{"E_solv_kJ": -2237.0}},
		{Level: "2", TotalElements: 16000, Iterations: 33, TotalTime: 7.9,
			Observables: map[string]float64{"E_solv_kJ": -2172.9}},
		{Level: "4", TotalElements: 32000, Iterations: 35, TotalTime: 16.2,
			Observables: map[string]float64{"E_solv_kJ": -2142.0}},
	}
}

func TestSaveLoad(t *testing.T) {
	var (
		dir   = t.TempDir()
		runs  = lysozymeRuns()
		paths []string
	)
	for i, r := range runs {
		name := RecordName("lys", r.Level)
		if i == 1 {
			name = "lys_2.json"
		}
		p := filepath.Join(dir, "output", name)
		require.NoError(t, Save(p, r))
		paths = append(paths, p)
	}
	cols, err := Load(paths, "E_solv_kJ")
	require.NoError(t, err)
	want := Columns{
		TotalElementsField: {8000, 16000, 32000},
		IterationsField:    {31, 33, 35},
		TotalTimeField:     {4.1, 7.9, 16.2},
		"E_solv_kJ":        {-2237.0, -2172.9, -2142.0},
	}
	if diff := cmp.Diff(want, cols); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, cols.Len())
	assert.Equal(t, []string{"E_solv_kJ", IterationsField, TotalElementsField, TotalTimeField}, cols.Fields())

	// Input order is preserved, not re-sorted
	cols, err = Load([]string{paths[2], paths[0]})
	require.NoError(t, err)
	assert.Equal(t, []float64{32000, 8000}, cols[TotalElementsField])
}

func TestLoadMissingField(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "lys_1.yaml")
	require.NoError(t, Save(p, lysozymeRuns()[0]))
	_, err := Load([]string{p}, "Cext_0")
	require.Error(t, err)
	var mfe *convergence.MissingFieldError
	require.True(t, errors.As(err, &mfe))
	assert.Equal(t, "Cext_0", mfe.Field)
	assert.True(t, errors.Is(err, convergence.ErrMissingField))

	_, err = Load([]string{filepath.Join(dir, "absent.yaml")})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestAggregateGaps(t *testing.T) {
	recs := []map[string]any{
		{"total_elements": 500., "Cext_0": 1.5, "level": "500"},
		{"total_elements": 2000.},
		{"total_elements": 8000., "Cext_0": 1.4},
	}
	cols, err := Aggregate(recs, "Cext_0")
	require.NoError(t, err)
	require.Len(t, cols["Cext_0"], 3)
	assert.True(t, math.IsNaN(cols["Cext_0"][1]))
	_, hasLevel := cols[LevelField]
	assert.False(t, hasLevel)

	ls, skipped, err := cols.Series("Cext_0", convergence.CoarseToFine, []string{"500", "2K", "8K"})
	require.NoError(t, err)
	assert.Equal(t, []string{"500", "8K"}, ls.Labels)
	assert.Equal(t, []float64{500, 8000}, ls.Elements)
	require.Len(t, skipped, 1)
	assert.Equal(t, "2K", skipped[0].Label)

	_, _, err = cols.Series("E_solv_kJ", convergence.CoarseToFine, nil)
	assert.True(t, errors.Is(err, convergence.ErrMissingField))
}

func TestSortByLevel(t *testing.T) {
	paths := []string{"out/lspr_8K.yaml", "out/lspr_500.yaml", "out/lspr_32K.yaml", "out/lspr_2K.yaml"}
	sorted, err := SortByLevel(paths, []string{"500", "2K", "8K", "32K"})
	require.NoError(t, err)
	assert.Equal(t, []string{"out/lspr_500.yaml", "out/lspr_2K.yaml", "out/lspr_8K.yaml", "out/lspr_32K.yaml"}, sorted)
	// The input slice is untouched
	assert.Equal(t, "out/lspr_8K.yaml", paths[0])

	_, err = SortByLevel([]string{"out/lspr_64K.yaml"}, []string{"500"})
	assert.Error(t, err)
}

func TestNewRunResult(t *testing.T) {
	r, err := NewRunResult("2K", map[string]float64{
		"total_elements": 2048, "iterations": 12, "total_time": 1.5, "Cext_0": 3.3, "instructions": 1e6,
	}, "Cext_0")
	require.NoError(t, err)
	assert.Equal(t, 2048, r.TotalElements)
	assert.Equal(t, uint64(1e6), r.Instructions)
	assert.Equal(t, []string{"Cext_0"}, r.ObservableNames())
	assert.Equal(t, "2K", r.Record()[LevelField])

	_, err = NewRunResult("2K", map[string]float64{"total_elements": 2048, "iterations": 12, "total_time": 1.5}, "Cext_0")
	assert.True(t, errors.Is(err, convergence.ErrMissingField))

	for _, bad := range []map[string]float64{
		{"total_elements": 0, "iterations": 12, "total_time": 1.5},
		{"total_elements": 2048.5, "iterations": 12, "total_time": 1.5},
		{"total_elements": 2048, "iterations": -1, "total_time": 1.5},
		{"total_elements": 2048, "iterations": 12.5, "total_time": 1.5},
		{"total_elements": 2048, "iterations": 12, "total_time": 0},
	} {
		_, err = NewRunResult("2K", bad)
		assert.Error(t, err, "%v", bad)
	}
	r, err = NewRunResult("2K", map[string]float64{"total_elements": 2048, "iterations": 0, "total_time": 1.5})
	require.NoError(t, err)
	assert.Zero(t, r.Iterations)
}
