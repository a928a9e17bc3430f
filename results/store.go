package results

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/notargets/convstudy/convergence"
)

// Field names shared by every solver record.
const (
	LevelField         = "level"
	TotalElementsField = "total_elements"
	IterationsField    = "iterations"
	TotalTimeField     = "total_time"
	InstructionsField  = "instructions"
)

// Columns maps a field name to one value per input record, in input order.
// Records lacking a field hold NaN at their position.
type Columns map[string][]float64

// Len is the number of records the columns were built from.
func (c Columns) Len() int {
	for _, col := range c {
		return len(col)
	}
	return 0
}

func (c Columns) Fields() (names []string) {
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return
}

// Load reads one persisted record per path and merges their numeric fields.
// The order of paths is kept; sort them into refinement order before calling.
func Load(paths []string, required ...string) (cols Columns, err error) {
	var (
		records = make([]map[string]any, len(paths))
	)
	for i, path := range paths {
		if records[i], err = ReadRecord(path); err != nil {
			return
		}
	}
	return Aggregate(records, required...)
}

// Aggregate merges already decoded records into columns. Non-numeric values
// are ignored. A required field absent from every record is an error.
func Aggregate(records []map[string]any, required ...string) (cols Columns, err error) {
	cols = make(Columns)
	for i, rec := range records {
		for k, v := range rec {
			f, ok := toFloat(v)
			if !ok {
				continue
			}
			col, found := cols[k]
			if !found {
				col = nanColumn(len(records))
				cols[k] = col
			}
			col[i] = f
		}
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			err = &convergence.MissingFieldError{Field: name, Sources: len(records)}
			return
		}
	}
	return
}

// ReadRecord decodes a YAML or JSON run record.
func ReadRecord(path string) (rec map[string]any, err error) {
	var data []byte
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	rec = make(map[string]any)
	if err = yaml.Unmarshal(data, &rec); err != nil {
		err = fmt.Errorf("decode run record %s: %w", path, err)
	}
	return
}

// Save writes the record for r as YAML, or JSON when path ends in .json.
func Save(path string, r RunResult) (err error) {
	var data []byte
	if data, err = yaml.Marshal(r.Record()); err != nil {
		return
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if data, err = yaml.YAMLToJSON(data); err != nil {
			return
		}
	}
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	return os.WriteFile(path, data, 0644)
}

// SortByLevel orders record paths by an explicit list of level names. Each
// path must carry exactly one of the names in its base name, as written by
// RecordName; anything else is an error rather than a guess.
func SortByLevel(paths, levels []string) (sorted []string, err error) {
	rank := make(map[string]int, len(levels))
	for i, l := range levels {
		rank[l] = i
	}
	for _, p := range paths {
		if level := LevelFromName(p); !containsKey(rank, level) {
			err = fmt.Errorf("record %s has level %q, not one of %v", p, level, levels)
			return
		}
	}
	sorted = make([]string, len(paths))
	copy(sorted, paths)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank[LevelFromName(sorted[i])] < rank[LevelFromName(sorted[j])]
	})
	return
}

// RecordName is the file name a level's record is persisted under.
func RecordName(test, level string) string {
	return fmt.Sprintf("%s_%s.yaml", test, level)
}

// LevelFromName recovers the level from a RecordName style path.
func LevelFromName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.LastIndex(base, "_"); i >= 0 {
		return base[i+1:]
	}
	return base
}

func containsKey(m map[string]int, k string) bool {
	_, ok := m[k]
	return ok
}

func nanColumn(n int) (col []float64) {
	col = make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return
}

func toFloat(v any) (f float64, ok bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return
}
