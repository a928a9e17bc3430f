package InputParameters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ghodss/yaml"

	"github.com/notargets/convstudy/convergence"
	"github.com/notargets/convstudy/orchestrator"
	"github.com/notargets/convstudy/results"
)

type LevelParameters struct {
	Name   string `json:"Name"`
	Config string `json:"Config"`
	Output string `json:"Output"`
}

type SolverParameters struct {
	Command           string   `json:"Command"` // "builtin:poisson1d" runs the in-process fixture
	Args              []string `json:"Args"`
	Dir               string   `json:"Dir"`
	ResourceExitCodes []int    `json:"ResourceExitCodes"`
	CountInstructions bool     `json:"CountInstructions"`
}

// Parameters obtained from the YAML study file
type StudyParameters struct {
	Title             string            `json:"Title"`
	Observable        string            `json:"Observable"`
	Order             string            `json:"Order"` // coarse-to-fine (default) or fine-to-coarse
	Solver            SolverParameters  `json:"Solver"`
	Levels            []LevelParameters `json:"Levels"`
	OutputDir         string            `json:"OutputDir"`
	TotalArea         float64           `json:"TotalArea"`  // when set, ratios use element density
	Analytical        *float64          `json:"Analytical"` // reference value, when one is known
	RichardsonIndices []int             `json:"RichardsonIndices"` // fine, mid, coarse positions in Levels
	RichardsonLevels  []string          `json:"RichardsonLevels"`  // fine, mid, coarse level names
	RateExponent      float64           `json:"RateExponent"`
	RatioTolerance    float64           `json:"RatioTolerance"`
	RateTolerance     *float64          `json:"RateTolerance"`
	Cooldown          string            `json:"Cooldown"`
}

// ghodss/yaml converts YAML to JSON before decoding, so the struct tags are json tags.
func (sp *StudyParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, sp); err != nil {
		return
	}
	return sp.Validate()
}

func ReadFile(path string) (sp *StudyParameters, err error) {
	var data []byte
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	sp = &StudyParameters{}
	if err = sp.Parse(data); err != nil {
		err = fmt.Errorf("study file %s: %w", path, err)
	}
	return
}

func (sp *StudyParameters) Validate() (err error) {
	switch {
	case len(sp.Title) == 0:
		err = fmt.Errorf("missing Title")
	case len(sp.Observable) == 0:
		err = fmt.Errorf("missing Observable")
	case len(sp.RichardsonIndices) != 0 && len(sp.RichardsonIndices) != 3:
		err = fmt.Errorf("RichardsonIndices needs exactly 3 entries (fine, mid, coarse), got %d", len(sp.RichardsonIndices))
	case len(sp.RichardsonLevels) != 0 && len(sp.RichardsonLevels) != 3:
		err = fmt.Errorf("RichardsonLevels needs exactly 3 entries (fine, mid, coarse), got %d", len(sp.RichardsonLevels))
	case len(sp.RichardsonLevels) != 0 && len(sp.RichardsonIndices) != 0:
		err = fmt.Errorf("give RichardsonIndices or RichardsonLevels, not both")
	case sp.TotalArea < 0:
		err = fmt.Errorf("TotalArea must be positive, got %v", sp.TotalArea)
	}
	if err != nil {
		return
	}
	seen := make(map[string]bool)
	for _, lv := range sp.Levels {
		switch {
		case len(lv.Name) == 0:
			err = fmt.Errorf("level with config %q has no Name", lv.Config)
		case strings.Contains(lv.Name, "_"):
			err = fmt.Errorf("level name %q must not contain '_'", lv.Name)
		case seen[lv.Name]:
			err = fmt.Errorf("level %q listed twice", lv.Name)
		}
		if err != nil {
			return
		}
		seen[lv.Name] = true
	}
	for _, i := range sp.RichardsonIndices {
		if i < 0 || i >= len(sp.Levels) {
			return fmt.Errorf("RichardsonIndices entry %d is not a position in the %d Levels", i, len(sp.Levels))
		}
	}
	if _, err = convergence.NewOrdering(sp.Order); err != nil {
		return
	}
	_, err = sp.CooldownDuration()
	return
}

func (sp *StudyParameters) Ordering() convergence.Ordering {
	o, _ := convergence.NewOrdering(sp.Order)
	return o
}

func (sp *StudyParameters) CooldownDuration() (d time.Duration, err error) {
	if len(sp.Cooldown) == 0 {
		return orchestrator.DefaultCooldown, nil
	}
	if d, err = time.ParseDuration(sp.Cooldown); err != nil {
		err = fmt.Errorf("bad Cooldown %q: %w", sp.Cooldown, err)
	}
	return
}

func (sp *StudyParameters) LevelNames() (names []string) {
	for _, lv := range sp.Levels {
		names = append(names, lv.Name)
	}
	return
}

// RunLevels are the levels in study order. A level without an Output gets a
// record path under OutputDir.
func (sp *StudyParameters) RunLevels() (levels []orchestrator.Level) {
	for _, lv := range sp.Levels {
		out := lv.Output
		if len(out) == 0 {
			out = filepath.Join(sp.OutputDir, results.RecordName(sp.Title, lv.Name))
		}
		levels = append(levels, orchestrator.Level{Name: lv.Name, Config: lv.Config, Output: out})
	}
	return
}

// Options maps the study file onto analysis options.
func (sp *StudyParameters) Options() (opts convergence.Options) {
	opts = convergence.DefaultOptions()
	if sp.RateExponent != 0 {
		opts.Exponent = sp.RateExponent
	}
	opts.RatioTolerance = sp.RatioTolerance
	if sp.RateTolerance != nil {
		opts.RateTolerance = *sp.RateTolerance
	}
	opts.Analytical = sp.Analytical
	// Indices refer to the study's own level list, so they keep naming the
	// same levels when others are skipped.
	switch {
	case len(sp.RichardsonLevels) == 3:
		opts.RichardsonLevels = &[3]string{sp.RichardsonLevels[0], sp.RichardsonLevels[1], sp.RichardsonLevels[2]}
	case len(sp.RichardsonIndices) == 3:
		names := sp.LevelNames()
		opts.RichardsonLevels = &[3]string{
			names[sp.RichardsonIndices[0]], names[sp.RichardsonIndices[1]], names[sp.RichardsonIndices[2]],
		}
	}
	return
}

func (sp *StudyParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", sp.Title)
	fmt.Printf("[%s]\t\t= Observable\n", sp.Observable)
	fmt.Printf("[%s]\t= Order\n", sp.Ordering())
	fmt.Printf("[%s]\t= Solver\n", sp.Solver.Command)
	if sp.TotalArea != 0 {
		fmt.Printf("%8.5f\t\t= Total Area\n", sp.TotalArea)
	}
	if sp.Analytical != nil {
		fmt.Printf("%8.5f\t\t= Analytical\n", *sp.Analytical)
	}
	opts := sp.Options()
	fmt.Printf("%8.5f\t\t= Rate Exponent\n", opts.Exponent)
	fmt.Printf("%8.5f\t\t= Rate Tolerance\n", opts.RateTolerance)
	for _, lv := range sp.Levels {
		fmt.Printf("Level[%s] = %s\n", lv.Name, lv.Config)
	}
}
