package crossval

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fcnn_lrp/nn"
	"fcnn_lrp/nn/layers"
	"fcnn_lrp/tensor"
	"fcnn_lrp/utils"

	"gonum.org/v1/gonum/mat"
)

// Dataset is a named (N × T × C) input tensor.
type Dataset struct {
	Name string
	X    *tensor.Tensor
}

// Target is a named (N × L) one-hot label matrix with its split set.
// Channels is snapshotted with the run inputs and otherwise unused.
type Target struct {
	Name     string
	Y        *mat.Dense
	Channels []string
	Splits   [][]int
}

// Harness trains and explains one fresh model per (dataset, target, fold).
type Harness struct {
	cfg    utils.Config
	rule   layers.Rule
	stdout io.Writer
}

// NewHarness validates cfg and returns a harness writing fold summaries to
// stdout as well as the run log. A nil stdout discards them.
func NewHarness(cfg *utils.Config, stdout io.Writer) (*Harness, error) {
	if err := utils.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	rule, err := layers.ParseRule(cfg.LRPRule)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if rule == layers.RuleAlphaBeta && cfg.LRPParam < 1 {
		return nil, fmt.Errorf("invalid config: alphabeta rule needs alpha >= 1, got %g", cfg.LRPParam)
	}
	if stdout == nil {
		stdout = io.Discard
	}
	c := *cfg
	c.LearningRates = append([]float64(nil), cfg.LearningRates...)
	return &Harness{cfg: c, rule: rule, stdout: stdout}, nil
}

// ModelName names the architecture trained by h.
func (h *Harness) ModelName() string { return nn.ModelName(h.cfg.HiddenUnits) }

// FoldDir returns {root}/{target}/{dataset}/{model}/part-{i}.
func (h *Harness) FoldDir(target, dataset string, i int) string {
	return filepath.Join(h.cfg.OutputRoot, target, dataset, h.ModelName(), fmt.Sprintf("part-%d", i))
}

// Validate checks every (dataset, target) combination before any training.
func (h *Harness) Validate(datasets []Dataset, targets []Target) error {
	if len(datasets) == 0 || len(targets) == 0 {
		return errors.New("need at least one dataset and one target")
	}
	names := make(map[string]bool)
	for _, ds := range datasets {
		if err := checkName("dataset", ds.Name, names); err != nil {
			return err
		}
		if ds.X == nil || len(ds.X.Shape) != 3 {
			return fmt.Errorf("dataset %q: input must be (N × T × C)", ds.Name)
		}
		if err := ds.X.CheckShape(); err != nil {
			return fmt.Errorf("dataset %q: %w", ds.Name, err)
		}
	}
	names = make(map[string]bool)
	for _, tg := range targets {
		if err := checkName("target", tg.Name, names); err != nil {
			return err
		}
		if tg.Y == nil {
			return fmt.Errorf("target %q: no labels", tg.Name)
		}
		n, _ := tg.Y.Dims()
		if err := ValidateSplits(tg.Splits, n); err != nil {
			return fmt.Errorf("target %q: %w", tg.Name, err)
		}
		for _, ds := range datasets {
			if ds.X.Shape[0] != n {
				return fmt.Errorf("dataset %q has %d samples, target %q has %d labels", ds.Name, ds.X.Shape[0], tg.Name, n)
			}
		}
	}
	return nil
}

func checkName(kind, name string, seen map[string]bool) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%s name %q is not a valid directory name", kind, name)
	}
	if seen[name] {
		return fmt.Errorf("duplicate %s name %q", kind, name)
	}
	seen[name] = true
	return nil
}

// Run validates the inputs, snapshots them under the output root and runs
// every fold of every combination in order. A failing fold is recorded in the
// report and the run moves on; the returned error joins all fold failures.
// Configuration and run-level I/O errors return a nil report.
func (h *Harness) Run(datasets []Dataset, targets []Target) (*Report, error) {
	if err := h.Validate(datasets, targets); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(h.cfg.OutputRoot, 0755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	if err := writeSnapshot(h.cfg.OutputRoot, datasets, targets); err != nil {
		return nil, err
	}
	logFile, err := os.OpenFile(filepath.Join(h.cfg.OutputRoot, "log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	defer logFile.Close()
	out := io.MultiWriter(logFile, h.stdout)

	fmt.Fprintf(out, "\nrun %s: hidden=%d batch=%d schedule=%v epochs=%d seed=%d rule=%s(%g) overwrite=%t\n",
		h.ModelName(), h.cfg.HiddenUnits, h.cfg.BatchSize, h.cfg.LearningRates, h.cfg.Epochs,
		h.cfg.Seed, h.rule, h.cfg.LRPParam, h.cfg.Overwrite)

	report := &Report{}
	for _, ds := range datasets {
		for _, tg := range targets {
			report.visit(tg.Name, ds.Name)
			for i := range tg.Splits {
				res, err := h.runFold(ds, tg, i)
				if err == nil {
					err = h.appendAnalysis(res)
				}
				if err != nil {
					fe := &FoldError{Target: tg.Name, Dataset: ds.Name, Fold: i, Err: err}
					report.Failures = append(report.Failures, fe)
					fmt.Fprintf(out, "\n%s :\nfailed: %v\n\n", h.FoldDir(tg.Name, ds.Name, i), err)
					continue
				}
				report.Results = append(report.Results, *res)
				fmt.Fprint(out, res.summary())
			}
		}
	}
	return report, report.Err()
}
