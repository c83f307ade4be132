package crossval

import (
	"errors"
	"fmt"
	"io"
	"time"

	"fcnn_lrp/nn"
	"fcnn_lrp/utils"
)

// FoldResult holds the metrics of one completed fold.
type FoldResult struct {
	Target   string
	Dataset  string
	Fold     int
	Dir      string
	Accuracy float64
	L1Loss   float64
	Duration time.Duration
	Timing   utils.FoldTiming
	History  []*nn.TrainHistory
}

func (r *FoldResult) summary() string {
	return fmt.Sprintf("\n%s :\ntest accuracy: %v\ntest loss (l1): %v\ntrain-test-sequence done after: %vs\n\n",
		r.Dir, r.Accuracy, r.L1Loss, r.Duration.Seconds())
}

// FoldError records a fold that did not complete.
type FoldError struct {
	Target  string
	Dataset string
	Fold    int
	Err     error
}

func (e *FoldError) Error() string {
	return fmt.Sprintf("target %q dataset %q fold %d: %v", e.Target, e.Dataset, e.Fold, e.Err)
}

func (e *FoldError) Unwrap() error { return e.Err }

// Report collects the outcome of a run.
type Report struct {
	Results  []FoldResult
	Failures []*FoldError

	visited []pairKey
}

type pairKey struct{ target, dataset string }

func (r *Report) visit(target, dataset string) {
	r.visited = append(r.visited, pairKey{target, dataset})
}

// Err joins all fold failures, or returns nil.
func (r *Report) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// PairSummary aggregates the folds of one (target, dataset) combination.
type PairSummary struct {
	Target       string
	Dataset      string
	Folds        int
	Failed       int
	MeanAccuracy float64
	MeanL1Loss   float64
}

// Summary returns one entry per combination, in the order the run visited them.
// Means cover completed folds only.
func (r *Report) Summary() []PairSummary {
	var order []pairKey
	acc := make(map[pairKey]*PairSummary)
	get := func(k pairKey) *PairSummary {
		s, ok := acc[k]
		if !ok {
			s = &PairSummary{Target: k.target, Dataset: k.dataset}
			acc[k] = s
			order = append(order, k)
		}
		return s
	}
	for _, k := range r.visited {
		get(k)
	}
	for _, res := range r.Results {
		s := get(pairKey{res.Target, res.Dataset})
		s.Folds++
		s.MeanAccuracy += res.Accuracy
		s.MeanL1Loss += res.L1Loss
	}
	for _, f := range r.Failures {
		get(pairKey{f.Target, f.Dataset}).Failed++
	}
	out := make([]PairSummary, 0, len(order))
	for _, k := range order {
		s := acc[k]
		if s.Folds > 0 {
			s.MeanAccuracy /= float64(s.Folds)
			s.MeanL1Loss /= float64(s.Folds)
		}
		out = append(out, *s)
	}
	return out
}

// Print writes the summary table to w.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== CROSS-VALIDATION SUMMARY ===")
	for _, s := range r.Summary() {
		fmt.Fprintf(w, "%s / %s: %d folds (%d failed) mean acc %.4f mean l1 %.4f\n",
			s.Target, s.Dataset, s.Folds+s.Failed, s.Failed, s.MeanAccuracy, s.MeanL1Loss)
	}
}
