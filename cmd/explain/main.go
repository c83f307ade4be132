// fcnn-explain: relevance heatmap for one sample using a trained fold model
//
// Usage:
//
//	fcnn-explain --weights=./tmp/bump/raw/3LayerFCNN-512/part-0/model.json --inputs=./tmp --dataset=raw --sample=3
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"fcnn_lrp/crossval"
	"fcnn_lrp/nn"
	"fcnn_lrp/nn/layers"
	"fcnn_lrp/tensor"
	"fcnn_lrp/utils"
)

var (
	weightsFile = flag.String("weights", "", "Weights JSON file (model.json of a fold)")
	inputs      = flag.String("inputs", "", "Run output root holding data.json")
	dataset     = flag.String("dataset", "", "Dataset name inside data.json (default: first)")
	sample      = flag.Int("sample", 0, "Sample index")
	rule        = flag.String("rule", "epsilon", "LRP rule: epsilon, simple, alphabeta")
	lrpParam    = flag.Float64("lrp-param", 1e-5, "LRP rule parameter")
	topK        = flag.Int("topk", 5, "Most relevant cells to show")
)

func main() {
	flag.Parse()

	if *weightsFile == "" || *inputs == "" {
		fmt.Fprintln(os.Stderr, "Error: --weights and --inputs are required")
		os.Exit(2)
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	r, err := layers.ParseRule(*rule)
	if err != nil {
		return err
	}
	weights, err := utils.LoadWeights(*weightsFile)
	if err != nil {
		return err
	}
	model, err := nn.NewThreeLayerFromWeights(weights)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %s (%d layers)\n", weights.Model, len(model.Layers))

	datasets, _, err := crossval.LoadSnapshot(*inputs)
	if err != nil {
		return err
	}
	ds, err := pickDataset(datasets, *dataset)
	if err != nil {
		return err
	}
	if *sample < 0 || *sample >= ds.X.Shape[0] {
		return fmt.Errorf("sample %d out of range [0,%d)", *sample, ds.X.Shape[0])
	}
	xs, err := ds.X.SelectRows([]int{*sample})
	if err != nil {
		return err
	}
	x, err := xs.Flatten()
	if err != nil {
		return err
	}

	start := time.Now()
	pred, err := model.Forward(x)
	if err != nil {
		return err
	}
	_, classes := pred.Dims()
	class := nn.Argmax(pred)[0]
	rel, err := model.LRP(nn.OneHot([]int{class}, classes), r, *lrpParam)
	if err != nil {
		return err
	}
	heat, err := tensor.FromDense(rel, ds.X.Shape[1], ds.X.Shape[2])
	if err != nil {
		return err
	}
	fmt.Printf("Time: %.4fs\n", time.Since(start).Seconds())

	fmt.Printf("\nSample %d of %q, class probabilities:\n", *sample, ds.Name)
	for c := 0; c < classes; c++ {
		fmt.Printf("  Class %d: %.4f\n", c, pred.At(0, c))
	}
	showRelevance(heat, class, *topK)
	return nil
}

func pickDataset(datasets []crossval.Dataset, name string) (crossval.Dataset, error) {
	if len(datasets) == 0 {
		return crossval.Dataset{}, fmt.Errorf("snapshot holds no datasets")
	}
	if name == "" {
		return datasets[0], nil
	}
	for _, ds := range datasets {
		if ds.Name == name {
			return ds, nil
		}
	}
	return crossval.Dataset{}, fmt.Errorf("dataset %q not in snapshot", name)
}

func showRelevance(heat *tensor.Tensor, class, k int) {
	steps, channels := heat.Shape[1], heat.Shape[2]
	type cell struct {
		t, c int
		r    float64
	}
	cells := make([]cell, 0, steps*channels)
	total := 0.0
	for t := 0; t < steps; t++ {
		for c := 0; c < channels; c++ {
			v := heat.At(0, t, c)
			cells = append(cells, cell{t, c, v})
			total += v
		}
	}
	sort.Slice(cells, func(i, j int) bool { return math.Abs(cells[i].r) > math.Abs(cells[j].r) })
	k = min(k, len(cells))

	fmt.Printf("\nRelevance for class %d (total %.4f), top %d cells:\n", class, total, k)
	for i, cl := range cells[:k] {
		fmt.Printf("  %d. t=%d ch=%d: %+.4f\n", i+1, cl.t, cl.c, cl.r)
	}
}
