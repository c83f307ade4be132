package crossval

import (
	"fmt"
	"path/filepath"

	"fcnn_lrp/utils"
)

// writeSnapshot saves the run inputs to data.json, targets.json, labels.json
// and splits.json under root.
func writeSnapshot(root string, datasets []Dataset, targets []Target) error {
	data := make([]utils.MatEntry, len(datasets))
	for i, ds := range datasets {
		data[i] = utils.TensorEntry(ds.Name, ds.X)
	}
	ys := make([]utils.MatEntry, len(targets))
	labels := make([]utils.MatEntry, len(targets))
	splits := make([]utils.MatEntry, len(targets))
	for i, tg := range targets {
		ys[i] = utils.DenseEntry(tg.Name, tg.Y)
		labels[i] = utils.MatEntry{Name: tg.Name, Labels: tg.Channels}
		splits[i] = utils.MatEntry{Name: tg.Name, Groups: tg.Splits}
	}
	for _, f := range []struct {
		name    string
		entries []utils.MatEntry
	}{
		{"data.json", data},
		{"targets.json", ys},
		{"labels.json", labels},
		{"splits.json", splits},
	} {
		if err := utils.SaveMatFile(filepath.Join(root, f.name), f.entries...); err != nil {
			return err
		}
	}
	return nil
}

// LoadSnapshot reads the inputs written by a previous run under root.
func LoadSnapshot(root string) ([]Dataset, []Target, error) {
	files := make(map[string]*utils.MatFile)
	for _, name := range []string{"data.json", "targets.json", "labels.json", "splits.json"} {
		f, err := utils.LoadMatFile(filepath.Join(root, name))
		if err != nil {
			return nil, nil, err
		}
		files[name] = f
	}

	var datasets []Dataset
	for _, e := range files["data.json"].Entries {
		x, err := e.Tensor()
		if err != nil {
			return nil, nil, err
		}
		datasets = append(datasets, Dataset{Name: e.Name, X: x})
	}
	var targets []Target
	for _, e := range files["targets.json"].Entries {
		if len(e.Shape) != 2 {
			return nil, nil, fmt.Errorf("target %q: labels must be 2-D, got shape %v", e.Name, e.Shape)
		}
		y, err := e.Tensor()
		if err != nil {
			return nil, nil, err
		}
		ym, err := y.Flatten()
		if err != nil {
			return nil, nil, fmt.Errorf("target %q: %w", e.Name, err)
		}
		tg := Target{Name: e.Name, Y: ym}
		if l, ok := files["labels.json"].Lookup(e.Name); ok {
			tg.Channels = l.Labels
		}
		s, ok := files["splits.json"].Lookup(e.Name)
		if !ok {
			return nil, nil, fmt.Errorf("target %q: no splits", e.Name)
		}
		tg.Splits = s.Groups
		targets = append(targets, tg)
	}
	return datasets, targets, nil
}
