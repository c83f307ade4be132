package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"fcnn_lrp/tensor"

	"gonum.org/v1/gonum/mat"
)

// MatFileVersion tags every matrix file written by SaveMatFile.
const MatFileVersion = "1.0"

// MatEntry is one named, self-describing value in a matrix file: a numeric
// array with its shape, a list of string labels, or a list of index groups.
type MatEntry struct {
	Name   string    `json:"name"`
	Shape  []int     `json:"shape,omitempty"`
	Data   []float64 `json:"data,omitempty"`
	Labels []string  `json:"labels,omitempty"`
	Groups [][]int   `json:"groups,omitempty"`
}

// MatFile is a named collection of entries.
type MatFile struct {
	Version string     `json:"version"`
	Entries []MatEntry `json:"entries"`
}

// TensorEntry wraps a tensor.
func TensorEntry(name string, t *tensor.Tensor) MatEntry {
	return MatEntry{Name: name, Shape: append([]int(nil), t.Shape...), Data: append([]float64(nil), t.Data...)}
}

// DenseEntry wraps a matrix.
func DenseEntry(name string, m mat.Matrix) MatEntry {
	r, c := m.Dims()
	return MatEntry{Name: name, Shape: []int{r, c}, Data: mat.DenseCopyOf(m).RawMatrix().Data}
}

// ScalarEntry wraps a single number as a 1×1 array.
func ScalarEntry(name string, v float64) MatEntry {
	return MatEntry{Name: name, Shape: []int{1, 1}, Data: []float64{v}}
}

// Tensor rebuilds the numeric array of e.
func (e MatEntry) Tensor() (*tensor.Tensor, error) {
	t, err := tensor.NewWithData(e.Data, e.Shape...)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", e.Name, err)
	}
	return t, nil
}

// Lookup returns the entry with the given name.
func (f *MatFile) Lookup(name string) (MatEntry, bool) {
	for _, e := range f.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return MatEntry{}, false
}

// SaveMatFile writes entries, in order, to path.
func SaveMatFile(path string, entries ...MatEntry) error {
	data, err := json.Marshal(MatFile{Version: MatFileVersion, Entries: entries})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadMatFile reads a file written by SaveMatFile.
func LoadMatFile(path string) (*MatFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var f MatFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &f, nil
}
