package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// WeightData represents serializable weight data for a layer
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// ModelWeights represents all weights in a model
type ModelWeights struct {
	Version string                 `json:"version"`
	Model   string                 `json:"model,omitempty"`
	Layers  map[string]LayerWeight `json:"layers"`
}

// LayerWeight contains weights and bias for a layer
type LayerWeight struct {
	Weight *WeightData `json:"weight,omitempty"`
	Bias   *WeightData `json:"bias,omitempty"`
}

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	return &weights, nil
}

// DenseToWeightData converts a matrix to serializable weight data
func DenseToWeightData(name string, m mat.Matrix) *WeightData {
	r, c := m.Dims()
	return &WeightData{
		Name:  name,
		Shape: []int{r, c},
		Data:  mat.DenseCopyOf(m).RawMatrix().Data,
	}
}

// WeightDataToDense converts weight data back to a matrix
func WeightDataToDense(wd *WeightData) (*mat.Dense, error) {
	if wd == nil {
		return nil, fmt.Errorf("missing weight data")
	}
	if len(wd.Shape) != 2 || wd.Shape[0]*wd.Shape[1] != len(wd.Data) {
		return nil, fmt.Errorf("weight %q: shape %v does not fit %d values", wd.Name, wd.Shape, len(wd.Data))
	}
	return mat.NewDense(wd.Shape[0], wd.Shape[1], append([]float64(nil), wd.Data...)), nil
}
