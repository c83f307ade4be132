package nn

import (
	"fmt"

	"fcnn_lrp/utils"
)

const weightsVersion = "1.0"

// ExportWeights captures the parameters of every Linear layer, keyed by
// "linear_<i>" in network order.
func (s *Sequential) ExportWeights(model string) *utils.ModelWeights {
	mw := &utils.ModelWeights{
		Version: weightsVersion,
		Model:   model,
		Layers:  make(map[string]utils.LayerWeight),
	}
	for i, lin := range s.Linears() {
		key := fmt.Sprintf("linear_%d", i)
		mw.Layers[key] = utils.LayerWeight{
			Weight: utils.DenseToWeightData(key+"_weight", lin.W),
			Bias:   utils.DenseToWeightData(key+"_bias", lin.B),
		}
	}
	return mw
}

// ImportWeights overwrites the Linear parameters from mw. Every Linear layer
// must have an entry of matching shape.
func (s *Sequential) ImportWeights(mw *utils.ModelWeights) error {
	lins := s.Linears()
	if len(mw.Layers) != len(lins) {
		return fmt.Errorf("weights have %d layers, network has %d", len(mw.Layers), len(lins))
	}
	for i, lin := range lins {
		key := fmt.Sprintf("linear_%d", i)
		lw, ok := mw.Layers[key]
		if !ok {
			return fmt.Errorf("weights missing %s", key)
		}
		w, err := utils.WeightDataToDense(lw.Weight)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		b, err := utils.WeightDataToDense(lw.Bias)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		wr, wc := w.Dims()
		in, out := lin.Dims()
		if wr != in || wc != out {
			return fmt.Errorf("%s: weight is %d×%d, layer expects %d×%d", key, wr, wc, in, out)
		}
		if br, bc := b.Dims(); br != 1 || bc != out {
			return fmt.Errorf("%s: bias is %d×%d, layer expects 1×%d", key, br, bc, out)
		}
		lin.W.Copy(w)
		lin.B.Copy(b)
	}
	return nil
}

// SaveModel writes the network's parameters to path as JSON.
func (s *Sequential) SaveModel(path, model string) error {
	return utils.SaveWeights(path, s.ExportWeights(model))
}

// LoadModel reads parameters written by SaveModel into s.
func (s *Sequential) LoadModel(path string) error {
	mw, err := utils.LoadWeights(path)
	if err != nil {
		return err
	}
	return s.ImportWeights(mw)
}

// NewThreeLayerFromWeights builds the three-layer network whose dimensions are
// given by mw and loads its parameters.
func NewThreeLayerFromWeights(mw *utils.ModelWeights) (*Sequential, error) {
	first, ok := mw.Layers["linear_0"]
	if !ok || first.Weight == nil || len(first.Weight.Shape) != 2 {
		return nil, fmt.Errorf("weights missing linear_0")
	}
	last, ok := mw.Layers["linear_2"]
	if !ok || last.Weight == nil || len(last.Weight.Shape) != 2 {
		return nil, fmt.Errorf("weights missing linear_2")
	}
	s := NewThreeLayer(first.Weight.Shape[0], first.Weight.Shape[1], last.Weight.Shape[1], nil)
	if err := s.ImportWeights(mw); err != nil {
		return nil, err
	}
	return s, nil
}
