package nn

import (
	"errors"
	"fmt"
	"math/rand"

	"fcnn_lrp/nn/layers"

	"gonum.org/v1/gonum/mat"
)

// Module defines a single layer/unit in the network.
type Module interface {
	// Forward computes the layer output and caches what Backward and LRP need.
	Forward(input *mat.Dense) (*mat.Dense, error)
	// Backward computes gradients and propagates them.
	// It takes the gradient of the loss with respect to the module's output,
	// and returns the gradient of the loss with respect to the module's input.
	Backward(gradOut *mat.Dense) (*mat.Dense, error)
	// LRP redistributes output relevance onto the module's input.
	LRP(relevance *mat.Dense, rule layers.Rule, param float64) (*mat.Dense, error)
	// Update applies the gradients of the last Backward call.
	Update(learningRate float64) error
	Tag() string
}

var (
	_ Module = (*layers.Linear)(nil)
	_ Module = (*layers.Rect)(nil)
	_ Module = (*layers.SoftMax)(nil)
)

// ErrNoSoftMax is returned when pre-softmax activations are requested from a
// network without a SoftMax output stage.
var ErrNoSoftMax = errors.New("network has no softmax output stage")

// Sequential chains multiple Modules in order.
type Sequential struct {
	Layers []Module
}

// NewSequential builds a network from the given layers.
func NewSequential(mods ...Module) *Sequential {
	return &Sequential{Layers: mods}
}

// NewThreeLayer builds Linear(in,h) → Rect → Linear(h,h) → Rect → Linear(h,out) → SoftMax,
// drawing initial weights from rng.
func NewThreeLayer(inDim, hidden, outDim int, rng *rand.Rand) *Sequential {
	return NewSequential(
		layers.NewLinear(inDim, hidden, rng),
		layers.NewRect(),
		layers.NewLinear(hidden, hidden, rng),
		layers.NewRect(),
		layers.NewLinear(hidden, outDim, rng),
		layers.NewSoftMax(),
	)
}

// ModelName names the fixed architecture for a hidden width.
func ModelName(hidden int) string {
	return fmt.Sprintf("3LayerFCNN-%d", hidden)
}

// Forward applies each layer in sequence.
func (s *Sequential) Forward(x *mat.Dense) (*mat.Dense, error) {
	out := x
	for i, layer := range s.Layers {
		var err error
		out, err = layer.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("forward layer %d (%s): %w", i, layer.Tag(), err)
		}
	}
	return out, nil
}

// Backward applies Backward in reverse order.
func (s *Sequential) Backward(grad *mat.Dense) (*mat.Dense, error) {
	out := grad
	for i := len(s.Layers) - 1; i >= 0; i-- {
		var err error
		out, err = s.Layers[i].Backward(out)
		if err != nil {
			return nil, fmt.Errorf("backward layer %d (%s): %w", i, s.Layers[i].Tag(), err)
		}
	}
	return out, nil
}

// Update applies every layer's pending gradients.
func (s *Sequential) Update(learningRate float64) error {
	for i, layer := range s.Layers {
		if err := layer.Update(learningRate); err != nil {
			return fmt.Errorf("update layer %d (%s): %w", i, layer.Tag(), err)
		}
	}
	return nil
}

// LRP propagates seed relevance from the output back to the flattened input,
// using the caches of the last Forward call. The caches are left untouched,
// so several seeds can be explained after a single Forward.
func (s *Sequential) LRP(seed *mat.Dense, rule layers.Rule, param float64) (*mat.Dense, error) {
	r := seed
	for i := len(s.Layers) - 1; i >= 0; i-- {
		var err error
		r, err = s.Layers[i].LRP(r, rule, param)
		if err != nil {
			return nil, fmt.Errorf("lrp layer %d (%s): %w", i, s.Layers[i].Tag(), err)
		}
	}
	return r, nil
}

// PreSoftmax returns the logits cached by the last SoftMax layer.
func (s *Sequential) PreSoftmax() (*mat.Dense, error) {
	for i := len(s.Layers) - 1; i >= 0; i-- {
		if sm, ok := s.Layers[i].(*layers.SoftMax); ok {
			return sm.Logits()
		}
	}
	return nil, ErrNoSoftMax
}

// Linears returns the parameterized layers in order.
func (s *Sequential) Linears() []*layers.Linear {
	var out []*layers.Linear
	for _, layer := range s.Layers {
		if lin, ok := layer.(*layers.Linear); ok {
			out = append(out, lin)
		}
	}
	return out
}
