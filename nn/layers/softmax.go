package layers

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SoftMax normalizes each row into a probability vector. It is the output
// stage and pairs with a cross-entropy objective.
type SoftMax struct {
	lastInput *mat.Dense
}

// NewSoftMax creates a new output stage.
func NewSoftMax() *SoftMax { return &SoftMax{} }

// Forward computes the max-shifted row-wise softmax and caches the logits.
func (s *SoftMax) Forward(x *mat.Dense) (*mat.Dense, error) {
	r, c := x.Dims()
	y := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := y.RawRowView(i)
		mat.Row(row, i, x)
		shift := floats.Max(row)
		for j, v := range row {
			row[j] = math.Exp(v - shift)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	s.lastInput = mat.DenseCopyOf(x)
	return y, nil
}

// Backward expects Ypred - Y from the cross-entropy loss, which already is the
// gradient with respect to the logits, and hands it through.
func (s *SoftMax) Backward(gradOut *mat.Dense) (*mat.Dense, error) {
	if s.lastInput == nil {
		return nil, fmt.Errorf("SoftMax.Backward: %w", ErrNoForward)
	}
	r, c := s.lastInput.Dims()
	if err := checkDims("SoftMax.Backward", gradOut, r, c); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(gradOut), nil
}

// LRP feeds the seed directly into the pre-softmax layer.
func (s *SoftMax) LRP(r *mat.Dense, _ Rule, _ float64) (*mat.Dense, error) {
	if s.lastInput == nil {
		return nil, fmt.Errorf("SoftMax.LRP: %w", ErrNoForward)
	}
	rows, cols := s.lastInput.Dims()
	if err := checkDims("SoftMax.LRP", r, rows, cols); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(r), nil
}

// Logits returns a copy of the cached pre-softmax activations.
func (s *SoftMax) Logits() (*mat.Dense, error) {
	if s.lastInput == nil {
		return nil, fmt.Errorf("SoftMax.Logits: %w", ErrNoForward)
	}
	return mat.DenseCopyOf(s.lastInput), nil
}

func (s *SoftMax) Update(float64) error { return nil }

func (s *SoftMax) Tag() string { return "SoftMax" }
