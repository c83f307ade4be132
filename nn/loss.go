package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CrossEntropyLoss pairs with a SoftMax output stage.
type CrossEntropyLoss struct{}

// Loss returns the mean negative log-likelihood of the one-hot labels.
func (c *CrossEntropyLoss) Loss(softmaxOut, oneHotLabel mat.Matrix) float64 {
	r, cols := softmaxOut.Dims()
	if r == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			if y := oneHotLabel.At(i, j); y != 0 {
				total -= y * math.Log(math.Max(softmaxOut.At(i, j), 1e-12))
			}
		}
	}
	return total / float64(r)
}

// Backward computes the gradient of the cross-entropy loss with softmax.
// grad = (softmax_output - one_hot_label)
func (c *CrossEntropyLoss) Backward(softmaxOut, oneHotLabel mat.Matrix) (*mat.Dense, error) {
	if err := sameDims(softmaxOut, oneHotLabel); err != nil {
		return nil, err
	}
	r, cols := softmaxOut.Dims()
	grad := mat.NewDense(r, cols, nil)
	grad.Sub(softmaxOut, oneHotLabel)
	return grad, nil
}

// L1Loss returns Σ|pred − actual| divided by the number of rows.
func L1Loss(pred, actual mat.Matrix) (float64, error) {
	if err := sameDims(pred, actual); err != nil {
		return 0, err
	}
	r, c := pred.Dims()
	if r == 0 {
		return 0, nil
	}
	total := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			total += math.Abs(pred.At(i, j) - actual.At(i, j))
		}
	}
	return total / float64(r), nil
}

// Argmax returns the column index of the largest entry of each row.
// Ties resolve to the lowest index.
func Argmax(m mat.Matrix) []int {
	r, c := m.Dims()
	out := make([]int, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		out[i] = floats.MaxIdx(row)
	}
	return out
}

// Accuracy is the fraction of rows where argmax(pred) == argmax(truth).
func Accuracy(pred, truth mat.Matrix) (float64, error) {
	if err := sameDims(pred, truth); err != nil {
		return 0, err
	}
	p, g := Argmax(pred), Argmax(truth)
	if len(p) == 0 {
		return 0, nil
	}
	hits := 0
	for i := range p {
		if p[i] == g[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(p)), nil
}

func sameDims(a, b mat.Matrix) error {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return fmt.Errorf("shape mismatch: (%d,%d) vs (%d,%d)", ar, ac, br, bc)
	}
	return nil
}

// OneHot returns the (len(idx) × classes) indicator matrix of idx.
func OneHot(idx []int, classes int) *mat.Dense {
	out := mat.NewDense(len(idx), classes, nil)
	for i, c := range idx {
		out.Set(i, c, 1)
	}
	return out
}
