package layers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Rect is the rectifying nonlinearity y = max(0, x).
type Rect struct {
	// mask[i*cols+j] is true where the cached input was positive.
	mask       []bool
	rows, cols int
}

// NewRect creates a new rectifier layer.
func NewRect() *Rect { return &Rect{} }

// Forward applies max(0, x) and caches the positivity mask.
func (a *Rect) Forward(x *mat.Dense) (*mat.Dense, error) {
	r, c := x.Dims()
	a.rows, a.cols = r, c
	a.mask = make([]bool, r*c)
	y := mat.NewDense(r, c, nil)
	y.Apply(func(i, j int, v float64) float64 {
		if v > 0 {
			a.mask[i*c+j] = true
			return v
		}
		return 0
	}, x)
	return y, nil
}

// Backward passes gradients through where the input was positive.
func (a *Rect) Backward(gradOut *mat.Dense) (*mat.Dense, error) {
	if a.mask == nil {
		return nil, fmt.Errorf("Rect.Backward: %w", ErrNoForward)
	}
	if err := checkDims("Rect.Backward", gradOut, a.rows, a.cols); err != nil {
		return nil, err
	}
	gradIn := mat.NewDense(a.rows, a.cols, nil)
	gradIn.Apply(func(i, j int, v float64) float64 {
		if a.mask[i*a.cols+j] {
			return v
		}
		return 0
	}, gradOut)
	return gradIn, nil
}

// LRP hands relevance through unchanged for every rule.
func (a *Rect) LRP(r *mat.Dense, _ Rule, _ float64) (*mat.Dense, error) {
	if a.mask == nil {
		return nil, fmt.Errorf("Rect.LRP: %w", ErrNoForward)
	}
	if err := checkDims("Rect.LRP", r, a.rows, a.cols); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(r), nil
}

func (a *Rect) Update(float64) error { return nil }

func (a *Rect) Tag() string { return "Rect" }
