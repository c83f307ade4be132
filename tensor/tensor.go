package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a simple n-D array backed by a flat []float64 in row-major order.
type Tensor struct {
	Data  []float64
	Shape []int
}

// New allocates a Tensor of given shape (product of dims = len(Data)).
func New(shape ...int) *Tensor {
	return &Tensor{
		Data:  make([]float64, numel(shape)),
		Shape: append([]int(nil), shape...),
	}
}

// NewWithData creates a tensor of the given shape over a copy of data.
func NewWithData(data []float64, shape ...int) (*Tensor, error) {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	if numel(shape) != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, numel(shape), len(data))
	}
	return &Tensor{
		Data:  append([]float64(nil), data...),
		Shape: append([]int(nil), shape...),
	}, nil
}

func numel(shape []int) int {
	total := 1
	for _, d := range shape {
		total *= d
	}
	return total
}

// CheckShape reports an error unless every dimension is positive and Data
// holds exactly the elements Shape describes.
func (t *Tensor) CheckShape() error {
	if len(t.Shape) == 0 {
		return fmt.Errorf("tensor has no dimensions")
	}
	for i, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("dimension %d of shape %v is not positive", i, t.Shape)
		}
	}
	if n := numel(t.Shape); n != len(t.Data) {
		return fmt.Errorf("shape %v needs %d elements, got %d", t.Shape, n, len(t.Data))
	}
	return nil
}

// Flatten collapses every axis after the first, turning (N × T × C) into (N × T·C).
// The returned matrix copies the data.
func (t *Tensor) Flatten() (*mat.Dense, error) {
	if len(t.Shape) < 2 {
		return nil, fmt.Errorf("flatten: need at least 2 dims, got shape %v", t.Shape)
	}
	if err := t.CheckShape(); err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	n := t.Shape[0]
	d := len(t.Data) / n
	return mat.NewDense(n, d, append([]float64(nil), t.Data...)), nil
}

// FromDense reshapes an (N × D) matrix back into a tensor with the given
// per-sample shape, e.g. FromDense(r, T, C) gives (N × T × C).
func FromDense(m mat.Matrix, sampleShape ...int) (*Tensor, error) {
	r, c := m.Dims()
	if numel(sampleShape) != c {
		return nil, fmt.Errorf("from dense: sample shape %v needs %d columns, got %d", sampleShape, numel(sampleShape), c)
	}
	out := New(append([]int{r}, sampleShape...)...)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Data[i*c+j] = m.At(i, j)
		}
	}
	return out, nil
}

// SelectRows gathers the samples at idx along the first axis.
func (t *Tensor) SelectRows(idx []int) (*Tensor, error) {
	if err := t.CheckShape(); err != nil {
		return nil, fmt.Errorf("select rows: %w", err)
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("select rows: no indices")
	}
	stride := 1
	for _, d := range t.Shape[1:] {
		stride *= d
	}
	shape := append([]int{len(idx)}, t.Shape[1:]...)
	out := New(shape...)
	for k, i := range idx {
		if i < 0 || i >= t.Shape[0] {
			return nil, fmt.Errorf("select rows: index %d out of range [0,%d)", i, t.Shape[0])
		}
		copy(out.Data[k*stride:(k+1)*stride], t.Data[i*stride:(i+1)*stride])
	}
	return out, nil
}

// SelectDenseRows gathers rows of m at idx into a new matrix.
func SelectDenseRows(m mat.Matrix, idx []int) (*mat.Dense, error) {
	if len(idx) == 0 {
		return nil, fmt.Errorf("select rows: no indices")
	}
	r, c := m.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for k, i := range idx {
		if i < 0 || i >= r {
			return nil, fmt.Errorf("select rows: index %d out of range [0,%d)", i, r)
		}
		for j := 0; j < c; j++ {
			out.Set(k, j, m.At(i, j))
		}
	}
	return out, nil
}

// At returns the element at the given indices.
// For a 3D tensor [a, b, c], At(i, j, k) returns the element at position [i][j][k].
func (t *Tensor) At(indices ...int) float64 {
	return t.Data[t.offset("At", indices)]
}

// Set sets the element at the given indices to the given value.
func (t *Tensor) Set(value float64, indices ...int) {
	t.Data[t.offset("Set", indices)] = value
}

func (t *Tensor) offset(op string, indices []int) int {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("%s: expected %d indices, got %d", op, len(t.Shape), len(indices)))
	}
	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.Shape[i] {
			panic(fmt.Sprintf("%s: index %d out of bounds for dimension %d (shape: %v)", op, indices[i], i, t.Shape))
		}
		idx += indices[i] * stride
		stride *= t.Shape[i]
	}
	return idx
}

// Equal reports whether a and b have identical shape and data.
func Equal(a, b *Tensor) bool {
	if len(a.Shape) != len(b.Shape) || len(a.Data) != len(b.Data) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			return false
		}
	}
	return true
}
