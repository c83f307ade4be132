package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAccuracyArgmax(t *testing.T) {
	pred := mat.NewDense(4, 3, []float64{
		0.7, 0.2, 0.1,
		0.1, 0.1, 0.8,
		0.3, 0.4, 0.3,
		0.5, 0.5, 0.0,
	})
	truth := mat.NewDense(4, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 1, 0,
		1, 0, 0,
	})
	assert.Equal(t, []int{0, 2, 1, 0}, Argmax(pred))

	acc, err := Accuracy(pred, truth)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-12)

	_, err = Accuracy(pred, mat.NewDense(4, 2, nil))
	assert.Error(t, err)
}

func TestL1Loss(t *testing.T) {
	pred := mat.NewDense(2, 2, []float64{0.75, 0.25, 0.5, 0.5})
	truth := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	l1, err := L1Loss(pred, truth)
	require.NoError(t, err)
	// (0.25+0.25 + 0.5+0.5) / 2
	assert.InDelta(t, 0.75, l1, 1e-12)
}

func TestCrossEntropy(t *testing.T) {
	var ce CrossEntropyLoss
	pred := mat.NewDense(1, 2, []float64{0.25, 0.75})
	truth := mat.NewDense(1, 2, []float64{0, 1})
	assert.InDelta(t, -math.Log(0.75), ce.Loss(pred, truth), 1e-12)

	grad, err := ce.Backward(pred, truth)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, -0.25}, grad.RawMatrix().Data)
}

func TestOneHot(t *testing.T) {
	m := OneHot([]int{2, 0}, 3)
	assert.Equal(t, []float64{0, 0, 1, 1, 0, 0}, m.RawMatrix().Data)
	assert.Equal(t, []int{2, 0}, Argmax(m))
}
