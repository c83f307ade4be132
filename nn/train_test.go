package nn

import (
	"bytes"
	"log"
	"math"
	"math/rand"
	"strings"
	"testing"

	"fcnn_lrp/nn/layers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// separableData returns n samples of 6 features: class 0 lights up the first
// three features, class 1 the last three.
func separableData(rng *rand.Rand, n int) (*mat.Dense, *mat.Dense) {
	x := mat.NewDense(n, 6, nil)
	y := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		class := i % 2
		y.Set(i, class, 1)
		for j := 0; j < 6; j++ {
			v := 0.1 * rng.Float64()
			if j/3 == class {
				v += 1
			}
			x.Set(i, j, v)
		}
	}
	return x, y
}

// twoUnitNet is a 2-hidden-unit three-layer network started from a fixed
// point: each hidden unit watches one half of the input and the output layer
// is zero, so the untrained network predicts the same class for everything.
func twoUnitNet() *Sequential {
	seq := NewThreeLayer(6, 2, 2, nil)
	lins := seq.Linears()
	lins[0].W = mat.NewDense(6, 2, []float64{
		0.5, 0,
		0.5, 0,
		0.5, 0,
		0, 0.5,
		0, 0.5,
		0, 0.5,
	})
	lins[1].W = mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	return seq
}

func TestTrainTwoHiddenUnitsSeparable(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	x, y := separableData(rng, 12)
	seq := twoUnitNet()

	before, err := seq.Forward(x)
	require.NoError(t, err)
	accBefore, err := Accuracy(before, y)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, accBefore, 1e-12)

	_, err = seq.Train(x, y, nil, nil, TrainOptions{BatchSize: 4, LearningRate: 0.05, Epochs: 60, Rand: rng})
	require.NoError(t, err)

	pred, err := seq.Forward(x)
	require.NoError(t, err)
	acc, err := Accuracy(pred, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, 0.9)
}

func TestTrainStagedScheduleKeepsParameters(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x, y := separableData(rng, 12)
	xv, yv := separableData(rng, 4)
	seq := twoUnitNet()
	w := seq.Linears()[2].W

	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	var hists []*TrainHistory
	for _, lr := range []float64{5e-2, 1e-2, 5e-3} {
		h, err := seq.Train(x, y, xv, yv, TrainOptions{BatchSize: 5, LearningRate: lr, Epochs: 10, Rand: rng, Logger: logger})
		require.NoError(t, err)
		require.Len(t, h.Epochs, 10)
		hists = append(hists, h)
	}

	// the same parameter storage is updated in place across stages
	assert.Same(t, w, seq.Linears()[2].W)
	assert.Less(t, hists[2].Epochs[0].TrainLoss, hists[0].Epochs[0].TrainLoss)
	assert.Equal(t, 30, strings.Count(buf.String(), "val_acc="))
	assert.InDelta(t, 5e-3, hists[2].LearningRate, 1e-15)
}

func TestTrainRejectsBadOptions(t *testing.T) {
	seq := twoUnitNet()
	x := mat.NewDense(2, 6, nil)
	y := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	for _, opts := range []TrainOptions{
		{BatchSize: 0, LearningRate: 0.1, Epochs: 1},
		{BatchSize: 1, LearningRate: 0, Epochs: 1},
		{BatchSize: 1, LearningRate: 0.1, Epochs: 0},
	} {
		_, err := seq.Train(x, y, nil, nil, opts)
		assert.Error(t, err)
	}
	_, err := seq.Train(x, mat.NewDense(3, 2, nil), nil, nil, TrainOptions{BatchSize: 1, LearningRate: 0.1, Epochs: 1})
	assert.Error(t, err)
	_, err = seq.Train(x, y, x, nil, TrainOptions{BatchSize: 1, LearningRate: 0.1, Epochs: 1})
	assert.Error(t, err)
}

func TestTrainReportsNonFiniteValues(t *testing.T) {
	seq := twoUnitNet()
	x := mat.NewDense(2, 6, nil)
	x.Set(0, 0, math.Inf(1))
	y := mat.NewDense(2, 2, []float64{1, 0, 0, 1})

	_, err := seq.Train(x, y, nil, nil, TrainOptions{BatchSize: 2, LearningRate: 0.1, Epochs: 1})
	require.ErrorIs(t, err, layers.ErrNumerical)
	assert.Contains(t, err.Error(), "epoch 1 batch 0")
}

func TestTrainSameSeedSameParameters(t *testing.T) {
	data := rand.New(rand.NewSource(99))
	x, y := separableData(data, 10)

	run := func() *Sequential {
		rng := rand.New(rand.NewSource(5))
		seq := NewThreeLayer(6, 4, 2, rng)
		_, err := seq.Train(x, y, nil, nil, TrainOptions{BatchSize: 3, LearningRate: 0.01, Epochs: 3, Rand: rng})
		require.NoError(t, err)
		return seq
	}
	a, b := run(), run()
	for i, lin := range a.Linears() {
		assert.True(t, mat.Equal(lin.W, b.Linears()[i].W), "layer %d W", i)
		assert.True(t, mat.Equal(lin.B, b.Linears()[i].B), "layer %d B", i)
	}
}

func TestCheckGradientsCoversBias(t *testing.T) {
	seq := NewThreeLayer(3, 2, 2, rand.New(rand.NewSource(4)))
	x := mat.NewDense(2, 3, []float64{1, 2, 3, -1, 0, 1})
	y := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	pred, err := seq.Forward(x)
	require.NoError(t, err)
	var ce CrossEntropyLoss
	grad, err := ce.Backward(pred, y)
	require.NoError(t, err)
	_, err = seq.Backward(grad)
	require.NoError(t, err)
	require.NoError(t, checkGradients(seq.Linears()))

	mid := seq.Linears()[1]
	mid.DB.Set(0, 1, math.Inf(1))
	err = checkGradients(seq.Linears())
	assert.ErrorIs(t, err, layers.ErrNumerical)
	assert.Contains(t, err.Error(), "Linear_2_2 bias gradient")

	mid.DB.Set(0, 1, 0)
	mid.DW.Set(1, 0, math.NaN())
	assert.ErrorIs(t, checkGradients(seq.Linears()), layers.ErrNumerical)
}
