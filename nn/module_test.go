package nn

import (
	"errors"
	"math/rand"
	"testing"

	"fcnn_lrp/nn/layers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// dummy layer: adds a constant
type addLayer struct{ c float64 }

func (l *addLayer) Forward(x *mat.Dense) (*mat.Dense, error) {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return v + l.c }, x)
	return &out, nil
}
func (l *addLayer) Backward(grad *mat.Dense) (*mat.Dense, error) { return grad, nil }
func (l *addLayer) LRP(r *mat.Dense, _ layers.Rule, _ float64) (*mat.Dense, error) {
	var out mat.Dense
	out.Scale(2, r)
	return &out, nil
}
func (l *addLayer) Update(float64) error { return nil }
func (l *addLayer) Tag() string          { return "add" }

// dummy layer: error on forward
type errLayer struct{}

func (l *errLayer) Forward(*mat.Dense) (*mat.Dense, error) { return nil, errors.New("fail") }
func (l *errLayer) Backward(*mat.Dense) (*mat.Dense, error) {
	return nil, errors.New("fail")
}
func (l *errLayer) LRP(*mat.Dense, layers.Rule, float64) (*mat.Dense, error) {
	return nil, errors.New("fail")
}
func (l *errLayer) Update(float64) error { return nil }
func (l *errLayer) Tag() string          { return "err" }

func TestSequentialPlain(t *testing.T) {
	seq := NewSequential(&addLayer{c: 2}, &addLayer{c: 3})
	out, err := seq.Forward(mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)
	assert.Equal(t, 6.0, out.At(0, 0))

	r, err := seq.LRP(mat.NewDense(1, 1, []float64{1}), layers.RuleEpsilon, 0)
	require.NoError(t, err)
	assert.Equal(t, 4.0, r.At(0, 0))
}

func TestSequentialErrorNamesLayer(t *testing.T) {
	seq := NewSequential(&addLayer{c: 0}, &errLayer{})
	_, err := seq.Forward(mat.NewDense(1, 1, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layer 1 (err)")
}

func TestThreeLayerShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seq := NewThreeLayer(6, 8, 3, rng)
	require.Len(t, seq.Layers, 6)
	require.Len(t, seq.Linears(), 3)
	assert.Equal(t, "3LayerFCNN-8", ModelName(8))

	x := mat.NewDense(4, 6, nil)
	x.Apply(func(_, _ int, _ float64) float64 { return rng.NormFloat64() }, x)
	y, err := seq.Forward(x)
	require.NoError(t, err)
	r, c := y.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 3, c)

	logits, err := seq.PreSoftmax()
	require.NoError(t, err)
	var sm layers.SoftMax
	again, err := sm.Forward(logits)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(y, again, 1e-12))

	rel, err := seq.LRP(y, layers.RuleEpsilon, 1e-5)
	require.NoError(t, err)
	rr, rc := rel.Dims()
	assert.Equal(t, 4, rr)
	assert.Equal(t, 6, rc)
}

func TestPreSoftmaxWithoutSoftMax(t *testing.T) {
	_, err := NewSequential(layers.NewRect()).PreSoftmax()
	require.ErrorIs(t, err, ErrNoSoftMax)
}

func TestRelevanceSeedsAreIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	seq := NewThreeLayer(5, 7, 2, rng)
	x := mat.NewDense(3, 5, nil)
	x.Apply(func(_, _ int, _ float64) float64 { return rng.NormFloat64() }, x)
	truth := mat.NewDense(3, 2, []float64{1, 0, 0, 1, 1, 0})

	pred, err := seq.Forward(x)
	require.NoError(t, err)
	logits, err := seq.PreSoftmax()
	require.NoError(t, err)

	rPred, err := seq.LRP(pred, layers.RuleEpsilon, 1e-5)
	require.NoError(t, err)
	_, err = seq.LRP(logits, layers.RuleEpsilon, 1e-5)
	require.NoError(t, err)
	_, err = seq.LRP(truth, layers.RuleEpsilon, 1e-5)
	require.NoError(t, err)
	rPredAgain, err := seq.LRP(pred, layers.RuleEpsilon, 1e-5)
	require.NoError(t, err)

	assert.True(t, mat.Equal(rPred, rPredAgain))
}
