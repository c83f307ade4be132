package layers

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear is a fully-connected layer computing y = x·W + b over a batch of rows.
type Linear struct {
	// W is (inDim × outDim), B is (1 × outDim).
	W, B *mat.Dense

	// DW and DB hold the gradients of the last Backward call.
	DW, DB *mat.Dense

	lastInput  *mat.Dense
	lastOutput *mat.Dense
}

// NewLinear(inDim→outDim) draws W from N(0, 1/inDim) using rng; B starts at zero.
// A nil rng leaves W at zero.
func NewLinear(inDim, outDim int, rng *rand.Rand) *Linear {
	l := &Linear{W: mat.NewDense(inDim, outDim, nil), B: mat.NewDense(1, outDim, nil)}
	if rng != nil {
		scale := 1 / math.Sqrt(float64(inDim))
		raw := l.W.RawMatrix().Data
		for i := range raw {
			raw[i] = rng.NormFloat64() * scale
		}
	}
	return l
}

// Dims returns (inDim, outDim).
func (l *Linear) Dims() (int, int) { return l.W.Dims() }

// Forward computes x·W + b and caches x and the pre-activations.
func (l *Linear) Forward(x *mat.Dense) (*mat.Dense, error) {
	inDim, outDim := l.W.Dims()
	if err := checkDims("Linear.Forward", x, -1, inDim); err != nil {
		return nil, err
	}
	n, _ := x.Dims()
	y := mat.NewDense(n, outDim, nil)
	y.Mul(x, l.W)
	bias := l.B.RawRowView(0)
	for i := 0; i < n; i++ {
		floats.Add(y.RawRowView(i), bias)
	}
	l.lastInput = mat.DenseCopyOf(x)
	l.lastOutput = mat.DenseCopyOf(y)
	return y, nil
}

// Backward stores dW = xᵗ·dy and dB = colsum(dy), and returns dx = dy·Wᵗ.
func (l *Linear) Backward(gradOut *mat.Dense) (*mat.Dense, error) {
	if l.lastInput == nil {
		return nil, fmt.Errorf("Linear.Backward: %w", ErrNoForward)
	}
	inDim, outDim := l.W.Dims()
	n, _ := l.lastInput.Dims()
	if err := checkDims("Linear.Backward", gradOut, n, outDim); err != nil {
		return nil, err
	}
	dw := mat.NewDense(inDim, outDim, nil)
	dw.Mul(l.lastInput.T(), gradOut)
	db := mat.NewDense(1, outDim, nil)
	dbRow := db.RawRowView(0)
	for i := 0; i < n; i++ {
		floats.Add(dbRow, gradOut.RawRowView(i))
	}
	dx := mat.NewDense(n, inDim, nil)
	dx.Mul(gradOut, l.W.T())
	l.DW, l.DB = dw, db
	return dx, nil
}

// Update applies plain SGD: W -= lr·dW, B -= lr·dB.
func (l *Linear) Update(learningRate float64) error {
	if l.DW == nil || l.DB == nil {
		return fmt.Errorf("no gradients to update")
	}
	floats.AddScaled(l.W.RawMatrix().Data, -learningRate, l.DW.RawMatrix().Data)
	floats.AddScaled(l.B.RawRowView(0), -learningRate, l.DB.RawRowView(0))
	return nil
}

// LRP redistributes r (n × outDim) onto the cached input (n × inDim).
// The cache is only read, so several LRP calls may follow one Forward.
func (l *Linear) LRP(r *mat.Dense, rule Rule, param float64) (*mat.Dense, error) {
	if l.lastInput == nil {
		return nil, fmt.Errorf("Linear.LRP: %w", ErrNoForward)
	}
	_, outDim := l.W.Dims()
	n, _ := l.lastInput.Dims()
	if err := checkDims("Linear.LRP", r, n, outDim); err != nil {
		return nil, err
	}
	switch rule {
	case RuleSimple:
		return l.lrpEpsilon(r, simpleStabilizer), nil
	case RuleEpsilon:
		if param < 0 {
			return nil, fmt.Errorf("epsilon rule: epsilon must be >= 0, got %g", param)
		}
		return l.lrpEpsilon(r, param), nil
	case RuleAlphaBeta:
		if param < 1 {
			return nil, fmt.Errorf("alphabeta rule: alpha must be >= 1, got %g", param)
		}
		return l.lrpAlphaBeta(r, param), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRule, rule)
	}
}

// lrpEpsilon computes R_i = x_i · Σ_j W_ij · R_j / (z_j + ε·sign(z_j)).
func (l *Linear) lrpEpsilon(r *mat.Dense, eps float64) *mat.Dense {
	n, outDim := r.Dims()
	inDim, _ := l.W.Dims()
	s := mat.NewDense(n, outDim, nil)
	s.Apply(func(i, j int, v float64) float64 {
		return v / stabilize(l.lastOutput.At(i, j), eps)
	}, r)
	c := mat.NewDense(n, inDim, nil)
	c.Mul(s, l.W.T())
	c.MulElem(c, l.lastInput)
	return c
}

// lrpAlphaBeta redistributes positive contributions with weight α and
// negative ones with weight β = α-1. Bias terms join the matching sums.
func (l *Linear) lrpAlphaBeta(r *mat.Dense, alpha float64) *mat.Dense {
	beta := alpha - 1
	n, outDim := r.Dims()
	inDim, _ := l.W.Dims()
	out := mat.NewDense(n, inDim, nil)
	zp := make([]float64, outDim)
	zn := make([]float64, outDim)
	for s := 0; s < n; s++ {
		x := l.lastInput.RawRowView(s)
		for j := 0; j < outDim; j++ {
			b := l.B.At(0, j)
			zp[j], zn[j] = math.Max(b, 0), math.Min(b, 0)
		}
		for i, xi := range x {
			for j := 0; j < outDim; j++ {
				z := xi * l.W.At(i, j)
				if z > 0 {
					zp[j] += z
				} else {
					zn[j] += z
				}
			}
		}
		rs := r.RawRowView(s)
		dst := out.RawRowView(s)
		for i, xi := range x {
			acc := 0.0
			for j := 0; j < outDim; j++ {
				z := xi * l.W.At(i, j)
				if z > 0 && zp[j] != 0 {
					acc += alpha * z / zp[j] * rs[j]
				} else if z < 0 && zn[j] != 0 {
					acc -= beta * z / zn[j] * rs[j]
				}
			}
			dst[i] = acc
		}
	}
	return out
}

func (l *Linear) Tag() string {
	inDim, outDim := l.W.Dims()
	return fmt.Sprintf("Linear_%d_%d", inDim, outDim)
}
