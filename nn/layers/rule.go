package layers

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Rule selects how a layer redistributes relevance in LRP.
type Rule string

const (
	// RuleSimple is the z-rule: contributions divided by the raw pre-activation.
	RuleSimple Rule = "simple"
	// RuleEpsilon adds ε·sign(z) to every denominator, ε being the rule parameter.
	RuleEpsilon Rule = "epsilon"
	// RuleAlphaBeta splits positive and negative contributions, α being the
	// rule parameter and β = α-1.
	RuleAlphaBeta Rule = "alphabeta"
)

// simpleStabilizer keeps RuleSimple finite on exact zero pre-activations.
const simpleStabilizer = 1e-16

var (
	ErrNoForward   = errors.New("no cached forward pass")
	ErrShape       = errors.New("shape mismatch")
	ErrNumerical   = errors.New("non-finite value")
	ErrUnknownRule = errors.New("unknown lrp rule")
)

// ParseRule maps a rule name to a Rule.
func ParseRule(s string) (Rule, error) {
	switch r := Rule(strings.ToLower(strings.TrimSpace(s))); r {
	case RuleSimple, RuleEpsilon, RuleAlphaBeta:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRule, s)
	}
}

// CheckFinite returns ErrNumerical if m holds a NaN or Inf.
func CheckFinite(name string, m mat.Matrix) error {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w in %s at (%d,%d): %v", ErrNumerical, name, i, j, v)
			}
		}
	}
	return nil
}

func checkDims(op string, m mat.Matrix, rows, cols int) error {
	r, c := m.Dims()
	if (rows >= 0 && r != rows) || c != cols {
		return fmt.Errorf("%s: %w: got (%d,%d), want (%d,%d)", op, ErrShape, r, c, rows, cols)
	}
	return nil
}

// stabilize returns z + eps·sign(z) with sign(0) taken as +1.
func stabilize(z, eps float64) float64 {
	if z >= 0 {
		return z + eps
	}
	return z - eps
}
