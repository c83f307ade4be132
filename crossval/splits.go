// Package crossval runs rotating cross-validation of the three-layer network
// over every (dataset, target) combination and explains each test prediction
// with layer-wise relevance propagation.
package crossval

import (
	"errors"
	"fmt"
)

var (
	// ErrTooFewSplits is returned for split sets with fewer than three groups.
	ErrTooFewSplits = errors.New("need at least 3 splits")
	// ErrNotPartition is returned when split groups do not partition 0..N-1.
	ErrNotPartition = errors.New("splits do not partition the samples")
)

// Fold is one rotation of a split set.
type Fold struct {
	Index int
	Test  []int
	Val   []int
	Train []int
}

// ValidateSplits checks that splits holds at least three non-empty groups that
// together cover 0..n-1 exactly once.
func ValidateSplits(splits [][]int, n int) error {
	if len(splits) < 3 {
		return fmt.Errorf("%w, got %d", ErrTooFewSplits, len(splits))
	}
	seen := make([]bool, n)
	total := 0
	for g, group := range splits {
		if len(group) == 0 {
			return fmt.Errorf("%w: group %d is empty", ErrNotPartition, g)
		}
		for _, idx := range group {
			if idx < 0 || idx >= n {
				return fmt.Errorf("%w: group %d index %d out of range [0,%d)", ErrNotPartition, g, idx, n)
			}
			if seen[idx] {
				return fmt.Errorf("%w: index %d appears twice", ErrNotPartition, idx)
			}
			seen[idx] = true
			total++
		}
	}
	if total != n {
		return fmt.Errorf("%w: %d of %d samples covered", ErrNotPartition, total, n)
	}
	return nil
}

// Rotate assigns group i to test, group i+1 to validation and pools the
// remaining K-2 groups, in rotation order, into training.
// splits must have passed ValidateSplits.
func Rotate(splits [][]int, i int) Fold {
	k := len(splits)
	f := Fold{
		Index: i,
		Test:  append([]int(nil), splits[i%k]...),
		Val:   append([]int(nil), splits[(i+1)%k]...),
	}
	for r := i + 2; r < i+k; r++ {
		f.Train = append(f.Train, splits[r%k]...)
	}
	return f
}
