package nn

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"

	"fcnn_lrp/nn/layers"
	"fcnn_lrp/tensor"

	"gonum.org/v1/gonum/mat"
)

// TrainOptions configures one Train call.
type TrainOptions struct {
	BatchSize    int
	LearningRate float64
	Epochs       int
	// Rand shuffles the sample order every epoch. Nil keeps the given order.
	Rand *rand.Rand
	// Logger receives one line per epoch. Nil discards.
	Logger *log.Logger
}

// EpochStats records one epoch of training.
type EpochStats struct {
	Epoch       int
	TrainLoss   float64 // mean cross-entropy over the epoch's batches
	ValLoss     float64 // L1 loss on the validation set
	ValAccuracy float64
}

// TrainHistory is returned by Train.
type TrainHistory struct {
	LearningRate float64
	Epochs       []EpochStats
}

// Last returns the final epoch, or the zero value for an empty history.
func (h *TrainHistory) Last() EpochStats {
	if h == nil || len(h.Epochs) == 0 {
		return EpochStats{}
	}
	return h.Epochs[len(h.Epochs)-1]
}

func (o TrainOptions) validate() error {
	if o.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", o.BatchSize)
	}
	if o.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", o.LearningRate)
	}
	if o.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", o.Epochs)
	}
	return nil
}

// Train runs mini-batch SGD on the network's current parameters.
// Parameters persist across calls, so a staged learning-rate schedule is a
// sequence of Train calls on the same Sequential. xval/yval may be nil.
func (s *Sequential) Train(xtr, ytr, xval, yval *mat.Dense, opts TrainOptions) (*TrainHistory, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	n, _ := xtr.Dims()
	if ny, _ := ytr.Dims(); ny != n {
		return nil, fmt.Errorf("train: %d samples but %d labels", n, ny)
	}
	if (xval == nil) != (yval == nil) {
		return nil, errors.New("train: validation inputs and labels must be given together")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	var ce CrossEntropyLoss
	hist := &TrainHistory{LearningRate: opts.LearningRate}
	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		order := identity(n)
		if opts.Rand != nil {
			order = opts.Rand.Perm(n)
		}
		epochLoss := 0.0
		for start := 0; start < n; start += opts.BatchSize {
			end := min(start+opts.BatchSize, n)
			loss, err := s.trainBatch(xtr, ytr, order[start:end], opts.LearningRate, &ce)
			if err != nil {
				return hist, fmt.Errorf("epoch %d batch %d: %w", epoch, start/opts.BatchSize, err)
			}
			epochLoss += loss * float64(end-start)
		}
		stats := EpochStats{Epoch: epoch, TrainLoss: epochLoss / float64(n)}

		if xval != nil {
			pred, err := s.Forward(xval)
			if err != nil {
				return hist, fmt.Errorf("epoch %d validation: %w", epoch, err)
			}
			if err := layers.CheckFinite("validation output", pred); err != nil {
				return hist, fmt.Errorf("epoch %d: %w", epoch, err)
			}
			if stats.ValLoss, err = L1Loss(pred, yval); err != nil {
				return hist, fmt.Errorf("epoch %d validation: %w", epoch, err)
			}
			if stats.ValAccuracy, err = Accuracy(pred, yval); err != nil {
				return hist, fmt.Errorf("epoch %d validation: %w", epoch, err)
			}
		}
		hist.Epochs = append(hist.Epochs, stats)
		logger.Printf("epoch %d/%d lr=%g train_ce=%.6f val_l1=%.6f val_acc=%.4f",
			epoch, opts.Epochs, opts.LearningRate, stats.TrainLoss, stats.ValLoss, stats.ValAccuracy)
	}
	return hist, nil
}

func (s *Sequential) trainBatch(x, y *mat.Dense, idx []int, lr float64, ce *CrossEntropyLoss) (float64, error) {
	xb, err := tensor.SelectDenseRows(x, idx)
	if err != nil {
		return 0, err
	}
	yb, err := tensor.SelectDenseRows(y, idx)
	if err != nil {
		return 0, err
	}
	pred, err := s.Forward(xb)
	if err != nil {
		return 0, err
	}
	if err := layers.CheckFinite("output", pred); err != nil {
		return 0, err
	}
	grad, err := ce.Backward(pred, yb)
	if err != nil {
		return 0, err
	}
	dx, err := s.Backward(grad)
	if err != nil {
		return 0, err
	}
	if err := layers.CheckFinite("input gradient", dx); err != nil {
		return 0, err
	}
	if err := checkGradients(s.Linears()); err != nil {
		return 0, err
	}
	if err := s.Update(lr); err != nil {
		return 0, err
	}
	return ce.Loss(pred, yb), nil
}

// checkGradients returns ErrNumerical if any weight or bias gradient is non-finite.
func checkGradients(lins []*layers.Linear) error {
	for _, lin := range lins {
		if err := layers.CheckFinite(lin.Tag()+" weight gradient", lin.DW); err != nil {
			return err
		}
		if err := layers.CheckFinite(lin.Tag()+" bias gradient", lin.DB); err != nil {
			return err
		}
	}
	return nil
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
