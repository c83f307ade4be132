package crossval

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"fcnn_lrp/nn"
	"fcnn_lrp/nn/layers"
	"fcnn_lrp/tensor"
	"fcnn_lrp/utils"

	"gonum.org/v1/gonum/mat"
)

// foldSet is one fold's data, flattened to (N × T·C).
type foldSet struct {
	xtr, ytr *mat.Dense
	xva, yva *mat.Dense
	xte, yte *mat.Dense
	t, c     int
}

func sliceFold(ds Dataset, tg Target, f Fold) (*foldSet, error) {
	fs := &foldSet{t: ds.X.Shape[1], c: ds.X.Shape[2]}
	for _, part := range []struct {
		idx  []int
		x, y **mat.Dense
	}{
		{f.Train, &fs.xtr, &fs.ytr},
		{f.Val, &fs.xva, &fs.yva},
		{f.Test, &fs.xte, &fs.yte},
	} {
		xs, err := ds.X.SelectRows(part.idx)
		if err != nil {
			return nil, err
		}
		if *part.x, err = xs.Flatten(); err != nil {
			return nil, err
		}
		if *part.y, err = tensor.SelectDenseRows(tg.Y, part.idx); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// foldOutputs are the test-set predictions and their explanations.
type foldOutputs struct {
	ypred           *mat.Dense
	rpred           *tensor.Tensor
	rpredPresoftmax *tensor.Tensor
	ract            *tensor.Tensor
	l1              float64
	acc             float64
}

// trainFold builds a fresh network from the configured seed and runs every
// stage of the learning-rate schedule on it.
func (h *Harness) trainFold(fs *foldSet, logger *log.Logger) (*nn.Sequential, []*nn.TrainHistory, error) {
	_, d := fs.xtr.Dims()
	_, l := fs.ytr.Dims()
	rng := rand.New(rand.NewSource(h.cfg.Seed))
	model := nn.NewThreeLayer(d, h.cfg.HiddenUnits, l, rng)

	var history []*nn.TrainHistory
	for stage, lr := range h.cfg.LearningRates {
		logger.Printf("stage %d/%d: lr=%g", stage+1, len(h.cfg.LearningRates), lr)
		hist, err := model.Train(fs.xtr, fs.ytr, fs.xva, fs.yva, nn.TrainOptions{
			BatchSize:    h.cfg.BatchSize,
			LearningRate: lr,
			Epochs:       h.cfg.Epochs,
			Rand:         rng,
			Logger:       logger,
		})
		if err != nil {
			return nil, history, fmt.Errorf("training stage %d (lr=%g): %w", stage+1, lr, err)
		}
		history = append(history, hist)
		last := hist.Last()
		logger.Printf("stage %d/%d done: train_ce=%.6f val_l1=%.6f val_acc=%.4f",
			stage+1, len(h.cfg.LearningRates), last.TrainLoss, last.ValLoss, last.ValAccuracy)
	}
	return model, history, nil
}

// evaluate runs the test forward pass and scores it.
func evaluate(model *nn.Sequential, fs *foldSet) (*foldOutputs, error) {
	ypred, err := model.Forward(fs.xte)
	if err != nil {
		return nil, fmt.Errorf("test forward: %w", err)
	}
	if err := layers.CheckFinite("test predictions", ypred); err != nil {
		return nil, err
	}
	out := &foldOutputs{ypred: ypred}
	if out.l1, err = nn.L1Loss(ypred, fs.yte); err != nil {
		return nil, err
	}
	if out.acc, err = nn.Accuracy(ypred, fs.yte); err != nil {
		return nil, err
	}
	return out, nil
}

// explain evaluates the model on the test set and computes the three
// relevance maps. All of them reuse the caches of the single forward call.
func (h *Harness) explain(model *nn.Sequential, fs *foldSet, timing *utils.FoldTiming) (*foldOutputs, error) {
	stopEval := utils.Measure(&timing.Evaluation)
	out, err := evaluate(model, fs)
	stopEval()
	if err != nil {
		return nil, err
	}
	ypred := out.ypred

	defer utils.Measure(&timing.Relevance)()
	logits, err := model.PreSoftmax()
	if err != nil {
		return nil, err
	}
	_, classes := ypred.Dims()
	for _, seed := range []struct {
		name string
		r    *mat.Dense
		dst  **tensor.Tensor
	}{
		{"predicted", nn.OneHot(nn.Argmax(ypred), classes), &out.rpred},
		{"pre-softmax", logits, &out.rpredPresoftmax},
		{"ground truth", fs.yte, &out.ract},
	} {
		r, err := model.LRP(seed.r, h.rule, h.cfg.LRPParam)
		if err != nil {
			return nil, fmt.Errorf("%s relevance: %w", seed.name, err)
		}
		if err := layers.CheckFinite(seed.name+" relevance", r); err != nil {
			return nil, err
		}
		if *seed.dst, err = tensor.FromDense(r, fs.t, fs.c); err != nil {
			return nil, fmt.Errorf("%s relevance: %w", seed.name, err)
		}
	}
	return out, nil
}

// runFold trains, evaluates and explains fold i of (ds, tg) and writes its
// artifacts. The fold's log file is closed on every return path.
func (h *Harness) runFold(ds Dataset, tg Target, i int) (*FoldResult, error) {
	start := time.Now()
	dir := h.FoldDir(tg.Name, ds.Name, i)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create fold dir: %w", err)
	}
	logFile, err := os.Create(filepath.Join(dir, "log.txt"))
	if err != nil {
		return nil, fmt.Errorf("open fold log: %w", err)
	}
	defer logFile.Close()
	logger := log.New(logFile, "", log.LstdFlags)

	fold := Rotate(tg.Splits, i)
	logger.Printf("%s on target %q dataset %q fold %d: train=%d val=%d test=%d overwrite=%t",
		h.ModelName(), tg.Name, ds.Name, i, len(fold.Train), len(fold.Val), len(fold.Test), h.cfg.Overwrite)

	fs, err := sliceFold(ds, tg, fold)
	if err != nil {
		return nil, err
	}

	res := &FoldResult{Target: tg.Name, Dataset: ds.Name, Fold: i, Dir: dir}
	stopTrain := utils.Measure(&res.Timing.Training)
	model, history, err := h.trainFold(fs, logger)
	stopTrain()
	res.History = history
	if err != nil {
		logger.Printf("failed: %v", err)
		return nil, err
	}

	out, err := h.explain(model, fs, &res.Timing)
	if err != nil {
		logger.Printf("failed: %v", err)
		return nil, err
	}
	res.Accuracy, res.L1Loss = out.acc, out.l1
	logger.Printf("test accuracy: %v", out.acc)
	logger.Printf("test loss (l1): %v", out.l1)

	stopArtifacts := utils.Measure(&res.Timing.Artifacts)
	err = h.writeArtifacts(dir, model, out)
	stopArtifacts()
	if err != nil {
		logger.Printf("failed: %v", err)
		return nil, err
	}

	res.Duration = time.Since(start)
	res.Timing.Total = res.Duration
	res.Timing.Print(logger.Writer())
	return res, nil
}

func (h *Harness) writeArtifacts(dir string, model *nn.Sequential, out *foldOutputs) error {
	if err := model.SaveModel(filepath.Join(dir, "model.json"), h.ModelName()); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	scores := fmt.Sprintf("test loss (l1): %v\ntest accuracy : %v", out.l1, out.acc)
	if err := os.WriteFile(filepath.Join(dir, "scores.txt"), []byte(scores), 0644); err != nil {
		return fmt.Errorf("write scores: %w", err)
	}
	return utils.SaveMatFile(filepath.Join(dir, "outputs.json"),
		utils.DenseEntry("Ypred", out.ypred),
		utils.TensorEntry("Rpred", out.rpred),
		utils.TensorEntry("RpredPresoftmax", out.rpredPresoftmax),
		utils.TensorEntry("Ract", out.ract),
		utils.ScalarEntry("l1loss", out.l1),
		utils.ScalarEntry("acc", out.acc),
	)
}
