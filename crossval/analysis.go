package crossval

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var analysisHeader = []string{
	"Target", "Dataset", "Model", "Fold", "Hiddens", "Batch", "Epochs", "Schedule", "End Time", "SecondsToTrain", "L1Loss", "Accuracy",
}

// appendAnalysis adds one row per completed fold to {root}/analysis.csv,
// writing the header when the file is new.
func (h *Harness) appendAnalysis(res *FoldResult) error {
	path := filepath.Join(h.cfg.OutputRoot, "analysis.csv")
	var needsHeaders bool
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeaders = true
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open analysis: %w", err)
	}
	defer file.Close()

	schedule := make([]string, len(h.cfg.LearningRates))
	for i, lr := range h.cfg.LearningRates {
		schedule[i] = strconv.FormatFloat(lr, 'g', -1, 64)
	}
	w := csv.NewWriter(file)
	if needsHeaders {
		if err := w.Write(analysisHeader); err != nil {
			return fmt.Errorf("writing csv headers: %w", err)
		}
	}
	record := []string{
		res.Target,
		res.Dataset,
		h.ModelName(),
		strconv.Itoa(res.Fold),
		strconv.Itoa(h.cfg.HiddenUnits),
		strconv.Itoa(h.cfg.BatchSize),
		strconv.Itoa(h.cfg.Epochs),
		strings.Join(schedule, " "),
		strconv.FormatInt(time.Now().Unix(), 10),
		strconv.FormatFloat(res.Timing.Training.Seconds(), 'f', 3, 64),
		strconv.FormatFloat(res.L1Loss, 'f', 5, 64),
		strconv.FormatFloat(res.Accuracy, 'f', 5, 64),
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("writing csv record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing csv record: %w", err)
	}
	return file.Close()
}
