package utils

import (
	"math"
	"path/filepath"
	"testing"

	"fcnn_lrp/tensor"

	"gonum.org/v1/gonum/mat"
)

func TestMatFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outputs.json")

	x := tensor.New(2, 3, 2)
	for i := range x.Data {
		x.Data[i] = float64(i) - 5.5
	}
	y := mat.NewDense(2, 2, []float64{0.9, 0.1, 0.2, 0.8})

	err := SaveMatFile(path,
		TensorEntry("R", x),
		DenseEntry("Ypred", y),
		ScalarEntry("acc", 0.5),
		MatEntry{Name: "channels", Labels: []string{"Fz", "Cz"}},
		MatEntry{Name: "splits", Groups: [][]int{{0}, {1}}},
	)
	if err != nil {
		t.Fatalf("SaveMatFile: %v", err)
	}

	f, err := LoadMatFile(path)
	if err != nil {
		t.Fatalf("LoadMatFile: %v", err)
	}
	if f.Version != MatFileVersion || len(f.Entries) != 5 {
		t.Fatalf("version %q with %d entries", f.Version, len(f.Entries))
	}

	e, ok := f.Lookup("R")
	if !ok {
		t.Fatal("R missing")
	}
	got, err := e.Tensor()
	if err != nil {
		t.Fatalf("Tensor: %v", err)
	}
	if !tensor.Equal(got, x) {
		t.Errorf("R round trip mismatch: %v vs %v", got.Shape, x.Shape)
	}

	e, _ = f.Lookup("Ypred")
	yt, err := e.Tensor()
	if err != nil {
		t.Fatalf("Ypred: %v", err)
	}
	yd, err := yt.Flatten()
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if !mat.Equal(yd, y) {
		t.Errorf("Ypred round trip mismatch")
	}

	e, _ = f.Lookup("acc")
	if len(e.Data) != 1 || e.Data[0] != 0.5 {
		t.Errorf("acc = %v", e.Data)
	}
	e, _ = f.Lookup("channels")
	if len(e.Labels) != 2 || e.Labels[1] != "Cz" {
		t.Errorf("channels = %v", e.Labels)
	}
	e, _ = f.Lookup("splits")
	if len(e.Groups) != 2 || e.Groups[1][0] != 1 {
		t.Errorf("splits = %v", e.Groups)
	}
	if _, ok := f.Lookup("missing"); ok {
		t.Error("Lookup found a missing entry")
	}
}

func TestMatFileRejectsNaN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := SaveMatFile(path, ScalarEntry("loss", math.NaN())); err == nil {
		t.Error("expected marshal error for NaN")
	}
}

func TestMatEntryBadShape(t *testing.T) {
	e := MatEntry{Name: "broken", Shape: []int{2, 2}, Data: []float64{1, 2, 3}}
	if _, err := e.Tensor(); err == nil {
		t.Error("expected shape error")
	}
}
