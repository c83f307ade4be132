package utils

import (
	"fmt"
	"io"
	"time"
)

// FoldTiming holds timing information for the stages of one fold
type FoldTiming struct {
	Training   time.Duration
	Evaluation time.Duration
	Relevance  time.Duration
	Artifacts  time.Duration
	Total      time.Duration
}

// Measure adds the time until the returned func is called to *d.
//
//	defer utils.Measure(&timing.Training)()
func Measure(d *time.Duration) func() {
	start := time.Now()
	return func() { *d += time.Since(start) }
}

// Print writes the stage breakdown to w.
func (ft *FoldTiming) Print(w io.Writer) {
	fmt.Fprintln(w, "=== FOLD TIMING ===")
	fmt.Fprintf(w, "Total: %v\n", ft.Total)
	for _, s := range []struct {
		name string
		d    time.Duration
	}{
		{"Training", ft.Training},
		{"Evaluation", ft.Evaluation},
		{"Relevance", ft.Relevance},
		{"Artifacts", ft.Artifacts},
	} {
		fmt.Fprintf(w, "  %s: %v (%.1f%%)\n", s.name, s.d, percent(s.d, ft.Total))
	}
}

func percent(part, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
