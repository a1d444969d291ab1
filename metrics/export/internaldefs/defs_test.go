package internaldefs

import (
	"slices"
	"testing"
)

func TestHistogramBoundsInSeconds(t *testing.T) {
	want := []float64{0.01, 0.05, 0.25, 1, 5, 15, 60}
	if !slices.Equal(HistogramBounds, want) {
		t.Fatalf("expected %v, got %v", want, HistogramBounds)
	}
}

func TestBucketHelpers(t *testing.T) {
	raw := NormalizeBuckets([]uint64{1, 2, 3})
	if len(raw) != len(HistogramBounds)+1 {
		t.Fatalf("expected %d buckets, got %d", len(HistogramBounds)+1, len(raw))
	}
	got := CumulativeBuckets(raw)
	want := []uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCounterNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, def := range CounterDefs {
		if seen[def.Name] {
			t.Fatalf("duplicate counter name %s", def.Name)
		}
		seen[def.Name] = true
	}
}
