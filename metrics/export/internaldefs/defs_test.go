package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/tokenguard/internal/metrics"
)

func TestEveryMetricHasADefinition(t *testing.T) {
	seen := make(map[metrics.MetricID]bool)
	names := make(map[string]bool)

	for _, d := range CounterDefs {
		if metrics.IsHistogram(d.ID) {
			t.Fatalf("%s: histogram id in counter defs", d.Name)
		}
		if !strings.HasPrefix(d.Name, "tokenguard_") || !strings.HasSuffix(d.Name, "_total") {
			t.Fatalf("bad counter name %s", d.Name)
		}
		seen[d.ID], names[d.Name] = true, true
	}
	for _, d := range HistogramDefs {
		if !metrics.IsHistogram(d.ID) {
			t.Fatalf("%s: counter id in histogram defs", d.Name)
		}
		seen[d.ID], names[d.Name] = true, true
	}

	for id := metrics.MetricID(0); id < metrics.MetricIDCount; id++ {
		if !seen[id] {
			t.Fatalf("metric %d has no definition", id)
		}
	}
	if len(names) != len(CounterDefs)+len(HistogramDefs) {
		t.Fatal("metric names must be unique")
	}
}

func TestBuckets(t *testing.T) {
	if len(HistogramUpperBounds)+1 != metrics.HistBucketCount || len(HistogramBoundSuffix) != metrics.HistBucketCount {
		t.Fatal("bucket tables out of sync with the histogram")
	}

	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [metrics.HistBucketCount]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
