package ffmpeg

import (
	"strings"
	"testing"
)

func TestParseProgress(t *testing.T) {
	input := strings.Join([]string{
		"frame=10",
		"out_time_us=15000000",
		"progress=continue",
		"out_time_us=10000000",
		"out_time_ms=30000000",
		"bogus",
		"progress=end",
	}, "\n")

	var got []float64
	parseProgress(strings.NewReader(input), 60, 0, 100, func(p float64) { got = append(got, p) })

	want := []float64{25, 50, 100}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestParseProgressScalesIntoSpan(t *testing.T) {
	var got []float64
	parseProgress(strings.NewReader("out_time_us=30000000\nprogress=end\n"), 60, 90, 10, func(p float64) { got = append(got, p) })
	if len(got) != 2 || got[0] != 95 || got[1] != 100 {
		t.Fatalf("unexpected scaled progress: %v", got)
	}
}

func TestParseProgressUnknownDuration(t *testing.T) {
	var got []float64
	parseProgress(strings.NewReader("out_time_us=30000000\nprogress=end\n"), 0, 0, 100, func(p float64) { got = append(got, p) })
	if len(got) != 1 || got[0] != 100 {
		t.Fatalf("expected only completion, got %v", got)
	}
}
