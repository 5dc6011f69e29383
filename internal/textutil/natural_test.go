package textutil

import (
	"slices"
	"testing"
)

func TestNaturalCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Episode 2.mkv", "Episode 10.mkv", true},
		{"Episode 10.mkv", "Episode 2.mkv", false},
		{"a.mkv", "B.mkv", true},
		{"file1", "file01", true},
		{"1 intro", "a intro", true},
		{"same", "same", false},
		{"Show S01E09", "Show S01E10", true},
	}
	for _, tc := range tests {
		if got := NaturalCompare(tc.a, tc.b) < 0; got != tc.want {
			t.Errorf("NaturalCompare(%q, %q) < 0 = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestNaturalSortOrder(t *testing.T) {
	names := []string{"ep10.mkv", "ep1.mkv", "Ep2.mkv", "ep100.mkv", "ep9.mkv"}
	slices.SortFunc(names, NaturalCompare)
	want := []string{"ep1.mkv", "Ep2.mkv", "ep9.mkv", "ep10.mkv", "ep100.mkv"}
	if !slices.Equal(names, want) {
		t.Fatalf("sorted = %v, want %v", names, want)
	}
}
