package textutil

import (
	"math"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"matrix", "matrix", 0},
		{"flaw", "lawn", 2},
		{"amélie", "amelie", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			if got := Levenshtein(tt.a, tt.b); got != tt.want {
				t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := Levenshtein(tt.b, tt.a); got != tt.want {
				t.Errorf("Levenshtein not symmetric for %q/%q: %d", tt.a, tt.b, got)
			}
		})
	}
}

func TestEditSimilarity(t *testing.T) {
	if got := EditSimilarity("", ""); got != 1 {
		t.Errorf("EditSimilarity(empty) = %v, want 1", got)
	}
	if got := EditSimilarity("abc", "xyz"); got != 0 {
		t.Errorf("EditSimilarity(disjoint) = %v, want 0", got)
	}
	got := EditSimilarity("kitten", "sitting")
	want := 1 - 3.0/7.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("EditSimilarity(kitten, sitting) = %v, want %v", got, want)
	}
}

func TestJaccardWords(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"both empty", "", "", 0},
		{"one empty", "matrix", "", 0},
		{"identical", "the matrix", "the matrix", 1},
		{"partial", "matrix reloaded", "matrix revolutions", 1.0 / 3.0},
		{"duplicates ignored", "war war war", "war", 1},
		{"disjoint", "alien", "predator", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JaccardWords(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("JaccardWords(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
