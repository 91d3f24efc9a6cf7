package vectorizer

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"only stop words", "the and a", nil},
		{"single word", "phishing", []string{"phishing"}},
		{"unigrams then bigrams", "quick brown fox", []string{"quick", "brown", "fox", "quick brown", "brown fox"}},
		{"stop words removed before bigrams", "click the link", []string{"click", "link", "click link"}},
		{"single characters kept", "x y", []string{"x", "y", "x y"}},
		{"placeholders lowercased", "visit URL", []string{"visit", "url", "visit url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTermCounts(t *testing.T) {
	got := termCounts("spam spam eggs")
	want := map[string]int{"spam": 2, "eggs": 1, "spam spam": 1, "spam eggs": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("termCounts = %v, want %v", got, want)
	}
}
