package vectorizer

import (
	"strings"
)

// Tokenize splits normalized text into unigram and bigram terms. Words are
// lowercased and stop words are removed before bigrams are formed, so a bigram
// may join two words that were separated by a stop word.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.ToLower(f)
		if IsStopWord(w) {
			continue
		}
		words = append(words, w)
	}

	if len(words) == 0 {
		return nil
	}

	terms := make([]string, 0, 2*len(words)-1)
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}

	return terms
}

// termCounts counts the occurrences of each term in a document
func termCounts(text string) map[string]int {
	terms := Tokenize(text)
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	return counts
}
