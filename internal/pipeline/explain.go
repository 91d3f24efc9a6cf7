package pipeline

import (
	"sort"

	"github.com/mikey/phishing-filter/internal/core"
)

// TermWeight pairs a vocabulary term with its log-odds toward a class
type TermWeight struct {
	Term    string
	LogOdds float64
}

// TopTerms returns the n terms whose conditional probability most favors
// class over the other class
func TopTerms(model *core.TrainedModel, class int, n int) []TermWeight {
	other := 1 - class
	weights := make([]TermWeight, 0, len(model.Vocabulary))
	for term, i := range model.Vocabulary {
		weights = append(weights, TermWeight{
			Term:    term,
			LogOdds: model.FeatureLogProb[class][i] - model.FeatureLogProb[other][i],
		})
	}

	sort.Slice(weights, func(i, j int) bool {
		if weights[i].LogOdds != weights[j].LogOdds {
			return weights[i].LogOdds > weights[j].LogOdds
		}
		return weights[i].Term < weights[j].Term
	})

	if n > 0 && len(weights) > n {
		weights = weights[:n]
	}
	return weights
}
