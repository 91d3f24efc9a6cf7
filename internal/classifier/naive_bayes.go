package classifier

import (
	"fmt"
	"math"

	"github.com/mikey/phishing-filter/internal/core"
)

// DefaultAlpha is the default additive smoothing constant
const DefaultAlpha = 0.1

// Params are the fitted multinomial Naive Bayes parameters
type Params struct {
	ClassPrior     []float64
	FeatureLogProb [][]float64
	Alpha          float64
}

// MultinomialNB estimates and applies a two-class multinomial Naive Bayes
// model over non-negative feature vectors. It holds no state of its own; the
// fitted parameters live in the trained model.
type MultinomialNB struct{}

// NewMultinomialNB creates a new multinomial Naive Bayes estimator
func NewMultinomialNB() *MultinomialNB {
	return &MultinomialNB{}
}

// Fit estimates class priors and smoothed per-class feature log probabilities
func (nb *MultinomialNB) Fit(vectors []core.FeatureVector, labels []int, dim int, alpha float64) (*Params, error) {
	if alpha <= 0 || math.IsNaN(alpha) {
		return nil, fmt.Errorf("alpha must be positive, got %g", alpha)
	}
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("got %d vectors and %d labels", len(vectors), len(labels))
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no training examples", core.ErrDatasetFormat)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("feature dimension must be positive, got %d", dim)
	}

	var classCount [core.NumClasses]int
	featureSum := make([][]float64, core.NumClasses)
	for c := range featureSum {
		featureSum[c] = make([]float64, dim)
	}

	for n, vec := range vectors {
		c := labels[n]
		if c < 0 || c >= core.NumClasses {
			return nil, fmt.Errorf("%w: label %d is not 0 or 1", core.ErrDatasetFormat, c)
		}
		classCount[c]++
		for k, i := range vec.Indices {
			featureSum[c][i] += vec.Values[k]
		}
	}

	params := &Params{
		ClassPrior:     make([]float64, core.NumClasses),
		FeatureLogProb: make([][]float64, core.NumClasses),
		Alpha:          alpha,
	}

	total := float64(len(vectors))
	for c := 0; c < core.NumClasses; c++ {
		if classCount[c] == 0 {
			return nil, fmt.Errorf("%w: class %d has no training examples", core.ErrDatasetFormat, c)
		}
		params.ClassPrior[c] = float64(classCount[c]) / total

		var classTotal float64
		for _, w := range featureSum[c] {
			classTotal += w
		}
		denom := math.Log(classTotal + alpha*float64(dim))

		logProb := make([]float64, dim)
		for i, w := range featureSum[c] {
			logProb[i] = math.Log(w+alpha) - denom
		}
		params.FeatureLogProb[c] = logProb
	}

	return params, nil
}

// jointLogLikelihood returns log prior(c) + sum_i v_i log P(i|c) for each class
func jointLogLikelihood(model *core.TrainedModel, vector core.FeatureVector) []float64 {
	scores := make([]float64, len(model.ClassPrior))
	for c, prior := range model.ClassPrior {
		score := math.Log(prior)
		logProb := model.FeatureLogProb[c]
		for k, i := range vector.Indices {
			score += vector.Values[k] * logProb[i]
		}
		scores[c] = score
	}
	return scores
}

// PredictProba returns calibrated class probabilities using a stable softmax
func (nb *MultinomialNB) PredictProba(model *core.TrainedModel, vector core.FeatureVector) []float64 {
	scores := jointLogLikelihood(model, vector)

	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	var sum float64
	probs := make([]float64, len(scores))
	for c, s := range scores {
		probs[c] = math.Exp(s - maxScore)
		sum += probs[c]
	}
	for c := range probs {
		probs[c] /= sum
	}

	return probs
}

// Predict returns the most probable class; ties go to the lowest class index
func (nb *MultinomialNB) Predict(model *core.TrainedModel, vector core.FeatureVector) int {
	return argmax(nb.PredictProba(model, vector))
}

func argmax(probs []float64) int {
	best := 0
	for c := 1; c < len(probs); c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return best
}

var _ core.Predictor = (*MultinomialNB)(nil)
