// Package vectorizer turns normalized text into TF-IDF weighted sparse vectors.
//
// Fitting builds a fixed vocabulary of unigrams and bigrams. Terms are
// admitted by document frequency, capped at MaxFeatures by total corpus count
// (ties broken by ascending term string) and indexed in that order. Each
// retained term gets a smoothed idf of ln((1+N)/(1+df)) + 1.
package vectorizer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/phishing-filter/internal/core"
)

// Config holds vectorizer parameters
type Config struct {
	MaxFeatures int
	MinDF       int
	MaxDF       float64
	Workers     int
}

// DefaultConfig returns the default vectorizer configuration
func DefaultConfig() Config {
	return Config{
		MaxFeatures: 5000,
		MinDF:       1,
		MaxDF:       0.95,
		Workers:     4,
	}
}

// Validate checks the configuration for values that cannot produce a vocabulary
func (c Config) Validate() error {
	if c.MaxFeatures <= 0 {
		return fmt.Errorf("max_features must be positive, got %d", c.MaxFeatures)
	}
	if c.MinDF < 1 {
		return fmt.Errorf("min_df must be at least 1, got %d", c.MinDF)
	}
	if c.MaxDF <= 0 || c.MaxDF > 1 {
		return fmt.Errorf("max_df must be in (0, 1], got %g", c.MaxDF)
	}
	return nil
}

// Vocabulary is the fitted state of the vectorizer
type Vocabulary struct {
	// Terms lists the retained terms in index order
	Terms   []string
	Index   map[string]int
	IDF     []float64
	DocFreq []int
}

// Size returns the number of features
func (v *Vocabulary) Size() int {
	return len(v.Terms)
}

// Vectorizer fits vocabularies over a corpus of normalized documents
type Vectorizer struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a new vectorizer
func New(cfg Config, logger *zap.Logger) *Vectorizer {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Vectorizer{
		cfg:    cfg,
		logger: logger,
	}
}

type termStats struct {
	term  string
	df    int
	count int
}

// Fit builds the vocabulary and idf weights from normalized documents
func (v *Vectorizer) Fit(ctx context.Context, docs []string) (*Vocabulary, error) {
	if err := v.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vectorizer config: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: cannot fit vocabulary on an empty corpus", core.ErrDatasetFormat)
	}

	perDoc, err := v.countDocuments(ctx, docs)
	if err != nil {
		return nil, err
	}

	// Merging in document order keeps the result independent of scheduling.
	stats := make(map[string]*termStats)
	for _, counts := range perDoc {
		for term, n := range counts {
			s, ok := stats[term]
			if !ok {
				s = &termStats{term: term}
				stats[term] = s
			}
			s.df++
			s.count += n
		}
	}

	n := len(docs)
	maxDocCount := v.cfg.MaxDF * float64(n)
	admitted := make([]*termStats, 0, len(stats))
	for _, s := range stats {
		if s.df < v.cfg.MinDF || float64(s.df) > maxDocCount {
			continue
		}
		admitted = append(admitted, s)
	}

	if len(admitted) == 0 {
		return nil, fmt.Errorf("%w: empty vocabulary after document frequency filtering", core.ErrDatasetFormat)
	}

	sort.Slice(admitted, func(i, j int) bool {
		if admitted[i].count != admitted[j].count {
			return admitted[i].count > admitted[j].count
		}
		return admitted[i].term < admitted[j].term
	})
	if len(admitted) > v.cfg.MaxFeatures {
		admitted = admitted[:v.cfg.MaxFeatures]
	}

	vocab := &Vocabulary{
		Terms:   make([]string, len(admitted)),
		Index:   make(map[string]int, len(admitted)),
		IDF:     make([]float64, len(admitted)),
		DocFreq: make([]int, len(admitted)),
	}
	for i, s := range admitted {
		vocab.Terms[i] = s.term
		vocab.Index[s.term] = i
		vocab.DocFreq[i] = s.df
		vocab.IDF[i] = math.Log(float64(1+n)/float64(1+s.df)) + 1
	}

	v.logger.Debug("Vocabulary fitted",
		zap.Int("documents", n),
		zap.Int("candidate_terms", len(stats)),
		zap.Int("vocabulary_size", vocab.Size()))

	return vocab, nil
}

// countDocuments tokenizes documents concurrently, one term count map per document
func (v *Vectorizer) countDocuments(ctx context.Context, docs []string) ([]map[string]int, error) {
	perDoc := make([]map[string]int, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.Workers)

	chunk := (len(docs) + v.cfg.Workers - 1) / v.cfg.Workers
	for start := 0; start < len(docs); start += chunk {
		start, end := start, min(start+chunk, len(docs))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				perDoc[i] = termCounts(docs[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to count terms: %w", err)
	}

	return perDoc, nil
}

// Transform converts normalized text into an L2-normalized TF-IDF vector.
// Terms outside the vocabulary are ignored.
func Transform(index map[string]int, idf []float64, text string) core.FeatureVector {
	vec := core.FeatureVector{Dim: len(idf)}

	weights := make(map[int]float64)
	for _, term := range Tokenize(text) {
		if i, ok := index[term]; ok {
			weights[i] += idf[i]
		}
	}
	if len(weights) == 0 {
		return vec
	}

	vec.Indices = make([]int, 0, len(weights))
	for i := range weights {
		vec.Indices = append(vec.Indices, i)
	}
	sort.Ints(vec.Indices)

	var norm float64
	vec.Values = make([]float64, len(vec.Indices))
	for k, i := range vec.Indices {
		vec.Values[k] = weights[i]
		norm += weights[i] * weights[i]
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for k := range vec.Values {
			vec.Values[k] /= norm
		}
	}

	return vec
}

// Transform converts normalized text using this vocabulary
func (v *Vocabulary) Transform(text string) core.FeatureVector {
	return Transform(v.Index, v.IDF, text)
}
