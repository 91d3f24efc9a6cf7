package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/classifier"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/textproc"
	"github.com/mikey/phishing-filter/internal/vectorizer"
)

// Config holds the training parameters of the pipeline
type Config struct {
	Vectorizer   vectorizer.Config
	Alpha        float64
	TestFraction float64
	Seed         uint64
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() Config {
	return Config{
		Vectorizer:   vectorizer.DefaultConfig(),
		Alpha:        classifier.DefaultAlpha,
		TestFraction: 0.2,
		Seed:         42,
	}
}

// Validate checks every training parameter
func (c Config) Validate() error {
	if err := c.Vectorizer.Validate(); err != nil {
		return err
	}
	if c.Alpha <= 0 {
		return fmt.Errorf("alpha must be positive, got %g", c.Alpha)
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("test_fraction must be in (0, 1), got %g", c.TestFraction)
	}
	return nil
}

// Pipeline composes normalization, TF-IDF vectorization and multinomial
// Naive Bayes. It keeps no fitted state; every trained model is returned to
// the caller and is safe to share.
type Pipeline struct {
	cfg        Config
	vectorizer *vectorizer.Vectorizer
	nb         *classifier.MultinomialNB
	logger     *zap.Logger
}

// New creates a new pipeline
func New(cfg Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		vectorizer: vectorizer.New(cfg.Vectorizer, logger),
		nb:         classifier.NewMultinomialNB(),
		logger:     logger,
	}
}

// Train normalizes the dataset, fits on a stratified training split and
// evaluates on the held-out split
func (p *Pipeline) Train(ctx context.Context, dataset *core.Dataset) (*core.TrainedModel, *core.EvaluationMetrics, error) {
	if err := ValidateDataset(dataset); err != nil {
		return nil, nil, err
	}

	texts := textproc.NormalizeAll(dataset.Texts)

	trainIdx, testIdx, err := stratifiedSplit(dataset.Labels, p.cfg.TestFraction, p.cfg.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to split dataset: %w", err)
	}

	trainTexts, trainLabels := subset(texts, dataset.Labels, trainIdx)
	model, err := p.fit(ctx, trainTexts, trainLabels)
	if err != nil {
		return nil, nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	testTexts, testLabels := subset(texts, dataset.Labels, testIdx)
	predictions := make([]int, len(testTexts))
	for i, text := range testTexts {
		predictions[i] = p.nb.Predict(model, vectorizer.Transform(model.Vocabulary, model.IDF, text))
	}

	metrics := evaluate(testLabels, predictions)
	metrics.TrainSize = len(trainIdx)

	p.logger.Info("Model trained",
		zap.Int("train_size", metrics.TrainSize),
		zap.Int("test_size", metrics.TestSize),
		zap.Int("vocabulary_size", model.VocabularySize()),
		zap.Float64("accuracy", metrics.Accuracy))

	return model, metrics, nil
}

// Fit trains on the whole dataset without holding anything out
func (p *Pipeline) Fit(ctx context.Context, dataset *core.Dataset) (*core.TrainedModel, error) {
	if err := ValidateDataset(dataset); err != nil {
		return nil, err
	}
	return p.fit(ctx, textproc.NormalizeAll(dataset.Texts), dataset.Labels)
}

// fit builds a model from normalized texts. Nothing is published until every
// parameter has been estimated.
func (p *Pipeline) fit(ctx context.Context, texts []string, labels []int) (*core.TrainedModel, error) {
	vocab, err := p.vectorizer.Fit(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to fit vectorizer: %w", err)
	}

	vectors := make([]core.FeatureVector, len(texts))
	for i, text := range texts {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		vectors[i] = vocab.Transform(text)
	}

	params, err := p.nb.Fit(vectors, labels, vocab.Size(), p.cfg.Alpha)
	if err != nil {
		return nil, fmt.Errorf("failed to fit classifier: %w", err)
	}

	return &core.TrainedModel{
		Vocabulary:     vocab.Index,
		IDF:            vocab.IDF,
		Classes:        []int{core.ClassLegitimate, core.ClassPhishing},
		ClassPrior:     params.ClassPrior,
		FeatureLogProb: params.FeatureLogProb,
		Alpha:          params.Alpha,
		TrainedAt:      time.Now().UTC(),
		TrainingSize:   len(texts),
	}, nil
}

// Vectorize normalizes text and converts it into a feature vector for the model
func (p *Pipeline) Vectorize(model *core.TrainedModel, text string) core.FeatureVector {
	return vectorizer.Transform(model.Vocabulary, model.IDF, textproc.Normalize(text))
}

// Classify returns the verdict for raw text. Any input, including the empty
// string, produces a valid result.
func (p *Pipeline) Classify(model *core.TrainedModel, text string) *core.ClassificationResult {
	vec := p.Vectorize(model, text)
	probs := p.nb.PredictProba(model, vec)
	class := p.nb.Predict(model, vec)

	result := &core.ClassificationResult{
		IsPhishing:            class == core.ClassPhishing,
		Label:                 core.LabelLegitimate,
		Confidence:            probs[class],
		PhishingProbability:   probs[core.ClassPhishing],
		LegitimateProbability: probs[core.ClassLegitimate],
		AnalyzedAt:            time.Now(),
		Source:                "model",
	}
	if result.IsPhishing {
		result.Label = core.LabelPhishing
	}

	return result
}

// ValidateDataset checks labels and class coverage
func ValidateDataset(dataset *core.Dataset) error {
	if dataset == nil || dataset.Len() == 0 {
		return fmt.Errorf("%w: dataset is empty", core.ErrDatasetFormat)
	}
	if len(dataset.Texts) != len(dataset.Labels) {
		return fmt.Errorf("%w: %d texts but %d labels", core.ErrDatasetFormat, len(dataset.Texts), len(dataset.Labels))
	}
	for i, label := range dataset.Labels {
		if label != core.ClassLegitimate && label != core.ClassPhishing {
			return fmt.Errorf("%w: row %d has label %d, want 0 or 1", core.ErrDatasetFormat, i, label)
		}
	}
	counts := dataset.ClassCounts()
	for c, n := range counts {
		if n == 0 {
			return fmt.Errorf("%w: no examples of class %d", core.ErrDatasetFormat, c)
		}
	}
	return nil
}

func subset(texts []string, labels []int, idx []int) ([]string, []int) {
	outTexts := make([]string, len(idx))
	outLabels := make([]int, len(idx))
	for k, i := range idx {
		outTexts[k] = texts[i]
		outLabels[k] = labels[i]
	}
	return outTexts, outLabels
}

var (
	_ core.Trainable      = (*Pipeline)(nil)
	_ core.TextClassifier = (*Pipeline)(nil)
)
