package core

import (
	"context"
)

// Trainable produces a trained model from a labeled dataset
type Trainable interface {
	// Train fits the model on a stratified training split and evaluates it on the rest
	Train(ctx context.Context, dataset *Dataset) (*TrainedModel, *EvaluationMetrics, error)
}

// Predictor scores feature vectors against a trained model
type Predictor interface {
	// PredictProba returns one probability per class, summing to 1
	PredictProba(model *TrainedModel, vector FeatureVector) []float64

	// Predict returns the most probable class
	Predict(model *TrainedModel, vector FeatureVector) int
}

// TextClassifier classifies raw text against a trained model
type TextClassifier interface {
	Classify(model *TrainedModel, text string) *ClassificationResult
}

// ModelRepository persists trained models
type ModelRepository interface {
	// Save stores a model under the given key
	Save(ctx context.Context, model *TrainedModel, key string) error

	// Load retrieves the model stored under the given key
	Load(ctx context.Context, key string) (*TrainedModel, error)
}

// DatasetLoader reads a labeled dataset
type DatasetLoader interface {
	Load(ctx context.Context, path string) (*Dataset, error)
}

// CacheRepository caches verdicts keyed by content digest
type CacheRepository interface {
	// Get retrieves a cached entry
	Get(ctx context.Context, digest string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
