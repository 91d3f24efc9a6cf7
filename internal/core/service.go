package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/textproc"
	"github.com/mikey/phishing-filter/internal/whitelist"
)

// PhishingDetectorService is the core service for phishing detection
type PhishingDetectorService struct {
	trainer       Trainable
	classifier    TextClassifier
	repo          ModelRepository
	provider      *ModelProvider
	cache         CacheRepository
	textProcessor *textproc.TextProcessor
	logger        *zap.Logger
	modelKey      string
	cacheEnabled  bool
	cacheTTL      time.Duration
	whitelist     *whitelist.Checker
}

// ServiceOptions groups the service's scalar settings
type ServiceOptions struct {
	ModelKey     string
	CacheEnabled bool
	CacheTTL     time.Duration
	Whitelist    *whitelist.Checker
}

// NewPhishingDetectorService creates a new phishing detector service
func NewPhishingDetectorService(
	trainer Trainable,
	classifier TextClassifier,
	repo ModelRepository,
	provider *ModelProvider,
	cache CacheRepository,
	textProcessor *textproc.TextProcessor,
	logger *zap.Logger,
	opts ServiceOptions,
) *PhishingDetectorService {
	return &PhishingDetectorService{
		trainer:       trainer,
		classifier:    classifier,
		repo:          repo,
		provider:      provider,
		cache:         cache,
		textProcessor: textProcessor,
		logger:        logger,
		modelKey:      opts.ModelKey,
		cacheEnabled:  opts.CacheEnabled && cache != nil,
		cacheTTL:      opts.CacheTTL,
		whitelist:     opts.Whitelist,
	}
}

// Train fits a model on the dataset, persists it and returns it with its metrics.
// The stored model is only replaced once training has fully succeeded.
func (s *PhishingDetectorService) Train(ctx context.Context, dataset *Dataset) (*TrainedModel, *EvaluationMetrics, error) {
	counts := dataset.ClassCounts()
	s.logger.Info("Training model",
		zap.Int("dataset_size", dataset.Len()),
		zap.Int("phishing", counts[ClassPhishing]),
		zap.Int("legitimate", counts[ClassLegitimate]))

	model, metrics, err := s.trainer.Train(ctx, dataset)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.Save(ctx, model, s.modelKey); err != nil {
		return nil, nil, fmt.Errorf("failed to save model: %w", err)
	}
	s.logger.Info("Model saved", zap.String("key", s.modelKey))

	if s.provider != nil {
		s.provider.Publish(model)
	}

	return model, metrics, nil
}

// Model returns the process-wide trained model
func (s *PhishingDetectorService) Model(ctx context.Context) (*TrainedModel, error) {
	if s.provider == nil {
		return s.repo.Load(ctx, s.modelKey)
	}
	return s.provider.Get(ctx)
}

// ClassifyText classifies raw text with the process-wide model
func (s *PhishingDetectorService) ClassifyText(ctx context.Context, text string) (*ClassificationResult, error) {
	model, err := s.Model(ctx)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		s.logger.Debug("Classifying empty text", zap.Error(ErrInvalidInput))
	}

	prepared := text
	if s.textProcessor != nil {
		prepared = s.textProcessor.Prepare(text)
	}

	var digest string
	if s.cacheEnabled {
		digest = contentDigest(prepared)
		if entry, err := s.cache.Get(ctx, digest); err == nil {
			s.logger.Debug("Cache hit for content", zap.String("digest", digest))
			result := entry.Result
			result.Source = "cache"
			result.ProcessingID = uuid.NewString()
			result.AnalyzedAt = time.Now()
			return &result, nil
		}
	}

	result := s.classifier.Classify(model, prepared)
	result.ProcessingID = uuid.NewString()

	if s.cacheEnabled {
		entry := &CacheEntry{
			Digest:    digest,
			Result:    *result,
			ExpiresAt: time.Now().Add(s.cacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return result, nil
}

// AnalyzeEmail classifies an email message, bypassing the model for whitelisted senders
func (s *PhishingDetectorService) AnalyzeEmail(ctx context.Context, email *Email) (*ClassificationResult, error) {
	if s.whitelist.IsWhitelisted(email.From) {
		s.logger.Info("Skipping phishing check for whitelisted domain",
			zap.String("sender", email.From),
			zap.String("action", "whitelist_bypass"))

		return &ClassificationResult{
			Label:                 LabelLegitimate,
			Confidence:            1.0,
			LegitimateProbability: 1.0,
			AnalyzedAt:            time.Now(),
			Source:                "whitelist",
		}, nil
	}

	return s.ClassifyText(ctx, email.Text())
}

func contentDigest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
