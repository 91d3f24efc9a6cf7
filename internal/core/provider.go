package core

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// loadTimeout bounds a shared load, which outlives the caller that started it
const loadTimeout = 30 * time.Second

// ModelProvider lazily loads the process-wide model on first use. Concurrent
// first calls share one load; a failed load is not remembered so a later call
// can pick up a model trained in the meantime. Once published the model is
// never replaced.
type ModelProvider struct {
	repo   ModelRepository
	key    string
	logger *zap.Logger

	model atomic.Pointer[TrainedModel]
	group singleflight.Group
}

// NewModelProvider creates a provider reading the model stored under key
func NewModelProvider(repo ModelRepository, key string, logger *zap.Logger) *ModelProvider {
	return &ModelProvider{
		repo:   repo,
		key:    key,
		logger: logger,
	}
}

// Get returns the loaded model, loading it if needed. Cancelling ctx abandons
// the wait but not a load other callers share.
func (p *ModelProvider) Get(ctx context.Context) (*TrainedModel, error) {
	if m := p.model.Load(); m != nil {
		return m, nil
	}

	ch := p.group.DoChan(p.key, func() (interface{}, error) {
		if m := p.model.Load(); m != nil {
			return m, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		m, err := p.repo.Load(loadCtx, p.key)
		if err != nil {
			return nil, err
		}
		p.model.CompareAndSwap(nil, m)
		p.logger.Info("Model loaded",
			zap.String("key", p.key),
			zap.Int("vocabulary_size", m.VocabularySize()))
		return p.model.Load(), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			p.logger.Debug("Shared in-flight model load", zap.String("key", p.key))
		}
		return res.Val.(*TrainedModel), nil
	}
}

// Publish installs a freshly trained model if none has been loaded yet and
// returns the model now being served.
func (p *ModelProvider) Publish(m *TrainedModel) *TrainedModel {
	p.model.CompareAndSwap(nil, m)
	return p.model.Load()
}
