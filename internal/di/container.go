package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/adapters/dataset"
	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/factory"
	"github.com/mikey/phishing-filter/internal/logging"
	"github.com/mikey/phishing-filter/internal/pipeline"
	"github.com/mikey/phishing-filter/internal/ports"
	"github.com/mikey/phishing-filter/internal/textproc"
	"github.com/mikey/phishing-filter/internal/whitelist"
)

// BuildContainer creates the container for the long-running filter service.
// Configuration is read from flags.ConfigFile, or the standard locations when
// empty; model store flags override it.
func BuildContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(func() (*config.Config, error) {
		cfg, err := config.New(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		applyStoreFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := registerComponents(container); err != nil {
		return nil, err
	}

	return container, nil
}

// registerComponents provides everything downstream of config and logger
func registerComponents(container *dig.Container) error {
	// Factories
	for _, constructor := range []interface{}{
		factory.NewStoreFactory,
		factory.NewCacheFactory,
		factory.NewPipelineFactory,
		factory.NewTextProcessorFactory,
		factory.NewFilterFactory,
	} {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	if err := container.Provide(func(logger *zap.Logger) core.DatasetLoader {
		return dataset.NewCSVLoader(logger)
	}); err != nil {
		return err
	}

	if err := container.Provide(func(f *factory.StoreFactory) (core.ModelRepository, error) {
		return f.CreateModelRepository()
	}); err != nil {
		return err
	}

	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return err
	}

	if err := container.Provide(func(f *factory.PipelineFactory) (*pipeline.Pipeline, error) {
		return f.CreatePipeline()
	}); err != nil {
		return err
	}

	if err := container.Provide(func(f *factory.TextProcessorFactory) *textproc.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	if err := container.Provide(func(repo core.ModelRepository, f *factory.StoreFactory, logger *zap.Logger) *core.ModelProvider {
		return core.NewModelProvider(repo, f.ModelKey(), logger)
	}); err != nil {
		return err
	}

	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		return whitelist.NewChecker(cfg.GetServer().WhitelistedDomains, logger)
	}); err != nil {
		return err
	}

	if err := container.Provide(func(
		p *pipeline.Pipeline,
		repo core.ModelRepository,
		provider *core.ModelProvider,
		cache core.CacheRepository,
		tp *textproc.TextProcessor,
		checker *whitelist.Checker,
		cf *factory.CacheFactory,
		sf *factory.StoreFactory,
		logger *zap.Logger,
	) (*core.PhishingDetectorService, error) {
		ttl, err := cf.GetCacheTTL()
		if err != nil {
			return nil, err
		}
		return core.NewPhishingDetectorService(p, p, repo, provider, cache, tp, logger, core.ServiceOptions{
			ModelKey:     sf.ModelKey(),
			CacheEnabled: cf.IsCacheEnabled(),
			CacheTTL:     ttl,
			Whitelist:    checker,
		}), nil
	}); err != nil {
		return err
	}

	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return err
	}

	return nil
}
