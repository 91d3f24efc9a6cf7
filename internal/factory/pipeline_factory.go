package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/pipeline"
	"github.com/mikey/phishing-filter/internal/vectorizer"
)

// PipelineFactory creates training pipelines from configuration
type PipelineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPipelineFactory creates a new pipeline factory
func NewPipelineFactory(cfg *config.Config, logger *zap.Logger) *PipelineFactory {
	return &PipelineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// PipelineConfig maps the configuration sections onto pipeline parameters
func (f *PipelineFactory) PipelineConfig() pipeline.Config {
	vec := f.cfg.GetVectorizer()
	training := f.cfg.GetTraining()

	return pipeline.Config{
		Vectorizer: vectorizer.Config{
			MaxFeatures: vec.MaxFeatures,
			MinDF:       vec.MinDF,
			MaxDF:       vec.MaxDF,
			Workers:     vec.Workers,
		},
		Alpha:        f.cfg.GetClassifier().Alpha,
		TestFraction: training.TestFraction,
		Seed:         training.Seed,
	}
}

// CreatePipeline creates a pipeline, rejecting invalid parameters up front
func (f *PipelineFactory) CreatePipeline() (*pipeline.Pipeline, error) {
	pcfg := f.PipelineConfig()
	if err := pcfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}
	return pipeline.New(pcfg, f.logger), nil
}
