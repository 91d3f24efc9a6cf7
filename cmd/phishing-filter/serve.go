package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/di"
	"github.com/mikey/phishing-filter/internal/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a Postfix content filter",
	Long: `Listen for SMTP connections from Postfix, classify each message, add
X-Phishing-* headers and relay it back to Postfix. Settings come from the
configuration file and PHISH_FILTER_* environment variables; --model and
--store override the model location.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := di.BuildContainer(&flags)
		if err != nil {
			return fmt.Errorf("failed to build dependency container: %w", err)
		}

		return container.Invoke(func(
			logger *zap.Logger,
			service *core.PhishingDetectorService,
			emailFilter ports.EmailFilter,
			repo core.ModelRepository,
			cache core.CacheRepository,
		) error {
			defer closeResources(logger, repo, cache)
			ctx := cmd.Context()

			// Fail fast when no model has been trained
			model, err := service.Model(ctx)
			if err != nil {
				return err
			}
			logger.Info("Serving with model",
				zap.Int("vocabulary_size", model.VocabularySize()),
				zap.Time("trained_at", model.TrainedAt))

			if err := emailFilter.Start(); err != nil {
				return fmt.Errorf("failed to start filter: %w", err)
			}

			<-ctx.Done()
			logger.Info("Shutting down...")

			if err := emailFilter.Stop(); err != nil {
				logger.Error("Failed to stop filter", zap.Error(err))
			}

			logger.Info("Shutdown complete")
			return nil
		})
	},
}
