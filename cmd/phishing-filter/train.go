package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/adapters/dataset"
	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/di"
	"github.com/mikey/phishing-filter/internal/pipeline"
)

var trainCmd = &cobra.Command{
	Use:   "train [dataset_path]",
	Short: "Train and save a phishing detection model",
	Long: `Train a model from a CSV file with "text" and "label" columns (1 = phishing,
0 = legitimate). When the file does not exist the built-in sample corpus of
20 phishing and 20 legitimate emails is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := di.BuildCLIContainer(&flags)
		if err != nil {
			return fmt.Errorf("failed to build dependency container: %w", err)
		}

		return container.Invoke(func(
			cfg *config.Config,
			logger *zap.Logger,
			loader core.DatasetLoader,
			service *core.PhishingDetectorService,
			repo core.ModelRepository,
			cache core.CacheRepository,
		) error {
			defer closeResources(logger, repo, cache)

			path := cfg.GetTraining().DatasetPath
			if len(args) > 0 {
				path = args[0]
			}
			return runTrain(cmd.Context(), cmd.OutOrStdout(), path, cfg.ModelKey(), loader, service)
		})
	},
}

func runTrain(ctx context.Context, out io.Writer, path, modelKey string, loader core.DatasetLoader, service *core.PhishingDetectorService) error {
	fmt.Fprintln(out, banner)
	fmt.Fprintln(out, "PHISHING EMAIL DETECTION - MODEL TRAINING")
	fmt.Fprintln(out, banner)

	ds, err := loadDataset(ctx, out, path, loader)
	if err != nil {
		return err
	}

	counts := ds.ClassCounts()
	fmt.Fprintf(out, "\nDataset size: %d emails\n", ds.Len())
	fmt.Fprintf(out, "Phishing emails: %d\n", counts[core.ClassPhishing])
	fmt.Fprintf(out, "Legitimate emails: %d\n", counts[core.ClassLegitimate])

	fmt.Fprintln(out, "Training model...")
	model, metrics, err := service.Train(ctx, ds)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Fprintf(out, "\n%s\nMODEL EVALUATION\n%s\n", banner, banner)
	pipeline.PrintMetrics(out, metrics)

	fmt.Fprintf(out, "\nVocabulary size: %d terms\n", model.VocabularySize())
	fmt.Fprintf(out, "Model saved to %s\n", modelKey)
	fmt.Fprintf(out, "\n%s\nTraining complete!\n%s\n", banner, banner)
	return nil
}

// loadDataset reads the CSV at path, or falls back to the sample corpus when
// no file exists there
func loadDataset(ctx context.Context, out io.Writer, path string, loader core.DatasetLoader) (*core.Dataset, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(out, "Loading dataset from %s\n", path)
			ds, err := loader.Load(ctx, path)
			if err != nil {
				return nil, fmt.Errorf("failed to load dataset: %w", err)
			}
			return ds, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to access dataset: %w", err)
		}
	}

	fmt.Fprintln(out, "Using sample dataset for training...")
	return dataset.Sample(), nil
}
