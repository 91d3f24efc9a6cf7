package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/di"
)

var flags di.CLIFlags

var banner = strings.Repeat("=", 50)

var rootCmd = &cobra.Command{
	Use:   "phishing-filter",
	Short: "Phishing email detection with TF-IDF and Naive Bayes",
	Long: `phishing-filter trains a multinomial Naive Bayes model on TF-IDF features
of labeled emails and uses it to classify new messages as PHISHING or
LEGITIMATE, from the command line or as a Postfix content filter.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&flags.ModelPath, "model", "m", "", "Model file path (file store)")
	rootCmd.PersistentFlags().StringVar(&flags.StoreType, "store", "", "Model store type (file, sqlite, mysql, redis)")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(serveCmd)
}

// closeResources stops stores and caches that hold connections or goroutines
func closeResources(logger *zap.Logger, repo core.ModelRepository, cache core.CacheRepository) {
	if stopper, ok := repo.(interface{ Stop() }); ok {
		stopper.Stop()
	}
	if stopper, ok := cache.(interface{ Stop() }); ok {
		stopper.Stop()
	}
	_ = logger.Sync()
}
