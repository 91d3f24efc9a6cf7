package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/logging"
)

// CLIFlags contains the persistent command line flags
type CLIFlags struct {
	ConfigFile string
	ModelPath  string
	StoreType  string
	Verbose    bool
	JSONLog    bool
}

// BuildCLIContainer creates a container for one-shot CLI commands. Flags
// override configuration values, and the verdict cache is disabled.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.New(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := registerComponents(container); err != nil {
		return nil, err
	}

	return container, nil
}

func applyFlags(cfg *config.Config, flags *CLIFlags) {
	cfg.Set("server.filter_type", "cli")
	cfg.Set("cli.verbose", flags.Verbose)
	cfg.Set("cache.enabled", false)
	applyStoreFlags(cfg, flags)
}

func applyStoreFlags(cfg *config.Config, flags *CLIFlags) {
	if flags.ModelPath != "" {
		cfg.Set("store.path", flags.ModelPath)
	}
	if flags.StoreType != "" {
		cfg.Set("store.type", flags.StoreType)
	}
}
