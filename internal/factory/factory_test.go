package factory

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/mikey/phishing-filter/internal/adapters/cache"
	"github.com/mikey/phishing-filter/internal/adapters/filter"
	"github.com/mikey/phishing-filter/internal/adapters/store"
	"github.com/mikey/phishing-filter/internal/config"
)

func newConfig() *config.Config {
	return config.NewFromViper(config.NewEmptyViper())
}

func TestPipelineFactory(t *testing.T) {
	cfg := newConfig()
	cfg.Set("training.seed", 7)
	cfg.Set("vectorizer.max_features", 100)

	f := NewPipelineFactory(cfg, zaptest.NewLogger(t))
	pcfg := f.PipelineConfig()
	if pcfg.Seed != 7 || pcfg.Vectorizer.MaxFeatures != 100 || pcfg.Alpha != 0.1 {
		t.Errorf("PipelineConfig = %+v", pcfg)
	}
	if _, err := f.CreatePipeline(); err != nil {
		t.Errorf("CreatePipeline failed: %v", err)
	}

	cfg.Set("classifier.alpha", 0)
	if _, err := f.CreatePipeline(); err == nil {
		t.Error("expected an error for alpha 0")
	}
}

func TestStoreFactory(t *testing.T) {
	cfg := newConfig()
	f := NewStoreFactory(cfg, zaptest.NewLogger(t))

	repo, err := f.CreateModelRepository()
	if err != nil {
		t.Fatalf("CreateModelRepository failed: %v", err)
	}
	if _, ok := repo.(*store.FileStore); !ok {
		t.Errorf("default store is %T, want *store.FileStore", repo)
	}

	cfg.Set("store.type", "sqlite")
	cfg.Set("store.sqlite_path", filepath.Join(t.TempDir(), "db", "models.db"))
	if repo, err := f.CreateModelRepository(); err != nil {
		t.Logf("sqlite unavailable: %v", err)
	} else {
		sqlite, ok := repo.(*store.SQLiteStore)
		if !ok {
			t.Errorf("sqlite store is %T", repo)
		} else {
			sqlite.Stop()
		}
	}

	cfg.Set("store.type", "tape")
	if _, err := f.CreateModelRepository(); err == nil {
		t.Error("expected an error for an unsupported store type")
	}
}

func TestCacheFactory(t *testing.T) {
	cfg := newConfig()
	f := NewCacheFactory(cfg, zaptest.NewLogger(t))

	repo, err := f.CreateCacheRepository()
	if err != nil {
		t.Fatalf("CreateCacheRepository failed: %v", err)
	}
	mem, ok := repo.(*cache.MemoryCache)
	if !ok {
		t.Fatalf("cache is %T, want *cache.MemoryCache", repo)
	}
	mem.Stop()

	cfg.Set("cache.enabled", false)
	if f.IsCacheEnabled() {
		t.Error("IsCacheEnabled = true after disabling")
	}
	repo, err = f.CreateCacheRepository()
	if err != nil || repo != nil {
		t.Errorf("disabled cache = %v, %v; want nil, nil", repo, err)
	}
}

func TestTextProcessorFactory(t *testing.T) {
	cfg := newConfig()
	cfg.Set("input.max_size", 5)

	tp := NewTextProcessorFactory(cfg, zaptest.NewLogger(t)).CreateTextProcessor()
	if got := tp.Prepare("phishing"); got != "phish" {
		t.Errorf("Prepare = %q, want phish", got)
	}
}

func TestFilterFactory(t *testing.T) {
	cfg := newConfig()
	f := NewFilterFactory(cfg, zaptest.NewLogger(t), nil)

	emailFilter, err := f.CreateEmailFilter()
	if err != nil {
		t.Fatalf("CreateEmailFilter failed: %v", err)
	}
	if _, ok := emailFilter.(*filter.PostfixFilter); !ok {
		t.Errorf("default filter is %T, want *filter.PostfixFilter", emailFilter)
	}

	cfg.Set("server.filter_type", "cli")
	emailFilter, err = f.CreateEmailFilter()
	if err != nil {
		t.Fatalf("CreateEmailFilter failed: %v", err)
	}
	if _, ok := emailFilter.(*filter.CliFilter); !ok {
		t.Errorf("cli filter is %T, want *filter.CliFilter", emailFilter)
	}

	cfg.Set("server.filter_type", "milter")
	emailFilter, err = f.CreateEmailFilter()
	if err != nil {
		t.Fatalf("CreateEmailFilter failed: %v", err)
	}
	if _, ok := emailFilter.(*filter.MilterFilter); !ok {
		t.Errorf("milter filter is %T, want *filter.MilterFilter", emailFilter)
	}

	cfg.Set("server.filter_type", "lmtp")
	if _, err := f.CreateEmailFilter(); err == nil {
		t.Error("expected an error for an unsupported filter type")
	}
}
