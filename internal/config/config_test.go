package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	vec := cfg.GetVectorizer()
	if vec.MaxFeatures != 5000 || vec.MinDF != 1 || vec.MaxDF != 0.95 {
		t.Errorf("vectorizer defaults = %+v", vec)
	}
	if cfg.GetClassifier().Alpha != 0.1 {
		t.Errorf("alpha = %v, want 0.1", cfg.GetClassifier().Alpha)
	}
	training := cfg.GetTraining()
	if training.TestFraction != 0.2 || training.Seed != 42 {
		t.Errorf("training defaults = %+v", training)
	}
	if cfg.ModelKey() != "phishing_model.json" {
		t.Errorf("ModelKey = %q, want the model path", cfg.ModelKey())
	}

	cache, err := cfg.GetCache()
	if err != nil {
		t.Fatalf("GetCache failed: %v", err)
	}
	if !cache.Enabled || cache.TTL != time.Hour || cache.CleanupFrequency != 10*time.Minute {
		t.Errorf("cache defaults = %+v", cache)
	}

	server := cfg.GetServer()
	if server.PostfixRelay() != "localhost:10026" {
		t.Errorf("PostfixRelay = %q", server.PostfixRelay())
	}
	if server.StatusHeader != "X-Phishing-Status" || server.BlockPhishing {
		t.Errorf("server defaults = %+v", server)
	}
}

func TestModelKeyForKeyedStores(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("store.type", "redis")
	cfg.Set("store.key", "prod")

	if cfg.ModelKey() != "prod" {
		t.Errorf("ModelKey = %q, want prod", cfg.ModelKey())
	}
}

func TestInvalidDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("cache.ttl", "forever")

	if _, err := cfg.GetCache(); err == nil {
		t.Error("expected an error for an invalid TTL")
	}
}

func TestNewReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
classifier:
  alpha: 0.5
store:
  type: sqlite
  key: staging
server:
  block_phishing: true
  whitelisted_domains:
    - example.com
    - trusted.org
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if cfg.GetClassifier().Alpha != 0.5 {
		t.Errorf("alpha = %v, want 0.5", cfg.GetClassifier().Alpha)
	}
	if cfg.ModelKey() != "staging" {
		t.Errorf("ModelKey = %q, want staging", cfg.ModelKey())
	}
	server := cfg.GetServer()
	if !server.BlockPhishing || len(server.WhitelistedDomains) != 2 {
		t.Errorf("server = %+v", server)
	}
	// Unset keys keep their defaults
	if cfg.GetVectorizer().MaxFeatures != 5000 {
		t.Errorf("max_features = %d, want default 5000", cfg.GetVectorizer().MaxFeatures)
	}
}

func TestNewMissingExplicitFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("PHISH_FILTER_STORE_TYPE", "mysql")
	t.Setenv("PHISH_FILTER_CLASSIFIER_ALPHA", "2.5")

	cfg, err := New("")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if cfg.GetStore().Type != "mysql" {
		t.Errorf("store type = %q, want mysql", cfg.GetStore().Type)
	}
	if cfg.GetClassifier().Alpha != 2.5 {
		t.Errorf("alpha = %v, want 2.5", cfg.GetClassifier().Alpha)
	}
}
