package config

import (
	"fmt"
	"time"
)

// VectorizerConfig holds the TF-IDF settings
type VectorizerConfig struct {
	MaxFeatures int
	MinDF       int
	MaxDF       float64
	Workers     int
}

// ClassifierConfig holds the Naive Bayes settings
type ClassifierConfig struct {
	Alpha float64
}

// TrainingConfig holds the train/test split settings
type TrainingConfig struct {
	TestFraction float64
	Seed         uint64
	DatasetPath  string
}

// StoreConfig selects and configures the model store
type StoreConfig struct {
	Type        string
	Path        string
	Key         string
	SQLitePath  string
	MySQLDSN    string
	RedisURL    string
	RedisPrefix string
}

// CacheConfig configures the verdict cache
type CacheConfig struct {
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
}

// ServerConfig configures the SMTP content filter
type ServerConfig struct {
	ListenAddress      string
	BlockPhishing      bool
	StatusHeader       string
	ScoreHeader        string
	ConfidenceHeader   string
	PostfixEnabled     bool
	PostfixAddress     string
	PostfixPort        int
	ModifySubject      bool
	SubjectPrefix      string
	WhitelistedDomains []string
}

// GetVectorizer returns the vectorizer configuration
func (c *Config) GetVectorizer() VectorizerConfig {
	return VectorizerConfig{
		MaxFeatures: c.GetInt("vectorizer.max_features"),
		MinDF:       c.GetInt("vectorizer.min_df"),
		MaxDF:       c.GetFloat64("vectorizer.max_df"),
		Workers:     c.GetInt("vectorizer.workers"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Alpha: c.GetFloat64("classifier.alpha"),
	}
}

// GetTraining returns the training configuration
func (c *Config) GetTraining() TrainingConfig {
	return TrainingConfig{
		TestFraction: c.GetFloat64("training.test_fraction"),
		Seed:         c.GetUint64("training.seed"),
		DatasetPath:  c.GetString("training.dataset_path"),
	}
}

// GetStore returns the model store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:        c.GetString("store.type"),
		Path:        c.GetString("store.path"),
		Key:         c.GetString("store.key"),
		SQLitePath:  c.GetString("store.sqlite_path"),
		MySQLDSN:    c.GetString("store.mysql_dsn"),
		RedisURL:    c.GetString("store.redis_url"),
		RedisPrefix: c.GetString("store.redis_prefix"),
	}
}

// ModelKey returns the key models are saved under. The file store uses the
// model path as its key.
func (c *Config) ModelKey() string {
	s := c.GetStore()
	if s.Type == "file" || s.Type == "" {
		return s.Path
	}
	return s.Key
}

// GetCache returns the verdict cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
	}, nil
}

// GetServer returns the SMTP filter configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress:      c.GetString("server.listen_address"),
		BlockPhishing:      c.GetBool("server.block_phishing"),
		StatusHeader:       c.GetString("server.headers.status"),
		ScoreHeader:        c.GetString("server.headers.score"),
		ConfidenceHeader:   c.GetString("server.headers.confidence"),
		PostfixEnabled:     c.GetBool("server.postfix.enabled"),
		PostfixAddress:     c.GetString("server.postfix.address"),
		PostfixPort:        c.GetInt("server.postfix.port"),
		ModifySubject:      c.GetBool("server.modify_subject"),
		SubjectPrefix:      c.GetString("server.subject_prefix"),
		WhitelistedDomains: c.GetStringSlice("server.whitelisted_domains"),
	}
}

// PostfixRelay returns the host:port messages are relayed to
func (s ServerConfig) PostfixRelay() string {
	return fmt.Sprintf("%s:%d", s.PostfixAddress, s.PostfixPort)
}
