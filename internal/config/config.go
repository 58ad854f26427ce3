// Package config provides configuration loading and structs for the ragfeed service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFeedbackWeight is the blend weight applied to feedback scores when none is configured.
const DefaultFeedbackWeight = 0.15

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Publish   PublishConfig   `yaml:"publish"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the vector store, feedback log and snapshot database.
type StorageConfig struct {
	StoreDir        string `yaml:"store_dir"`
	FeedbackLogPath string `yaml:"feedback_log_path"`
	DatabasePath    string `yaml:"database_path"`
	ArchiveDir      string `yaml:"archive_dir"`
}

// CorpusConfig holds document pipeline settings.
type CorpusConfig struct {
	DataDir      string   `yaml:"data_dir"`
	Extensions   []string `yaml:"extensions"`
	ChunkSize    int      `yaml:"chunk_size"`    // words per chunk
	ChunkOverlap int      `yaml:"chunk_overlap"` // words shared by consecutive chunks
	Watch        bool     `yaml:"watch"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Type        string       `yaml:"type"` // mock or openai
	Dimensions  int          `yaml:"dimensions"`
	CacheSize   int          `yaml:"cache_size"`
	CachePath   string       `yaml:"cache_path"` // bbolt file; empty disables the persistent tier
	Concurrency int          `yaml:"concurrency"`
	OpenAI      OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Timeout returns the request timeout as a duration.
func (o *OpenAIConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSecs) * time.Second
}

// APIKey reads the API key from the configured environment variable.
func (o *OpenAIConfig) APIKey() string {
	if o.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(o.APIKeyEnv)
}

// RetrievalConfig holds ranking settings.
type RetrievalConfig struct {
	DefaultK       int      `yaml:"default_k"`
	MaxK           int      `yaml:"max_k"`
	FeedbackWeight *float64 `yaml:"feedback_weight"`
}

// FeedbackWeightOrDefault returns the configured weight; defaults to DefaultFeedbackWeight when unset.
// An explicit 0 disables feedback blending.
func (r *RetrievalConfig) FeedbackWeightOrDefault() float64 {
	if r.FeedbackWeight != nil {
		return *r.FeedbackWeight
	}
	return DefaultFeedbackWeight
}

// FeedbackConfig holds feedback log and compaction settings.
type FeedbackConfig struct {
	LockTimeoutMs    int    `yaml:"lock_timeout_ms"`
	LockRetryMs      int    `yaml:"lock_retry_ms"`
	Sync             *bool  `yaml:"sync"`
	CompactThreshold int    `yaml:"compact_threshold"` // 0 disables auto-compaction
	ArchiveCodec     string `yaml:"archive_codec"`     // zstd, lz4 or none
}

// LockTimeout returns the maximum time to wait for the log lock.
func (f *FeedbackConfig) LockTimeout() time.Duration {
	return time.Duration(f.LockTimeoutMs) * time.Millisecond
}

// LockRetryInterval returns the pause between lock attempts.
func (f *FeedbackConfig) LockRetryInterval() time.Duration {
	return time.Duration(f.LockRetryMs) * time.Millisecond
}

// SyncOrDefault returns whether appends are fsynced; defaults to true when unset.
func (f *FeedbackConfig) SyncOrDefault() bool {
	if f.Sync != nil {
		return *f.Sync
	}
	return true
}

// PublishConfig configures artifact upload to object storage.
type PublishConfig struct {
	Type         string `yaml:"type"` // "", minio or s3
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	UseSSL       bool   `yaml:"use_ssl"`
	OnBuild      bool   `yaml:"on_build"`
}

// Enabled reports whether a publisher is configured.
func (p *PublishConfig) Enabled() bool {
	return p.Type != ""
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.expandPaths(filepath.Dir(path))
	return &cfg, nil
}

// Default returns a config with defaults applied and paths resolved against dir.
func Default(dir string) *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.expandPaths(dir)
	return cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Embedding.Type {
	case "mock", "openai":
	default:
		return fmt.Errorf("unknown embedding type: %q", c.Embedding.Type)
	}
	switch c.Feedback.ArchiveCodec {
	case "zstd", "lz4", "none":
	default:
		return fmt.Errorf("unknown archive codec: %q", c.Feedback.ArchiveCodec)
	}
	switch c.Publish.Type {
	case "", "minio", "s3":
	default:
		return fmt.Errorf("unknown publish type: %q", c.Publish.Type)
	}
	if w := c.Retrieval.FeedbackWeightOrDefault(); w < 0 {
		return fmt.Errorf("feedback_weight must be non-negative, got %v", w)
	}
	if c.Corpus.ChunkOverlap >= c.Corpus.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Corpus.ChunkOverlap, c.Corpus.ChunkSize)
	}
	return nil
}

func (c *Config) expandPaths(configDir string) {
	c.Storage.StoreDir = expandPath(c.Storage.StoreDir, configDir)
	c.Storage.FeedbackLogPath = expandPath(c.Storage.FeedbackLogPath, configDir)
	c.Storage.DatabasePath = expandPath(c.Storage.DatabasePath, configDir)
	c.Storage.ArchiveDir = expandPath(c.Storage.ArchiveDir, configDir)
	c.Corpus.DataDir = expandPath(c.Corpus.DataDir, configDir)
	if c.Embedding.CachePath != "" {
		c.Embedding.CachePath = expandPath(c.Embedding.CachePath, configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
