package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.StoreDir == "" {
		cfg.Storage.StoreDir = "./data/store"
	}
	if cfg.Storage.FeedbackLogPath == "" {
		cfg.Storage.FeedbackLogPath = "./data/feedback.log"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/feedback.db"
	}
	if cfg.Storage.ArchiveDir == "" {
		cfg.Storage.ArchiveDir = "./data/archive"
	}
	if cfg.Corpus.DataDir == "" {
		cfg.Corpus.DataDir = "./data/raw"
	}
	if cfg.Corpus.Extensions == nil {
		cfg.Corpus.Extensions = []string{".txt"}
	}
	if cfg.Corpus.ChunkSize == 0 {
		cfg.Corpus.ChunkSize = 300
	}
	if cfg.Embedding.Type == "" {
		cfg.Embedding.Type = "mock"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Concurrency == 0 {
		cfg.Embedding.Concurrency = 4
	}
	if cfg.Embedding.OpenAI.BaseURL == "" {
		cfg.Embedding.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.OpenAI.APIKeyEnv == "" {
		cfg.Embedding.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.OpenAI.Model == "" {
		cfg.Embedding.OpenAI.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.OpenAI.TimeoutSecs == 0 {
		cfg.Embedding.OpenAI.TimeoutSecs = 30
	}
	if cfg.Retrieval.DefaultK == 0 {
		cfg.Retrieval.DefaultK = 3
	}
	if cfg.Retrieval.MaxK == 0 {
		cfg.Retrieval.MaxK = 100
	}
	if cfg.Feedback.LockTimeoutMs == 0 {
		cfg.Feedback.LockTimeoutMs = 2000
	}
	if cfg.Feedback.LockRetryMs == 0 {
		cfg.Feedback.LockRetryMs = 10
	}
	if cfg.Feedback.ArchiveCodec == "" {
		cfg.Feedback.ArchiveCodec = "zstd"
	}
	// Sync defaults to true when unset (nil).
	if cfg.Feedback.Sync == nil {
		t := true
		cfg.Feedback.Sync = &t
	}
	if cfg.Publish.Prefix == "" {
		cfg.Publish.Prefix = "ragfeed"
	}
	if cfg.Publish.AccessKeyEnv == "" {
		cfg.Publish.AccessKeyEnv = "RAGFEED_PUBLISH_ACCESS_KEY"
	}
	if cfg.Publish.SecretKeyEnv == "" {
		cfg.Publish.SecretKeyEnv = "RAGFEED_PUBLISH_SECRET_KEY"
	}
}
