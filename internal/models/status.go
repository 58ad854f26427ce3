package models

// Status describes the store, the feedback state and disk usage.
type Status struct {
	Store       StoreStatus    `json:"store"`
	Feedback    FeedbackStatus `json:"feedback"`
	Compactions []*Compaction  `json:"compactions,omitempty"`
	Disk        *DiskUsage     `json:"disk_usage,omitempty"`
	Config      *StatusConfig  `json:"config,omitempty"`
}

// StoreStatus describes the live vector store. Error is set when it could not be loaded.
type StoreStatus struct {
	Location   string   `json:"location"`
	Generation string   `json:"generation,omitempty"`
	Records    int      `json:"records"`
	Dimension  int      `json:"dimension"`
	Categories []string `json:"categories,omitempty"`
	Sources    int      `json:"sources"`
	Error      string   `json:"error,omitempty"`
}

// FeedbackStatus describes the live feedback log and the aggregated scores.
type FeedbackStatus struct {
	LogPath      string `json:"log_path"`
	LogEvents    int    `json:"log_events"`
	SkippedLines int    `json:"skipped_lines"`
	ScoredChunks int    `json:"scored_chunks"`
	Error        string `json:"error,omitempty"`
}

// DiskUsage is the size in bytes of each on-disk component.
type DiskUsage struct {
	Store    int64 `json:"store"`
	Feedback int64 `json:"feedback"`
	Database int64 `json:"database"`
	Archive  int64 `json:"archive"`
	Total    int64 `json:"total"`
}

// StatusConfig echoes the settings that affect ranking.
type StatusConfig struct {
	EmbeddingType  string  `json:"embedding_type"`
	Dimensions     int     `json:"dimensions"`
	ChunkSize      int     `json:"chunk_size"`
	DefaultK       int     `json:"default_k"`
	FeedbackWeight float64 `json:"feedback_weight"`
	DataDir        string  `json:"data_dir"`
}
