package config

import "time"

// Chunk Planning Constants
const (
	// ChunkSlice is the regular analysis segment length
	ChunkSlice = 30 * time.Minute

	// ChunkMergeThreshold folds any remainder at or below this length into a single final segment
	ChunkMergeThreshold = 45 * time.Minute
)

// Provider Protocol Constants
const (
	// PollInterval is the wait between remote file readiness checks
	PollInterval = 2 * time.Second

	// PollAttempts bounds the readiness checks for one uploaded chunk
	PollAttempts = 60

	// RetryFactor multiplies the pool size to bound attempts per chunk
	RetryFactor = 3

	// AnalysisTemperature keeps moment selection mostly deterministic
	AnalysisTemperature = 0.4

	// ChunkMIMEType is the container type of every uploaded chunk
	ChunkMIMEType = "video/mp4"
)

// Model Constants
const (
	GeminiFastModel   = "gemini-3-flash-preview"
	GeminiProModel    = "gemini-3-pro-preview"
	OpenRouterModel   = "google/gemini-2.5-flash"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OpenRouterReferer = "https://github.com/shortsmith/shortsmith"
	OpenRouterTitle   = "shortsmith"
)

// Moment Constraints
const (
	// MinMomentLength is the shortest clip the analysis should propose
	MinMomentLength = 10 * time.Second

	// MaxMomentLength is the longest clip the analysis should propose
	MaxMomentLength = 90 * time.Second
)

// Directory and File Constants
const (
	// OutputDir is the default directory for sessions, reports and shorts
	OutputDir = "output"

	// SessionFile is the resumable session checkpoint inside OutputDir
	SessionFile = "temp.json"

	// SessionDBFile is the sqlite session database inside OutputDir
	SessionDBFile = "sessions.db"

	// LowResFile is the analysis copy inside the working directory
	LowResFile = "low_res.mp4"

	// HighResFile is the extraction copy inside the working directory
	HighResFile = "high_res.mp4"

	// ChunksDir holds the split chunk files inside the working directory
	ChunksDir = "chunks"

	// MomentsTextFile and MomentsWorkbook are the human-readable reports
	MomentsTextFile = "moments.txt"
	MomentsWorkbook = "moments.xlsx"
)

// YouTube Constants
const (
	// YouTubeCategoryID for Gaming
	YouTubeCategoryID = "20"

	// YouTubePrivacyStatus sets video visibility
	YouTubePrivacyStatus = "private"

	// MaxTitleLength is the maximum character length for video titles
	MaxTitleLength = 100
)

// Publish Ledger Constants
const (
	// PublishedBloomKey is the RedisBloom filter of already published clips
	PublishedBloomKey = "shortsmith:published"

	// PublishedTTL keeps the filter alive this long after the last upload
	PublishedTTL = 30 * 24 * time.Hour

	PublishedBloomCapacity  = 100000
	PublishedBloomErrorRate = 0.001
)

// Status Constants
const (
	// MaxStatusLogs is the ring buffer size for run status lines
	MaxStatusLogs = 50

	// StatusPollInterval is how often the TUI refreshes run status
	StatusPollInterval = 500 * time.Millisecond
)
