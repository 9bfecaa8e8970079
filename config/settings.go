package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"shortsmith/keypool"

	"github.com/joho/godotenv"
)

// Provider names accepted by PROVIDER.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// ModelPresets maps friendly names to Gemini model ids.
var ModelPresets = map[string]string{
	"fast": GeminiFastModel,
	"pro":  GeminiProModel,
}

// Session backends accepted by SESSION_BACKEND.
const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendSQLite = "sqlite"
)

// Settings is the runtime configuration assembled from the environment.
type Settings struct {
	Provider        string
	GeminiModel     string
	OpenRouterModel string
	GeminiKeys      []keypool.Credential
	OpenRouterKeys  []keypool.Credential

	OutputDir     string
	ExtractShorts bool
	UseCookies    bool
	CookiesPath   string
	UseGPU        bool
	HighResFormat string

	SessionBackend string
	RedisAddr      string
	RedisPass      string
	RedisDB        int

	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3Profile      string
	S3UsePathStyle bool
	S3Endpoint     string

	YouTubeServiceAccount string
	DriveServiceAccount   string
	DriveFolderID         string
	DedupePublished       bool

	KafkaBrokers      []string
	KafkaStatusTopic  string
	KafkaMomentsTopic string
	KafkaJobsTopic    string
	KafkaGroupID      string

	Port string
	// ResumeSchedule is a cron spec for retrying a saved session; empty disables it.
	ResumeSchedule string
}

// Load reads .env (if present) and the process environment.
func Load() (*Settings, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds Settings from an environment lookup function.
func FromEnv(getenv func(string) string) (*Settings, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	s := &Settings{
		Provider:        strings.ToLower(get("PROVIDER", ProviderGemini)),
		GeminiModel:     get("GEMINI_MODEL", GeminiFastModel),
		OpenRouterModel: get("OPENROUTER_MODEL", OpenRouterModel),
		GeminiKeys:      ParseCredentials(getenv("GEMINI_API_KEYS")),
		OpenRouterKeys:  ParseCredentials(getenv("OPENROUTER_API_KEYS")),

		OutputDir:     get("OUTPUT_DIR", OutputDir),
		ExtractShorts: parseBool(getenv("EXTRACT_SHORTS"), false),
		UseCookies:    parseBool(getenv("USE_COOKIES"), false),
		CookiesPath:   get("COOKIES_PATH", "cookies.txt"),
		UseGPU:        parseBool(getenv("USE_GPU"), false),
		HighResFormat: get("HIGH_RES_FORMAT", ""),

		SessionBackend: strings.ToLower(get("SESSION_BACKEND", SessionBackendFile)),
		RedisAddr:      get("REDIS_ADDR", "localhost:6379"),
		RedisPass:      getenv("REDIS_PASS"),

		S3Bucket:       get("S3_BUCKET", ""),
		S3Region:       get("S3_REGION", ""),
		S3Profile:      get("S3_PROFILE", ""),
		S3UsePathStyle: parseBool(getenv("S3_USE_PATH_STYLE"), false),
		S3Endpoint:     get("S3_ENDPOINT", ""),

		YouTubeServiceAccount: get("YOUTUBE_SERVICE_ACCOUNT", ""),
		DriveServiceAccount:   get("DRIVE_SERVICE_ACCOUNT", ""),
		DriveFolderID:         get("DRIVE_FOLDER_ID", ""),
		DedupePublished:       parseBool(getenv("DEDUPE_PUBLISHED"), false),

		KafkaStatusTopic:  get("KAFKA_TOPIC_STATUS", "shorts.status"),
		KafkaMomentsTopic: get("KAFKA_TOPIC_MOMENTS", "shorts.moments"),
		KafkaJobsTopic:    get("KAFKA_TOPIC_JOBS", "shorts.jobs"),
		KafkaGroupID:      get("KAFKA_GROUP_ID", "shortsmith"),

		Port:           get("PORT", "8080"),
		ResumeSchedule: get("RESUME_SCHEDULE", ""),
	}

	if preset := get("MODEL_PRESET", ""); preset != "" && getenv("GEMINI_MODEL") == "" {
		if model, ok := ModelPresets[preset]; ok {
			s.GeminiModel = model
		} else {
			s.GeminiModel = preset
		}
	}

	if prefix := get("S3_PREFIX", ""); prefix != "" {
		s.S3Prefix = strings.Trim(prefix, "/") + "/"
	}

	if v := getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		s.RedisDB = db
	}

	if brokers := getenv("KAFKA_BOOTSTRAP_SERVERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				s.KafkaBrokers = append(s.KafkaBrokers, b)
			}
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that the selected provider can actually run.
func (s *Settings) Validate() error {
	switch s.Provider {
	case ProviderGemini:
		if len(s.GeminiKeys) == 0 {
			return errors.New("GEMINI_API_KEYS is empty; at least one key is required")
		}
	case ProviderOpenRouter:
		if len(s.OpenRouterKeys) == 0 {
			return errors.New("OPENROUTER_API_KEYS is empty; at least one key is required")
		}
	default:
		return fmt.Errorf("unknown PROVIDER %q (want %s or %s)", s.Provider, ProviderGemini, ProviderOpenRouter)
	}

	switch s.SessionBackend {
	case SessionBackendFile, SessionBackendRedis, SessionBackendSQLite:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", s.SessionBackend)
	}
	return nil
}

// Credentials returns the key list of the selected provider.
func (s *Settings) Credentials() []keypool.Credential {
	if s.Provider == ProviderOpenRouter {
		return s.OpenRouterKeys
	}
	return s.GeminiKeys
}

// SessionPath is the file checkpoint location.
func (s *Settings) SessionPath() string {
	return filepath.Join(s.OutputDir, SessionFile)
}

// SessionDBPath is where the sqlite backend keeps its database.
func (s *Settings) SessionDBPath() string {
	return filepath.Join(s.OutputDir, SessionDBFile)
}

// KafkaEnabled reports whether any broker was configured.
func (s *Settings) KafkaEnabled() bool {
	return len(s.KafkaBrokers) > 0
}

// ParseCredentials reads a comma separated list of "name:secret" pairs.
// Entries without a name are called key_<n> by position.
func ParseCredentials(raw string) []keypool.Credential {
	var creds []keypool.Credential
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name := fmt.Sprintf("key_%d", len(creds)+1)
		secret := item
		if i := strings.Index(item, ":"); i > 0 {
			name = strings.TrimSpace(item[:i])
			secret = strings.TrimSpace(item[i+1:])
		}
		if secret == "" {
			continue
		}
		creds = append(creds, keypool.Credential{Name: name, Secret: secret})
	}
	return creds
}

func parseBool(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
