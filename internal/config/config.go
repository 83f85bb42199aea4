// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Principal string // service identity attached to published events
	HTTPPort  string
}

// RecognizerConfig selects and configures the speech-to-text provider.
type RecognizerConfig struct {
	Provider       string // deepgram, google, mock
	DeepgramAPIKey string
	DeepgramModel  string
	Language       string // default language when a user has no settings
	SampleRateHz   int
}

// SessionConfig holds the chunk-accumulation thresholds for live sessions.
type SessionConfig struct {
	MinChunkBytes    int           // chunks below this are dropped as corrupt capture ticks
	MinSnapshotBytes int           // snapshots below this are not sent for recognition
	TickInterval     time.Duration // elapsed-time clock resolution
	MaxUploadBytes   int64
	MinUploadBytes   int64
}

// StoreConfig configures the sqlite-backed transcript store.
type StoreConfig struct {
	Path string
}

// StorageConfig selects the blob storage backend.
type StorageConfig struct {
	Backend        string // dir, supabase
	Dir            string
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
}

// KafkaConfig configures transcript event publishing.
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	TopicWords  string
	TopicStatus string
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string // json, console
	MetricsAddr string
}

// SummaryConfig configures the AI summarization client.
type SummaryConfig struct {
	APIKey string
	Model  string
}

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig
	Recognizer    RecognizerConfig
	Session       SessionConfig
	Store         StoreConfig
	Storage       StorageConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
	Summary       SummaryConfig
}

// Load reads the configuration from environment variables, applying defaults
// for anything unset.
func Load() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Principal: envOrDefault("SERVICE_PRINCIPAL", "svc-voicenote-transcriber"),
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
		},
		Recognizer: RecognizerConfig{
			Provider:       envOrDefault("STT_PROVIDER", "mock"),
			DeepgramAPIKey: os.Getenv("DEEPGRAM_API_KEY"),
			DeepgramModel:  envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:       envOrDefault("STT_LANGUAGE", "en"),
			SampleRateHz:   envOrDefaultInt("STT_SAMPLE_RATE_HZ", 16000),
		},
		Session: SessionConfig{
			MinChunkBytes:    envOrDefaultInt("SESSION_MIN_CHUNK_BYTES", 45),
			MinSnapshotBytes: envOrDefaultInt("SESSION_MIN_SNAPSHOT_BYTES", 100),
			TickInterval:     envOrDefaultDuration("SESSION_TICK_INTERVAL", time.Second),
			MaxUploadBytes:   envOrDefaultInt64("UPLOAD_MAX_BYTES", 100*1024*1024),
			MinUploadBytes:   envOrDefaultInt64("UPLOAD_MIN_BYTES", 1024),
		},
		Store: StoreConfig{
			Path: envOrDefault("SQLITE_PATH", "voicenote.sqlite"),
		},
		Storage: StorageConfig{
			Backend:        envOrDefault("STORAGE_BACKEND", "dir"),
			Dir:            envOrDefault("STORAGE_DIR", "recordings"),
			SupabaseURL:    os.Getenv("SUPABASE_URL"),
			SupabaseKey:    os.Getenv("SUPABASE_SERVICE_KEY"),
			SupabaseBucket: envOrDefault("SUPABASE_BUCKET", "recordings"),
		},
		Kafka: KafkaConfig{
			Enabled:     envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:     envOrDefaultList("KAFKA_BROKERS", nil),
			TopicWords:  envOrDefault("KAFKA_TOPIC_WORDS", "transcript.words"),
			TopicStatus: envOrDefault("KAFKA_TOPIC_STATUS", "transcript.status"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
		Summary: SummaryConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  envOrDefault("SUMMARY_MODEL", "gpt-4o-mini"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
