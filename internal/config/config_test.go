package config

import (
	"os"
	"testing"
	"time"
)

var knownEnv = []string{
	"SERVICE_PRINCIPAL", "HTTP_PORT", "LOG_LEVEL", "LOG_FORMAT", "METRICS_ADDR",
	"STT_PROVIDER", "STT_LANGUAGE", "STT_SAMPLE_RATE_HZ",
	"DEEPGRAM_API_KEY", "DEEPGRAM_MODEL",
	"SESSION_MIN_CHUNK_BYTES", "SESSION_MIN_SNAPSHOT_BYTES", "SESSION_TICK_INTERVAL",
	"UPLOAD_MAX_BYTES", "UPLOAD_MIN_BYTES",
	"SQLITE_PATH", "STORAGE_BACKEND", "STORAGE_DIR",
	"SUPABASE_URL", "SUPABASE_SERVICE_KEY", "SUPABASE_BUCKET",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_WORDS", "KAFKA_TOPIC_STATUS",
	"OPENAI_API_KEY", "SUMMARY_MODEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range knownEnv {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "svc-voicenote-transcriber" {
		t.Errorf("expected default principal 'svc-voicenote-transcriber', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default HTTP port '8080', got %s", cfg.Service.HTTPPort)
	}

	if cfg.Recognizer.Provider != "mock" {
		t.Errorf("expected default provider 'mock', got %s", cfg.Recognizer.Provider)
	}
	if cfg.Recognizer.Language != "en" {
		t.Errorf("expected default language 'en', got %s", cfg.Recognizer.Language)
	}
	if cfg.Recognizer.DeepgramModel != "nova-2" {
		t.Errorf("expected default deepgram model 'nova-2', got %s", cfg.Recognizer.DeepgramModel)
	}
	if cfg.Recognizer.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.Recognizer.SampleRateHz)
	}

	if cfg.Session.MinChunkBytes != 45 {
		t.Errorf("expected default min chunk bytes 45, got %d", cfg.Session.MinChunkBytes)
	}
	if cfg.Session.MinSnapshotBytes != 100 {
		t.Errorf("expected default min snapshot bytes 100, got %d", cfg.Session.MinSnapshotBytes)
	}
	if cfg.Session.TickInterval != time.Second {
		t.Errorf("expected default tick interval 1s, got %v", cfg.Session.TickInterval)
	}
	if cfg.Session.MaxUploadBytes != 100*1024*1024 {
		t.Errorf("expected default max upload 100MB, got %d", cfg.Session.MaxUploadBytes)
	}

	if cfg.Kafka.Enabled {
		t.Error("expected kafka disabled by default")
	}
	if cfg.Kafka.TopicWords != "transcript.words" {
		t.Errorf("expected default words topic 'transcript.words', got %s", cfg.Kafka.TopicWords)
	}

	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.MetricsAddr != ":9090" {
		t.Errorf("expected default metrics addr ':9090', got %s", cfg.Observability.MetricsAddr)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)

	t.Setenv("STT_PROVIDER", "deepgram")
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")
	t.Setenv("SESSION_MIN_SNAPSHOT_BYTES", "512")
	t.Setenv("SESSION_TICK_INTERVAL", "250ms")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("STORAGE_BACKEND", "supabase")

	cfg := Load()

	if cfg.Recognizer.Provider != "deepgram" {
		t.Errorf("expected provider 'deepgram', got %s", cfg.Recognizer.Provider)
	}
	if cfg.Recognizer.DeepgramAPIKey != "dg-key" {
		t.Errorf("expected API key 'dg-key', got %s", cfg.Recognizer.DeepgramAPIKey)
	}
	if cfg.Session.MinSnapshotBytes != 512 {
		t.Errorf("expected min snapshot bytes 512, got %d", cfg.Session.MinSnapshotBytes)
	}
	if cfg.Session.TickInterval != 250*time.Millisecond {
		t.Errorf("expected tick interval 250ms, got %v", cfg.Session.TickInterval)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "broker-1:9092" || cfg.Kafka.Brokers[1] != "broker-2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Storage.Backend != "supabase" {
		t.Errorf("expected storage backend 'supabase', got %s", cfg.Storage.Backend)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)

	t.Setenv("SESSION_MIN_CHUNK_BYTES", "not-a-number")
	t.Setenv("SESSION_TICK_INTERVAL", "soon")
	t.Setenv("KAFKA_ENABLED", "yep")

	cfg := Load()

	if cfg.Session.MinChunkBytes != 45 {
		t.Errorf("expected fallback min chunk bytes 45, got %d", cfg.Session.MinChunkBytes)
	}
	if cfg.Session.TickInterval != time.Second {
		t.Errorf("expected fallback tick interval 1s, got %v", cfg.Session.TickInterval)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected kafka disabled on unparseable bool")
	}
}
