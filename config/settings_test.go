package config

import (
	"testing"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParseCredentials(t *testing.T) {
	got := ParseCredentials(" main:AAA , BBB,, backup:CCC ,broken: ")
	want := []struct{ name, secret string }{
		{"main", "AAA"},
		{"key_2", "BBB"},
		{"backup", "CCC"},
	}
	if len(got) != len(want) {
		t.Fatalf("ParseCredentials returned %d entries; want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Secret != w.secret {
			t.Fatalf("entry %d = %+v; want %s/%s", i, got[i], w.name, w.secret)
		}
	}
}

func TestFromEnvDefaults(t *testing.T) {
	s, err := FromEnv(envMap(map[string]string{
		"GEMINI_API_KEYS": "k1,k2",
	}))
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if s.Provider != ProviderGemini {
		t.Fatalf("Provider = %q", s.Provider)
	}
	if s.GeminiModel != GeminiFastModel {
		t.Fatalf("GeminiModel = %q", s.GeminiModel)
	}
	if len(s.Credentials()) != 2 {
		t.Fatalf("Credentials = %+v", s.Credentials())
	}
	if s.SessionPath() != "output/temp.json" {
		t.Fatalf("SessionPath = %q", s.SessionPath())
	}
	if s.KafkaEnabled() {
		t.Fatalf("Kafka should be disabled without brokers")
	}
	if s.ResumeSchedule != "" {
		t.Fatalf("ResumeSchedule = %q; want disabled", s.ResumeSchedule)
	}
}

func TestFromEnvSQLiteSessions(t *testing.T) {
	s, err := FromEnv(envMap(map[string]string{
		"GEMINI_API_KEYS": "k1",
		"SESSION_BACKEND": "SQLite",
		"OUTPUT_DIR":      "/data",
		"RESUME_SCHEDULE": "0 */6 * * *",
	}))
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if s.SessionBackend != SessionBackendSQLite || s.SessionDBPath() != "/data/sessions.db" {
		t.Fatalf("session = %s at %s", s.SessionBackend, s.SessionDBPath())
	}
	if s.ResumeSchedule != "0 */6 * * *" {
		t.Fatalf("ResumeSchedule = %q", s.ResumeSchedule)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	s, err := FromEnv(envMap(map[string]string{
		"PROVIDER":                "OpenRouter",
		"OPENROUTER_API_KEYS":     "or:sk-1",
		"MODEL_PRESET":            "pro",
		"S3_PREFIX":               "/clips/",
		"REDIS_DB":                "3",
		"SESSION_BACKEND":         "redis",
		"KAFKA_BOOTSTRAP_SERVERS": "a:9092, b:9092",
		"EXTRACT_SHORTS":          "true",
	}))
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if s.Provider != ProviderOpenRouter || s.Credentials()[0].Name != "or" {
		t.Fatalf("unexpected provider setup: %+v", s)
	}
	if s.GeminiModel != GeminiProModel {
		t.Fatalf("GeminiModel = %q; want pro preset", s.GeminiModel)
	}
	if s.S3Prefix != "clips/" {
		t.Fatalf("S3Prefix = %q", s.S3Prefix)
	}
	if s.RedisDB != 3 || s.SessionBackend != SessionBackendRedis {
		t.Fatalf("redis settings = %d/%s", s.RedisDB, s.SessionBackend)
	}
	if len(s.KafkaBrokers) != 2 || s.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("KafkaBrokers = %v", s.KafkaBrokers)
	}
	if !s.ExtractShorts {
		t.Fatalf("ExtractShorts should be true")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"no gemini keys", map[string]string{}},
		{"no openrouter keys", map[string]string{"PROVIDER": "openrouter", "GEMINI_API_KEYS": "x"}},
		{"unknown provider", map[string]string{"PROVIDER": "bard", "GEMINI_API_KEYS": "x"}},
		{"unknown backend", map[string]string{"GEMINI_API_KEYS": "x", "SESSION_BACKEND": "s3"}},
		{"bad redis db", map[string]string{"GEMINI_API_KEYS": "x", "REDIS_DB": "zero"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := FromEnv(envMap(c.env)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
