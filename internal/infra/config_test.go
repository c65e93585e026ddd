package infra

import (
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "PORT", "GEMINI_API_KEY", "API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL",
		"GENAI_TRANSPORT", "MAX_FILE_SIZE_MB", "STYLES_FILE", "SESSION_TTL_MINUTES",
		"RATE_LIMIT_PER_MINUTE", "CORS_ALLOWED_ORIGINS", "MAX_SESSIONS", "TRUSTED_PROXIES", "HTTP_WRITE_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.MaxFileSizeMB != 10 {
		t.Fatalf("MaxFileSizeMB = %d, want 10", cfg.MaxFileSizeMB)
	}
	if got := cfg.MaxFileSizeBytes(); got != 10*1024*1024 {
		t.Fatalf("MaxFileSizeBytes = %d, want %d", got, 10*1024*1024)
	}
	if cfg.GeminiModel != "gemini-2.5-flash-image" {
		t.Fatalf("GeminiModel = %q", cfg.GeminiModel)
	}
	if cfg.GenAITransport != TransportSDK {
		t.Fatalf("GenAITransport = %q, want %q", cfg.GenAITransport, TransportSDK)
	}
	if cfg.HTTPWriteTimeout != 120*time.Second {
		t.Fatalf("HTTPWriteTimeout = %s, want 120s", cfg.HTTPWriteTimeout)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("SessionTTL = %s, want 1h", cfg.SessionTTL)
	}
	if cfg.GeminiAPIKey != "" {
		t.Fatalf("GeminiAPIKey = %q, want empty", cfg.GeminiAPIKey)
	}
	if cfg.MaxSessions != 10000 {
		t.Fatalf("MaxSessions = %d, want 10000", cfg.MaxSessions)
	}
	if len(cfg.TrustedProxies) != 0 {
		t.Fatalf("TrustedProxies = %#v, want none", cfg.TrustedProxies)
	}
}

func TestLoadConfigMissingAPIKeyIsNotFatal(t *testing.T) {
	clearConfigEnv(t)

	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig without key returned error: %v", err)
	}
}

func TestLoadConfigAPIKeyFallback(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("API_KEY", " legacy-key ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiAPIKey != "legacy-key" {
		t.Fatalf("GeminiAPIKey = %q, want %q", cfg.GeminiAPIKey, "legacy-key")
	}

	t.Setenv("GEMINI_API_KEY", "primary-key")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiAPIKey != "primary-key" {
		t.Fatalf("GeminiAPIKey = %q, want %q", cfg.GeminiAPIKey, "primary-key")
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "zero upload limit", key: "MAX_FILE_SIZE_MB", val: "0"},
		{name: "negative upload limit", key: "MAX_FILE_SIZE_MB", val: "-3"},
		{name: "unknown transport", key: "GENAI_TRANSPORT", val: "grpc"},
		{name: "negative session cap", key: "MAX_SESSIONS", val: "-1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tc.key, tc.val)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.val)
			}
		})
	}
}

func TestLoadConfigSplitsAllowedOrigins(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com ")
	t.Setenv("GENAI_TRANSPORT", "REST")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins = %#v, want %#v", cfg.CORSAllowedOrigins, want)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], want[i])
		}
	}
	if cfg.GenAITransport != TransportREST {
		t.Fatalf("GenAITransport = %q, want %q", cfg.GenAITransport, TransportREST)
	}
}
