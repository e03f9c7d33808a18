package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "TBA_APP_ID", "TBA_AUTH_KEY", "TBA_BASE_URL", "TBA_TIMEOUT",
		"TBA_MIN_FRESH", "TBA_WEBHOOK_SECRET", "DB_DSN", "HTTP_ADDR",
		"WORKER_QUEUE_SIZE", "DISPATCH_MODE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.TBABaseURL != defaultBaseURL {
		t.Errorf("TBABaseURL = %q, want %q", cfg.TBABaseURL, defaultBaseURL)
	}
	if cfg.TBAMinFresh != 60*time.Second {
		t.Errorf("TBAMinFresh = %v, want 60s", cfg.TBAMinFresh)
	}
	if cfg.TBATimeout != 15*time.Second {
		t.Errorf("TBATimeout = %v, want 15s", cfg.TBATimeout)
	}
	if cfg.DBDsn == "" || cfg.HTTPAddr != ":8080" {
		t.Errorf("unexpected defaults: dsn=%q addr=%q", cfg.DBDsn, cfg.HTTPAddr)
	}
	if cfg.WorkerQueueSize != 100 {
		t.Errorf("WorkerQueueSize = %d, want 100", cfg.WorkerQueueSize)
	}
	if cfg.DispatchMode != DispatchLog {
		t.Errorf("DispatchMode = %q, want %q", cfg.DispatchMode, DispatchLog)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TBA_APP_ID", "frc5881:slackbot:v2")
	t.Setenv("TBA_TIMEOUT", "3s")
	t.Setenv("TBA_MIN_FRESH", "2m")
	t.Setenv("WORKER_QUEUE_SIZE", "8")
	t.Setenv("DISPATCH_MODE", "Outbox")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.TBAAppID != "frc5881:slackbot:v2" {
		t.Errorf("TBAAppID = %q", cfg.TBAAppID)
	}
	if cfg.TBATimeout != 3*time.Second || cfg.TBAMinFresh != 2*time.Minute {
		t.Errorf("durations = %v / %v", cfg.TBATimeout, cfg.TBAMinFresh)
	}
	if cfg.WorkerQueueSize != 8 {
		t.Errorf("WorkerQueueSize = %d, want 8", cfg.WorkerQueueSize)
	}
	if cfg.DispatchMode != DispatchOutbox {
		t.Errorf("DispatchMode = %q, want outbox", cfg.DispatchMode)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"TBA_TIMEOUT", "soon"},
		{"TBA_MIN_FRESH", "60"},
		{"WORKER_QUEUE_SIZE", "0"},
		{"WORKER_QUEUE_SIZE", "many"},
		{"DISPATCH_MODE", "slack"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFileEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "tba.yaml")
	body := "tba_app_id: from-file\ntba_min_fresh: 30s\nhttp_addr: \":9000\"\ndispatch_mode: outbox\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", ":9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.TBAAppID != "from-file" {
		t.Errorf("TBAAppID = %q, want from-file", cfg.TBAAppID)
	}
	if cfg.TBAMinFresh != 30*time.Second {
		t.Errorf("TBAMinFresh = %v, want 30s", cfg.TBAMinFresh)
	}
	if cfg.HTTPAddr != ":9100" {
		t.Errorf("HTTPAddr = %q, env should win", cfg.HTTPAddr)
	}
	if cfg.DispatchMode != DispatchOutbox {
		t.Errorf("DispatchMode = %q", cfg.DispatchMode)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Errorf("expected error for missing config file")
	}
}

func TestValidateUpstream(t *testing.T) {
	clearEnv(t)
	cfg, _ := Load()
	if err := cfg.ValidateUpstream(); err == nil {
		t.Errorf("expected error without TBA_APP_ID")
	}
	t.Setenv("TBA_APP_ID", "frc5881:slackbot:v2")
	cfg, _ = Load()
	if err := cfg.ValidateUpstream(); err != nil {
		t.Errorf("expected valid upstream config, got %v", err)
	}
}
