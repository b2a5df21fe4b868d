package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_WritesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.HistoryLimit != 30 || cfg.Addr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "addr: \":9090\"\nhistory_limit: 10\njwt_ttl: 1h\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WIRECHAT_HISTORY_LIMIT", "15")
	t.Setenv("WIRECHAT_REDIS_ADDR", "localhost:6379")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("addr from file: got %q", cfg.Addr)
	}
	if cfg.JWTTTL != time.Hour {
		t.Errorf("jwt_ttl from file: got %v", cfg.JWTTTL)
	}
	if cfg.HistoryLimit != 15 {
		t.Errorf("history_limit from env: got %d", cfg.HistoryLimit)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("redis_addr from env: got %q", cfg.RedisAddr)
	}
	if cfg.SendBuffer != 64 {
		t.Errorf("send_buffer default: got %d", cfg.SendBuffer)
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1", LogLevel: "debug"})

	if cfg.Addr != ":1" || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ShutdownTimeout != 5*time.Second || cfg.HistoryLimit != 30 {
		t.Fatalf("zero values must not overwrite: %+v", cfg)
	}
}
