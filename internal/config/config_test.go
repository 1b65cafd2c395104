package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"NGSTARTER_REGISTRY", "NGSTARTER_TIMEOUT", "NGSTARTER_CACHE_TTL", "NGSTARTER_INDENT", "NGSTARTER_DEBUG"} {
		t.Setenv(key, "")
	}
	t.Setenv("NGSTARTER_CACHE_DIR", "off")

	cfg := FromEnv()
	if cfg.Registry != "https://registry.npmjs.org" {
		t.Errorf("unexpected registry %q", cfg.Registry)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("unexpected timeout %v", cfg.Timeout)
	}
	if cfg.CacheDir != "" {
		t.Errorf("expected cache disabled, got %q", cfg.CacheDir)
	}
	if cfg.CacheTTL != 24*time.Hour || cfg.Indent != 4 || cfg.Debug {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("NGSTARTER_REGISTRY", "http://localhost:4873")
	t.Setenv("NGSTARTER_TIMEOUT", "250ms")
	t.Setenv("NGSTARTER_CACHE_DIR", "/tmp/ngstarter-cache")
	t.Setenv("NGSTARTER_CACHE_TTL", "1h")
	t.Setenv("NGSTARTER_INDENT", "2")
	t.Setenv("NGSTARTER_DEBUG", "true")

	cfg := FromEnv()
	want := Config{
		Registry: "http://localhost:4873",
		Timeout:  250 * time.Millisecond,
		CacheDir: "/tmp/ngstarter-cache",
		CacheTTL: time.Hour,
		Indent:   2,
		Debug:    true,
	}
	if *cfg != want {
		t.Errorf("FromEnv() = %+v, want %+v", *cfg, want)
	}
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("NGSTARTER_TIMEOUT", "soon")
	t.Setenv("NGSTARTER_INDENT", "four")
	t.Setenv("NGSTARTER_DEBUG", "maybe")

	cfg := FromEnv()
	if cfg.Timeout != 10*time.Second || cfg.Indent != 4 || cfg.Debug {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}
