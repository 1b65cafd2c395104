// Package config provides configuration for ngstarter.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds run configuration.
type Config struct {
	// Registry is the package registry base URL.
	Registry string
	// Timeout bounds each registry lookup.
	Timeout time.Duration
	// CacheDir holds the version cache. Empty disables caching.
	CacheDir string
	// CacheTTL is how long cached versions stay fresh.
	CacheTTL time.Duration
	// Indent is the column of keys added to the package manifest.
	Indent int
	// Debug enables debug logging.
	Debug bool
}

// FromEnv creates a Config from environment variables.
func FromEnv() *Config {
	return &Config{
		Registry: getEnv("NGSTARTER_REGISTRY", "https://registry.npmjs.org"),
		Timeout:  getEnvDuration("NGSTARTER_TIMEOUT", 10*time.Second),
		CacheDir: cacheDir(getEnv("NGSTARTER_CACHE_DIR", "")),
		CacheTTL: getEnvDuration("NGSTARTER_CACHE_TTL", 24*time.Hour),
		Indent:   getEnvInt("NGSTARTER_INDENT", 4),
		Debug:    getEnvBool("NGSTARTER_DEBUG", false),
	}
}

// cacheDir resolves the cache location: "off" disables it, empty selects
// the user cache directory.
func cacheDir(val string) string {
	switch strings.ToLower(val) {
	case "off", "none", "false":
		return ""
	case "":
		base, err := os.UserCacheDir()
		if err != nil {
			return ""
		}
		return filepath.Join(base, "ngstarter")
	}
	return val
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
