package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	DumpPath    string
	TablePrefix string
	DBPath      string

	AssetRoot            string
	ObjectStoreRoot      string
	ObjectStorePublicURL string
	ObjectStorePrefix    string
	MirrorAssets         bool

	LegacyDomains     []string
	LegacyUploadsPath string
	PostTypes         []string
	PostStatuses      []string
	GalleryMetaKeys   []string // Empty means the built-in list
	ShortcodePrefixes []string // Empty means the built-in list

	BatchSize         int
	UploadConcurrency int
	FuzzyMinLength    int

	APIPort   string
	LogLevel  slog.Level
	LogFormat string // "text" or "json"
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load() // Try current directory

	// Walk up a few levels to find a project .env
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		DumpPath:             getEnv("DUMP_PATH", ""),
		TablePrefix:          getEnv("TABLE_PREFIX", "wp"),
		DBPath:               getEnv("DB_PATH", "./data/legacy-sync.db"),
		AssetRoot:            getEnv("ASSET_ROOT", ""),
		ObjectStoreRoot:      getEnv("OBJECT_STORE_ROOT", "./data/objects"),
		ObjectStorePublicURL: getEnv("OBJECT_STORE_PUBLIC_URL", ""),
		ObjectStorePrefix:    getEnv("OBJECT_STORE_PREFIX", "media"),
		LegacyDomains:        getList("LEGACY_DOMAINS", ""),
		LegacyUploadsPath:    getEnv("LEGACY_UPLOADS_PATH", "/wp-content/uploads/"),
		PostTypes:            getList("POST_TYPES", "post,page"),
		PostStatuses:         getList("POST_STATUSES", "publish"),
		GalleryMetaKeys:      getList("GALLERY_META_KEYS", ""),
		ShortcodePrefixes:    getList("SHORTCODE_PREFIXES", ""),
		APIPort:              getEnv("API_PORT", "9000"),
		LogFormat:            strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if cfg.BatchSize, err = getInt("BATCH_SIZE", 50); err != nil {
		return nil, err
	}
	if cfg.UploadConcurrency, err = getInt("UPLOAD_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.FuzzyMinLength, err = getInt("FUZZY_MIN_LENGTH", 5); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	if cfg.MirrorAssets, err = strconv.ParseBool(getEnv("MIRROR_ASSETS", "true")); err != nil {
		return nil, fmt.Errorf("MIRROR_ASSETS must be a boolean: %w", err)
	}

	// Validate required fields
	if cfg.DumpPath == "" {
		return nil, fmt.Errorf("DUMP_PATH is required")
	}
	if cfg.ObjectStorePublicURL == "" {
		return nil, fmt.Errorf("OBJECT_STORE_PUBLIC_URL is required")
	}
	if len(cfg.LegacyDomains) == 0 {
		return nil, fmt.Errorf("LEGACY_DOMAINS is required")
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	// Create ./data directory if it doesn't exist
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt parses a positive integer variable.
func getInt(key string, defaultValue int) (int, error) {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return n, nil
}

// getList splits a comma separated variable, dropping empty items.
func getList(key, defaultValue string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
