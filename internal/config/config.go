package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config holds all configuration values.
type Config struct {
	// Storage
	BasePath    string // local store root; ignored when StorageURL is set
	StorageURL  string // non-empty selects the remote key-value adapter

	// Identity
	AgentID string

	// Synonyms overlay
	SynonymsPath string

	// Encryption
	EncryptionEnabled bool
	RawKeyHex         string // ENGRAM_KEY
	Password          string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	home, _ := os.UserHomeDir()
	defaultBase := filepath.Join(home, ".engram")

	return Config{
		BasePath:   getEnv("ENGRAM_PATH", defaultBase),
		StorageURL: getEnv("ENGRAM_STORAGE_URL", ""),

		AgentID: getEnv("ENGRAM_AGENT_ID", "default"),

		SynonymsPath: getEnv("ENGRAM_SYNONYMS", ""),

		EncryptionEnabled: getEnv("ENGRAM_ENCRYPT", "false") == "true",
		RawKeyHex:         getEnv("ENGRAM_KEY", ""),
		Password:          getEnv("ENGRAM_PASSWORD", ""),

		LogFile:  getEnv("ENGRAM_LOG_FILE", filepath.Join(defaultBase, "engram.log")),
		LogLevel: parseLogLevel(getEnv("ENGRAM_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
