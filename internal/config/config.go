// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Data     DataConfig
	Server   ServerConfig
	Auth     AuthConfig
	Protocol ProtocolConfig

	// ProtocolBase is Protocol before the protocol file was applied. Reloads
	// merge the file onto it again.
	ProtocolBase ProtocolConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds storage configuration.
type DataConfig struct {
	Path    string // directory holding the database, search index and auth key
	Backend string // badger or sqlite
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port               string        // default: 8080
	ReadTimeout        time.Duration // default: 15s
	WriteTimeout       time.Duration // default: 15s
	IdleTimeout        time.Duration // default: 60s
	CORSAllowedOrigins []string      // default: *
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key, set by auth.LoadOrGenerateKey in main.
	AccessTokenKey      []byte
	AccessTokenDuration time.Duration
}

// LoadConfig loads configuration from the process flags and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from args and the environment with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
// Protocol parameters from PROTOCOL_FILE override all of the above.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("ets-server", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory for database, search index and auth key")
	backend := fs.String("store-backend", "", "Store backend: badger or sqlite (default: badger)")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-allowed-origins", "", "Comma-separated allowed CORS origins (default: *)")

	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (default: 1h)")

	protocolFile := fs.String("protocol-file", "", "YAML file with protocol parameters, watched for changes")
	platform := fs.String("platform-address", "", "Platform (admin) address")
	taggingFee := fs.String("tagging-fee", "", "Per-tag fee in wei (default: 0)")
	platformPct := fs.String("platform-percentage", "", "Platform share of each fee (default: 20)")
	relayerPct := fs.String("relayer-percentage", "", "Relayer share of each fee (default: 30)")
	maxRecordType := fs.String("max-record-type-length", "", "Max record type length in bytes (default: 32)")
	tagMin := fs.String("tag-min-length", "", "Min tag length in bytes (default: 2)")
	tagMax := fs.String("tag-max-length", "", "Max tag length in bytes (default: 32)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// A missing .env file is fine.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			Path:    getConfigValue(*dataPath, "DATA_PATH", ""),
			Backend: strings.ToLower(getConfigValue(*backend, "STORE_BACKEND", BackendBadger)),
		},
		Server: ServerConfig{
			Port:               getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSAllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", "*")),
		},
		Protocol: ProtocolConfig{
			File:                getConfigValue(*protocolFile, "PROTOCOL_FILE", ""),
			PlatformAddress:     getConfigValue(*platform, "PLATFORM_ADDRESS", ""),
			TaggingFee:          getConfigValue(*taggingFee, "TAGGING_FEE", "0"),
			PlatformPercentage:  getIntConfigValue(*platformPct, "PLATFORM_PERCENTAGE", 20),
			RelayerPercentage:   getIntConfigValue(*relayerPct, "RELAYER_PERCENTAGE", 30),
			MaxRecordTypeLength: getIntConfigValue(*maxRecordType, "MAX_RECORD_TYPE_LENGTH", 32),
			TagMinLength:        getIntConfigValue(*tagMin, "TAG_MIN_LENGTH", 2),
			TagMaxLength:        getIntConfigValue(*tagMax, "TAG_MAX_LENGTH", 32),
		},
	}

	durations := []struct {
		flagValue, envKey, def string
		dst                    *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*accessTokenDuration, "ACCESS_TOKEN_DURATION", "1h", &cfg.Auth.AccessTokenDuration},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		v, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = v
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if cfg.Protocol.File != "" {
		expanded, err := expandPath(cfg.Protocol.File, "")
		if err != nil {
			return nil, fmt.Errorf("invalid protocol file path: %w", err)
		}
		cfg.Protocol.File = expanded
	}
	cfg.ProtocolBase = cfg.Protocol

	if cfg.Protocol.File != "" {
		file, err := LoadProtocolFile(cfg.Protocol.File)
		if err != nil {
			return nil, err
		}
		cfg.Protocol = cfg.Protocol.Merge(file)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.Path == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if c.Data.Backend != BackendBadger && c.Data.Backend != BackendSQLite {
		return fmt.Errorf("invalid store backend: %s (must be badger or sqlite)", c.Data.Backend)
	}

	if c.Auth.AccessTokenDuration <= 0 {
		return errors.New("access token duration must be positive")
	}

	if _, err := c.Protocol.Params(); err != nil {
		return fmt.Errorf("protocol: %w", err)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data path to ~/ETS/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Data.Path, filepath.Join(homeDir, "ETS", "data"))
	if err != nil {
		return err
	}
	c.Data.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
