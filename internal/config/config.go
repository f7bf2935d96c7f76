// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"text/template"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/rossoflix/rossoflix/internal/acquisition"
	"github.com/rossoflix/rossoflix/internal/domain"
	"github.com/rossoflix/rossoflix/internal/stream"
)

const (
	appName    = "rossoflix"
	envPrefix  = "ROSSOFLIX__"
	configFile = "config.toml"
)

type AppConfig struct {
	Config     *domain.Config
	viper      *viper.Viper
	configDir  string
	configMu   sync.Mutex
	logManager *LogManager
}

// New loads configuration from configDirOrPath (a directory or a path to a
// config.toml), falling back to defaults, then applies ROSSOFLIX__ environment
// overrides. A missing config file is not an error.
func New(configDirOrPath string, version string) (*AppConfig, error) {
	c := &AppConfig{
		Config:     &domain.Config{},
		viper:      viper.New(),
		logManager: NewLogManager(version),
	}

	configPath := resolveConfigPath(configDirOrPath)
	c.configDir = filepath.Dir(configPath)

	c.defaults()
	c.bindEnv()

	c.viper.SetConfigFile(configPath)
	c.viper.SetConfigType("toml")
	if err := c.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	}

	if err := c.viper.Unmarshal(c.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	c.normalize()
	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *AppConfig) defaults() {
	c.viper.SetDefault("host", "0.0.0.0")
	c.viper.SetDefault("port", 8080)
	c.viper.SetDefault("baseUrl", "/")
	c.viper.SetDefault("storageDir", "downloads")
	c.viper.SetDefault("logLevel", "INFO")
	c.viper.SetDefault("logPath", "")
	c.viper.SetDefault("logMaxSize", 50)
	c.viper.SetDefault("logMaxBackups", 3)
	c.viper.SetDefault("omdbApiKey", "")
	c.viper.SetDefault("omdbBaseUrl", "")
	c.viper.SetDefault("torrentioBaseUrl", "")
	c.viper.SetDefault("cacheTTL", 60)
	c.viper.SetDefault("upstreamTimeout", 8)
	c.viper.SetDefault("downloadBinary", acquisition.DefaultBinary)
	c.viper.SetDefault("downloadArgs", acquisition.DefaultArgsTemplate)
	c.viper.SetDefault("downloadTrackers", acquisition.DefaultTrackers)
	c.viper.SetDefault("downloadTimeout", 7200)
	c.viper.SetDefault("streamContentType", stream.DefaultContentType)
	c.viper.SetDefault("streamChunkSize", stream.DefaultChunkSize)
	c.viper.SetDefault("corsAllowedOrigins", []string{"*"})
	c.viper.SetDefault("metricsEnabled", false)
	c.viper.SetDefault("metricsHost", "127.0.0.1")
	c.viper.SetDefault("metricsPort", 9074)
	c.viper.SetDefault("metricsBasicAuthUsers", "")
}

// bindEnv maps every key to ROSSOFLIX__UPPER_SNAKE, e.g. logMaxSize to ROSSOFLIX__LOG_MAX_SIZE.
func (c *AppConfig) bindEnv() {
	for _, key := range c.viper.AllKeys() {
		_ = c.viper.BindEnv(key, envPrefix+envName(key))
	}
}

func (c *AppConfig) normalize() {
	cfg := c.Config
	cfg.LogLevel = canonicalizeLogLevel(cfg.LogLevel)
	cfg.DownloadTrackers = splitList(cfg.DownloadTrackers)
	cfg.CORSAllowedOrigins = splitList(cfg.CORSAllowedOrigins)
	if cfg.BaseURL == "" {
		cfg.BaseURL = "/"
	}
	if !strings.HasPrefix(cfg.BaseURL, "/") {
		cfg.BaseURL = "/" + cfg.BaseURL
	}
}

func (c *AppConfig) validate() error {
	cfg := c.Config
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	if strings.TrimSpace(cfg.StorageDir) == "" {
		return errors.New("storageDir must not be empty")
	}
	if cfg.StreamChunkSize < 0 {
		return fmt.Errorf("invalid streamChunkSize %d", cfg.StreamChunkSize)
	}
	if cfg.MetricsEnabled && (cfg.MetricsPort <= 0 || cfg.MetricsPort > 65535) {
		return fmt.Errorf("invalid metricsPort %d", cfg.MetricsPort)
	}
	return nil
}

// ApplyLogConfig points the global logger at the configured level and file.
func (c *AppConfig) ApplyLogConfig() error {
	c.logManager.Initialize()
	return c.logManager.Apply(c.Config.LogLevel, c.ResolveLogPath(c.Config.LogPath), c.Config.LogMaxSize, c.Config.LogMaxBackups)
}

// CloseLogs releases the log file, if any.
func (c *AppConfig) CloseLogs() error {
	return c.logManager.Close()
}

// ConfigDir is the directory relative paths are resolved against.
func (c *AppConfig) ConfigDir() string {
	return c.configDir
}

// ConfigFileUsed is the config file that was read, or empty when running on defaults.
func (c *AppConfig) ConfigFileUsed() string {
	if _, err := os.Stat(c.viper.ConfigFileUsed()); err != nil {
		return ""
	}
	return c.viper.ConfigFileUsed()
}

// ResolveLogPath resolves a relative log path against the config directory.
func (c *AppConfig) ResolveLogPath(path string) string {
	return c.resolvePath(path)
}

// StorageDir is the absolute media storage root.
func (c *AppConfig) StorageDir() string {
	return c.resolvePath(c.Config.StorageDir)
}

func (c *AppConfig) resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.configDir, path)
}

func (c *AppConfig) CacheTTL() time.Duration {
	return seconds(c.Config.CacheTTL)
}

func (c *AppConfig) UpstreamTimeout() time.Duration {
	return seconds(c.Config.UpstreamTimeout)
}

func (c *AppConfig) DownloadTimeout() time.Duration {
	return seconds(c.Config.DownloadTimeout)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

// LogFields logs the effective configuration with secrets redacted.
func (c *AppConfig) LogFields() {
	cfg := c.Config
	log.Info().
		Str("configFile", c.ConfigFileUsed()).
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("storageDir", c.StorageDir()).
		Str("downloadBinary", cfg.DownloadBinary).
		Str("omdbApiKey", domain.RedactString(cfg.OMDBAPIKey)).
		Bool("metricsEnabled", cfg.MetricsEnabled).
		Msg("Configuration loaded")
}

// GetDefaultConfigDir returns the directory config.toml lives in by default.
func GetDefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		// Docker images mount the config volume at /config directly.
		if filepath.Clean(xdg) == "/config" {
			return "/config"
		}
		return filepath.Join(xdg, appName)
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName)
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return appName
	}
	return filepath.Join(home, ".config", appName)
}

func resolveConfigPath(configDirOrPath string) string {
	if configDirOrPath == "" {
		return filepath.Join(GetDefaultConfigDir(), configFile)
	}
	if strings.EqualFold(filepath.Ext(configDirOrPath), ".toml") {
		return configDirOrPath
	}
	return filepath.Join(configDirOrPath, configFile)
}

// WriteDefaultConfig writes the default config template to path, creating parent directories.
func WriteDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse config template: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	data := map[string]any{
		"downloadArgs":      acquisition.DefaultArgsTemplate,
		"streamContentType": stream.DefaultContentType,
		"streamChunkSize":   stream.DefaultChunkSize,
	}
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// canonicalizeLogLevel normalizes a log level string to uppercase.
// Returns "INFO" if the level is empty or invalid.
func canonicalizeLogLevel(level string) string {
	normalized := strings.ToUpper(strings.TrimSpace(level))
	switch normalized {
	case "TRACE", "DEBUG", "INFO", "WARN", "ERROR":
		return normalized
	default:
		return "INFO"
	}
}

// envName converts a camelCase key to UPPER_SNAKE. viper lowercases keys, so
// the original casing is looked up in knownKeys first.
func envName(key string) string {
	if original, ok := knownKeys[key]; ok {
		key = original
	}
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(rune(key[i-1])) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

var knownKeys = func() map[string]string {
	keys := []string{
		"host", "port", "baseUrl", "storageDir",
		"logLevel", "logPath", "logMaxSize", "logMaxBackups",
		"omdbApiKey", "omdbBaseUrl", "torrentioBaseUrl", "cacheTTL", "upstreamTimeout",
		"downloadBinary", "downloadArgs", "downloadTrackers", "downloadTimeout",
		"streamContentType", "streamChunkSize",
		"corsAllowedOrigins",
		"metricsEnabled", "metricsHost", "metricsPort", "metricsBasicAuthUsers",
	}
	m := make(map[string]string, len(keys))
	for _, k := range keys {
		m[strings.ToLower(k)] = k
	}
	return m
}()

// splitList accepts both TOML arrays and comma-separated env values.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for part := range strings.SplitSeq(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

const configTemplate = `# config.toml - Auto-generated

# Hostname / IP
# Default: "0.0.0.0"
host = "0.0.0.0"

# Port
# Default: 8080
port = 8080

# Base URL the API is served under
# Default: "/"
#baseUrl = "/"

# Directory media is downloaded into and served from.
# Relative paths are resolved against this config directory.
# Default: "downloads"
storageDir = "downloads"

# Log level
# Default: "INFO"
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "INFO"

# Log file path
# If not defined, logs to stdout
# Optional
#logPath = "log/rossoflix.log"

# Log rotation
# Maximum log file size in megabytes before rotation
# Default: 50
#logMaxSize = 50
# Number of rotated log files to keep
# Default: 3
#logMaxBackups = 3

# OMDb API key for /search and /movie
#omdbApiKey = ""

# Seconds metadata responses are cached for
# Default: 60
#cacheTTL = 60

# Seconds a single metadata upstream request may take
# Default: 8
#upstreamTimeout = 8

# Download agent
# Default: "aria2c"
#downloadBinary = "aria2c"

# Argument template; {dir}, {filename}, {trackers} and {magnet} are substituted
#downloadArgs = "{{ .downloadArgs }}"

# Extra tracker announce URLs. Defaults to a built-in list of public UDP trackers.
#downloadTrackers = []

# Seconds before a download is abandoned
# Default: 7200
#downloadTimeout = 7200

# Content-Type declared for streamed files
#streamContentType = "{{ .streamContentType }}"

# Read size in bytes for streamed responses
#streamChunkSize = {{ .streamChunkSize }}

# Allowed CORS origins
# Default: ["*"]
#corsAllowedOrigins = ["*"]

# Prometheus metrics
#metricsEnabled = false
#metricsHost = "127.0.0.1"
#metricsPort = 9074
# Comma separated user:password pairs
#metricsBasicAuthUsers = ""
`
