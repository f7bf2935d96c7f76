// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

type Config struct {
	Host       string `toml:"host" mapstructure:"host"`
	Port       int    `toml:"port" mapstructure:"port"`
	BaseURL    string `toml:"baseUrl" mapstructure:"baseUrl"`
	StorageDir string `toml:"storageDir" mapstructure:"storageDir"`

	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`

	OMDBAPIKey       string `toml:"omdbApiKey" mapstructure:"omdbApiKey"`
	OMDBBaseURL      string `toml:"omdbBaseUrl" mapstructure:"omdbBaseUrl"`
	TorrentioBaseURL string `toml:"torrentioBaseUrl" mapstructure:"torrentioBaseUrl"`
	CacheTTL         int    `toml:"cacheTTL" mapstructure:"cacheTTL"`
	UpstreamTimeout  int    `toml:"upstreamTimeout" mapstructure:"upstreamTimeout"`

	DownloadBinary   string   `toml:"downloadBinary" mapstructure:"downloadBinary"`
	DownloadArgs     string   `toml:"downloadArgs" mapstructure:"downloadArgs"`
	DownloadTrackers []string `toml:"downloadTrackers" mapstructure:"downloadTrackers"`
	DownloadTimeout  int      `toml:"downloadTimeout" mapstructure:"downloadTimeout"`

	StreamContentType string `toml:"streamContentType" mapstructure:"streamContentType"`
	StreamChunkSize   int    `toml:"streamChunkSize" mapstructure:"streamChunkSize"`

	CORSAllowedOrigins []string `toml:"corsAllowedOrigins" mapstructure:"corsAllowedOrigins"`

	MetricsEnabled        bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost           string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort           int    `toml:"metricsPort" mapstructure:"metricsPort"`
	MetricsBasicAuthUsers string `toml:"metricsBasicAuthUsers" mapstructure:"metricsBasicAuthUsers"`
}
