// Package config loads layered application configuration: defaults, then an
// optional YAML file, then environment variables, following the teacher's
// viper-based precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Version is the build version, set via ldflags in release builds.
var Version = "dev"

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metadata   MetadataConfig   `mapstructure:"metadata"`
	Indexer    IndexerConfig    `mapstructure:"indexer"`
	AutoSearch AutoSearchConfig `mapstructure:"autosearch"`
	Health     HealthConfig     `mapstructure:"health"`
	Download   DownloadConfig   `mapstructure:"download"`
	Notify     NotifyConfig     `mapstructure:"notify"`
}

// DownloadConfig holds download client configuration.
type DownloadConfig struct {
	Category    string            `mapstructure:"category"`
	QBittorrent QBittorrentConfig `mapstructure:"qbittorrent"`
}

// QBittorrentConfig holds qBittorrent Web API connection settings.
type QBittorrentConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BaseURL  string `mapstructure:"base_url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// NotifyConfig holds outbound notification sink configuration.
type NotifyConfig struct {
	Discord DiscordConfig `mapstructure:"discord"`
}

// DiscordConfig holds Discord webhook notification settings.
type DiscordConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MetadataConfig holds metadata provider configuration (§6.2 MetadataResolver).
type MetadataConfig struct {
	TMDB TMDBConfig `mapstructure:"tmdb"`
	OMDB OMDBConfig `mapstructure:"omdb"`
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout_seconds"`
}

// OMDBConfig holds OMDb API configuration.
type OMDBConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout_seconds"`
}

// IndexerConfig holds indexer-related configuration.
type IndexerConfig struct {
	Cardigann CardigannConfig `mapstructure:"cardigann"`
	Feeds     []FeedConfig    `mapstructure:"feeds"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Status    StatusConfig    `mapstructure:"status"`
}

// CardigannConfig holds template-driven indexer adapter configuration.
type CardigannConfig struct {
	DefinitionsDir string `mapstructure:"definitions_dir"`
	RequestTimeout int    `mapstructure:"request_timeout"`
}

// FeedConfig describes one generic RSS/Torznab feed indexer.
type FeedConfig struct {
	ID         string `mapstructure:"id"`
	URL        string `mapstructure:"url"`
	Cookie     string `mapstructure:"cookie"`
	Protocol   string `mapstructure:"protocol"`
	ContentType string `mapstructure:"content_type"` // "movies", "tv", "both"
}

// RateLimitConfig holds default rate-limit bucket configuration (C3).
type RateLimitConfig struct {
	DefaultIndexerRPM int `mapstructure:"default_indexer_rpm"`
	DefaultHostRPM    int `mapstructure:"default_host_rpm"`
}

// StatusConfig holds indexer health/backoff configuration (C4).
type StatusConfig struct {
	FailureThreshold      int     `mapstructure:"failure_threshold"`
	BackoffMultiplier     float64 `mapstructure:"backoff_multiplier"`
	MaxBackoffHours       int     `mapstructure:"max_backoff_hours"`
	InitialBackoffMinutes int     `mapstructure:"initial_backoff_minutes"`
}

// AutoSearchConfig holds automatic search scheduling configuration.
type AutoSearchConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	IntervalHours int  `mapstructure:"interval_hours"`
}

// HealthConfig holds periodic sweep configuration.
type HealthConfig struct {
	BackoffSweepInterval time.Duration `mapstructure:"backoff_sweep_interval"`
	CacheSweepInterval   time.Duration `mapstructure:"cache_sweep_interval"`
}

// IntervalDuration returns the autosearch interval as a time.Duration.
func (c *AutoSearchConfig) IntervalDuration() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

// RequestTimeoutDuration returns the cardigann request timeout as a time.Duration.
func (c *CardigannConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Default returns a Config populated with default values.
func Default() *Config {
	dataDir := getDataDir()
	return &Config{
		Server:   ServerConfig{Host: "127.0.0.1", Port: 8080},
		Database: DatabaseConfig{Path: filepath.Join(dataDir, "orchestrd.db")},
		Logging:  LoggingConfig{Level: "info", Format: "console", Path: filepath.Join(dataDir, "logs")},
		Metadata: MetadataConfig{
			TMDB: TMDBConfig{BaseURL: "https://api.themoviedb.org/3", Timeout: 30},
			OMDB: OMDBConfig{BaseURL: "https://www.omdbapi.com", Timeout: 15},
		},
		Indexer: IndexerConfig{
			Cardigann: CardigannConfig{DefinitionsDir: filepath.Join(dataDir, "definitions"), RequestTimeout: 60},
			RateLimit: RateLimitConfig{DefaultIndexerRPM: 60, DefaultHostRPM: 120},
			Status: StatusConfig{
				FailureThreshold:      3,
				BackoffMultiplier:     2.0,
				MaxBackoffHours:       3,
				InitialBackoffMinutes: 5,
			},
		},
		AutoSearch: AutoSearchConfig{Enabled: true, IntervalHours: 1},
		Health: HealthConfig{
			BackoffSweepInterval: 5 * time.Minute,
			CacheSweepInterval:   30 * time.Second,
		},
		Download: DownloadConfig{
			Category:    "orchestrd",
			QBittorrent: QBittorrentConfig{BaseURL: "http://localhost:8090"},
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > .env file > config file > defaults.
func Load(configPath string) (*Config, error) {
	for _, envFile := range []string{".env", "configs/.env"} {
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
			break
		}
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath(filepath.Join(configHome(), "orchestrd"))
	}

	v.SetEnvPrefix("ORCHESTRD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", d.Logging.Path)
	v.SetDefault("metadata.tmdb.base_url", d.Metadata.TMDB.BaseURL)
	v.SetDefault("metadata.tmdb.timeout_seconds", d.Metadata.TMDB.Timeout)
	v.SetDefault("metadata.omdb.base_url", d.Metadata.OMDB.BaseURL)
	v.SetDefault("metadata.omdb.timeout_seconds", d.Metadata.OMDB.Timeout)
	v.SetDefault("indexer.cardigann.definitions_dir", d.Indexer.Cardigann.DefinitionsDir)
	v.SetDefault("indexer.cardigann.request_timeout", d.Indexer.Cardigann.RequestTimeout)
	v.SetDefault("indexer.rate_limit.default_indexer_rpm", d.Indexer.RateLimit.DefaultIndexerRPM)
	v.SetDefault("indexer.rate_limit.default_host_rpm", d.Indexer.RateLimit.DefaultHostRPM)
	v.SetDefault("indexer.status.failure_threshold", d.Indexer.Status.FailureThreshold)
	v.SetDefault("indexer.status.backoff_multiplier", d.Indexer.Status.BackoffMultiplier)
	v.SetDefault("indexer.status.max_backoff_hours", d.Indexer.Status.MaxBackoffHours)
	v.SetDefault("indexer.status.initial_backoff_minutes", d.Indexer.Status.InitialBackoffMinutes)
	v.SetDefault("autosearch.enabled", d.AutoSearch.Enabled)
	v.SetDefault("autosearch.interval_hours", d.AutoSearch.IntervalHours)
	v.SetDefault("health.backoff_sweep_interval", d.Health.BackoffSweepInterval)
	v.SetDefault("health.cache_sweep_interval", d.Health.CacheSweepInterval)
	v.SetDefault("download.category", d.Download.Category)
	v.SetDefault("download.qbittorrent.base_url", d.Download.QBittorrent.BaseURL)
}

func configHome() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}
	return "."
}

func getDataDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "orchestrd")
		}
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support", "orchestrd")
		}
	default:
		return filepath.Join(configHome(), "orchestrd")
	}
	return "./data"
}
