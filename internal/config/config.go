package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	YouTubeAPIKey  string `mapstructure:"youtube_api_key"`
	OutletsFile    string `mapstructure:"outlets_file"`
	PublishersFile string `mapstructure:"publishers_file"`
	ReportDir      string `mapstructure:"report_dir"`

	WindowDays          int           `mapstructure:"window_days"`
	MineIntervalSeconds int64         `mapstructure:"mine_interval"`
	MineInterval        time.Duration `mapstructure:"-"`

	RequestDelayMinMs      int           `mapstructure:"request_delay_min_ms"`
	RequestDelayMaxMs      int           `mapstructure:"request_delay_max_ms"`
	RequestDelayMin        time.Duration `mapstructure:"-"`
	RequestDelayMax        time.Duration `mapstructure:"-"`
	RequestsPerSecond      float64       `mapstructure:"requests_per_second"`
	RecommendationAttempts int           `mapstructure:"recommendation_attempts"`
	ChannelConcurrency     int           `mapstructure:"channel_concurrency"`
	MaxPlaylistVideos      int           `mapstructure:"max_playlist_videos"`

	HTTPTimeoutSeconds   int           `mapstructure:"http_timeout_seconds"`
	HTTPTimeout          time.Duration `mapstructure:"-"`
	ScraperUserAgent     string        `mapstructure:"scraper_user_agent"`
	RecommendationSource string        `mapstructure:"recommendation_source"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	SQLitePath             string        `mapstructure:"sqlite_path"`
	FileStoreDir           string        `mapstructure:"file_store_dir"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/113.0.0.0 Safari/537.36"

// ErrMissingAPIKey is returned by RequireAPIKey when YOUTUBE_API_KEY is not set.
var ErrMissingAPIKey = errors.New("YOUTUBE_API_KEY is not set (configure it in configs/.env or the environment)")

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "yt-bias-miner")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("youtube_api_key", "")
	v.SetDefault("outlets_file", "./configs/media-bias.json")
	v.SetDefault("publishers_file", "")
	v.SetDefault("report_dir", "./reports")

	v.SetDefault("window_days", 100)
	v.SetDefault("mine_interval", int64((24*time.Hour)/time.Second))

	v.SetDefault("request_delay_min_ms", 1000)
	v.SetDefault("request_delay_max_ms", 3000)
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("recommendation_attempts", 2)
	v.SetDefault("channel_concurrency", 1)
	v.SetDefault("max_playlist_videos", 10000)

	v.SetDefault("http_timeout_seconds", 10)
	v.SetDefault("scraper_user_agent", defaultUserAgent)
	v.SetDefault("recommendation_source", "watch_page")

	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/cache.db")
	v.SetDefault("sqlite_path", "./data/miner.sqlite")
	v.SetDefault("file_store_dir", "./data")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
}

// normalize validates raw values and derives the duration fields.
func (cfg *Config) normalize() error {
	cfg.YouTubeAPIKey = strings.TrimSpace(cfg.YouTubeAPIKey)
	cfg.RecommendationSource = strings.ToLower(strings.TrimSpace(cfg.RecommendationSource))

	if cfg.WindowDays <= 0 {
		return fmt.Errorf("invalid window_days (must be positive days)")
	}
	if cfg.MineIntervalSeconds <= 0 {
		return fmt.Errorf("invalid mine_interval (must be positive seconds)")
	}
	cfg.MineInterval = time.Duration(cfg.MineIntervalSeconds) * time.Second

	if cfg.RequestDelayMinMs < 0 || cfg.RequestDelayMaxMs < 0 {
		return fmt.Errorf("invalid request delay (must not be negative)")
	}
	if cfg.RequestDelayMinMs > cfg.RequestDelayMaxMs {
		return fmt.Errorf("invalid request delay: request_delay_min_ms %d exceeds request_delay_max_ms %d",
			cfg.RequestDelayMinMs, cfg.RequestDelayMaxMs)
	}
	cfg.RequestDelayMin = time.Duration(cfg.RequestDelayMinMs) * time.Millisecond
	cfg.RequestDelayMax = time.Duration(cfg.RequestDelayMaxMs) * time.Millisecond

	if cfg.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid requests_per_second (must not be negative)")
	}
	if cfg.RecommendationAttempts < 1 {
		return fmt.Errorf("invalid recommendation_attempts (must be at least 1)")
	}
	if cfg.ChannelConcurrency < 1 {
		return fmt.Errorf("invalid channel_concurrency (must be at least 1)")
	}
	if cfg.MaxPlaylistVideos <= 0 {
		return fmt.Errorf("invalid max_playlist_videos (must be positive)")
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return nil
}

// RequireAPIKey reports an error when the YouTube Data API key is missing.
func (cfg *Config) RequireAPIKey() error {
	if cfg == nil || cfg.YouTubeAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// StoragePath returns the location used by the configured storage backend.
func (cfg *Config) StoragePath() string {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageType)) {
	case "sqlite":
		return cfg.SQLitePath
	case "file":
		return cfg.FileStoreDir
	default:
		return cfg.BBoltPath
	}
}

// Redacted returns a copy safe for logging.
func (cfg Config) Redacted() Config {
	if cfg.YouTubeAPIKey != "" {
		cfg.YouTubeAPIKey = "***"
	}
	return cfg
}
