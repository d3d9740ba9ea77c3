package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Mapbox    MapboxConfig    `mapstructure:"mapbox"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	// BodyLimit caps request bodies in bytes; camera frames arrive base64
	// encoded so this must comfortably exceed the raw frame size.
	BodyLimit int `mapstructure:"body_limit"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Model is the default vision model; ThoroughModel is used where
	// skyline accuracy matters more than latency.
	Model         string `mapstructure:"model"`
	ThoroughModel string `mapstructure:"thorough_model"`
	// TimeoutSecs caps a single model invocation at the client; the
	// pipeline applies tighter per-operation deadlines on top.
	TimeoutSecs int `mapstructure:"timeout_secs"`
}

type MapboxConfig struct {
	AccessToken string `mapstructure:"access_token"`
	// TileZoom for Terrain-RGB elevation tiles. Zoom 14 gives roughly
	// 10 m horizontal resolution at mid latitudes.
	TileZoom int `mapstructure:"tile_zoom"`
}

type CacheConfig struct {
	FrameTTLSeconds    int `mapstructure:"frame_ttl_seconds"`
	TileTTLSeconds     int `mapstructure:"tile_ttl_seconds"`
	ManifestTTLSeconds int `mapstructure:"manifest_ttl_seconds"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.body_limit", 16*1024*1024)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dira")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "dira")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.thorough_model", "gemini-2.5-pro")
	v.SetDefault("gemini.timeout_secs", 30)
	v.SetDefault("mapbox.tile_zoom", 14)
	v.SetDefault("cache.frame_ttl_seconds", 300)
	v.SetDefault("cache.tile_ttl_seconds", 86400)
	v.SetDefault("cache.manifest_ttl_seconds", 86400)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "route-manifest")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: DIRA_GEMINI_API_KEY → gemini.api_key
	v.SetEnvPrefix("DIRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Gemini.Model == "" {
		errs = append(errs, "gemini.model is required")
	}
	if c.Mapbox.TileZoom < 0 || c.Mapbox.TileZoom > 22 {
		errs = append(errs, fmt.Sprintf("mapbox.tile_zoom must be 0-22, got %d", c.Mapbox.TileZoom))
	}
	if c.Cache.FrameTTLSeconds <= 0 {
		errs = append(errs, "cache.frame_ttl_seconds must be positive")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
