// Package config loads service configuration from config.toml and HOUSIKA_*
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. HOUSIKA_HTTP_PORT.
const EnvPrefix = "HOUSIKA"

// Config holds all configuration for the receipt service
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Redis     RedisConfig
	S3        S3Config
	Assets    AssetsConfig
	QR        QRConfig
	Layout    LayoutConfig
	Delivery  DeliveryConfig
	Telemetry TelemetryConfig
	Profiling ProfilingConfig
}

// AppConfig holds application identity
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	RequestTimeout   time.Duration
	MaxBodySize      int64
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// RedisConfig configures the shared asset cache tier.
type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// S3Config configures object storage for asset fetches and the S3 delivery sink.
type S3Config struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	// LinkExpiry bounds presigned links to saved receipts.
	LinkExpiry time.Duration
}

// AssetsConfig configures the asset cache.
type AssetsConfig struct {
	LogoSource   string // bundled:logo.png, file path, http(s):// or s3:// URL
	FetchTimeout time.Duration
	MaxBytes     int64
}

// QRConfig configures the verification QR code.
type QRConfig struct {
	Level  string // low, medium, high, highest
	Size   int    // pixels
	Margin int    // quiet zone in modules
}

// LayoutConfig configures the page renderer.
type LayoutConfig struct {
	CompressStreams bool
}

// DeliveryConfig configures handle lifetime and the default save sink.
type DeliveryConfig struct {
	Sink          string // filesystem, s3
	OutputDir     string
	S3Prefix      string
	HandleTTL     time.Duration
	SweepInterval time.Duration
	// Retention removes saved receipts from OutputDir after this age. Zero keeps them.
	Retention time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled               bool
	CollectorEndpoint     string
	SamplingRatio         float64
	ServiceName           string
	Insecure              bool
	MetricsExportInterval time.Duration
	LogsEnabled           bool
}

// ProfilingConfig holds Pyroscope configuration
type ProfilingConfig struct {
	Enabled         bool
	ServerAddress   string
	ApplicationName string
	SpanProfiles    bool
}

// Load reads config.toml (optional) from the working directory or /app and
// applies HOUSIKA_* environment overrides.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

// LoadFile reads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Zero is a meaningful margin, so its default cannot come from applyDefaults.
	v.SetDefault("qr.margin", 2)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			RequestTimeout:   v.GetDuration("http.request_timeout"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			RateLimitEnabled: v.GetBool("http.rate_limit_enabled"),
			RateLimitRPS:     v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:   v.GetInt("http.rate_limit_burst"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Redis: RedisConfig{
			Enabled:   v.GetBool("redis.enabled"),
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		S3: S3Config{
			Enabled:         v.GetBool("s3.enabled"),
			Endpoint:        v.GetString("s3.endpoint"),
			Region:          v.GetString("s3.region"),
			Bucket:          v.GetString("s3.bucket"),
			AccessKeyID:     v.GetString("s3.access_key_id"),
			SecretAccessKey: v.GetString("s3.secret_access_key"),
			UsePathStyle:    v.GetBool("s3.use_path_style"),
			LinkExpiry:      v.GetDuration("s3.link_expiry"),
		},
		Assets: AssetsConfig{
			LogoSource:   v.GetString("assets.logo_source"),
			FetchTimeout: v.GetDuration("assets.fetch_timeout"),
			MaxBytes:     v.GetInt64("assets.max_bytes"),
		},
		QR: QRConfig{
			Level:  v.GetString("qr.level"),
			Size:   v.GetInt("qr.size"),
			Margin: v.GetInt("qr.margin"),
		},
		Layout: LayoutConfig{
			CompressStreams: v.GetBool("layout.compress_streams"),
		},
		Delivery: DeliveryConfig{
			Sink:          v.GetString("delivery.sink"),
			OutputDir:     v.GetString("delivery.output_dir"),
			S3Prefix:      v.GetString("delivery.s3_prefix"),
			HandleTTL:     v.GetDuration("delivery.handle_ttl"),
			SweepInterval: v.GetDuration("delivery.sweep_interval"),
			Retention:     v.GetDuration("delivery.retention"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
			LogsEnabled:           v.GetBool("telemetry.logs_enabled"),
		},
		Profiling: ProfilingConfig{
			Enabled:         v.GetBool("profiling.enabled"),
			ServerAddress:   v.GetString("profiling.server_address"),
			ApplicationName: v.GetString("profiling.application_name"),
			SpanProfiles:    v.GetBool("profiling.span_profiles"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "housika-receipts"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.RequestTimeout == 0 {
		cfg.HTTP.RequestTimeout = 20 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 64 << 10
	}
	if cfg.HTTP.RateLimitRPS == 0 {
		cfg.HTTP.RateLimitRPS = 10
	}
	if cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = 20
	}
	if len(cfg.HTTP.CORSAllowOrigins) == 0 {
		cfg.HTTP.CORSAllowOrigins = []string{"http://localhost:3000"}
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "housika:asset:"
	}

	if cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
	if cfg.S3.LinkExpiry == 0 {
		cfg.S3.LinkExpiry = 15 * time.Minute
	}

	if cfg.Assets.LogoSource == "" {
		cfg.Assets.LogoSource = "bundled:logo.png"
	}
	if cfg.Assets.FetchTimeout == 0 {
		cfg.Assets.FetchTimeout = 10 * time.Second
	}
	if cfg.Assets.MaxBytes == 0 {
		cfg.Assets.MaxBytes = 2 << 20
	}

	if cfg.QR.Level == "" {
		cfg.QR.Level = "highest"
	}
	if cfg.QR.Size == 0 {
		cfg.QR.Size = 256
	}

	if cfg.Delivery.Sink == "" {
		cfg.Delivery.Sink = "filesystem"
	}
	if cfg.Delivery.OutputDir == "" {
		cfg.Delivery.OutputDir = "./receipts"
	}
	if cfg.Delivery.S3Prefix == "" {
		cfg.Delivery.S3Prefix = "receipts/"
	}
	if cfg.Delivery.HandleTTL == 0 {
		cfg.Delivery.HandleTTL = 15 * time.Minute
	}
	if cfg.Delivery.SweepInterval == 0 {
		cfg.Delivery.SweepInterval = time.Minute
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}

	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = cfg.App.Name
	}
}

var (
	validQRLevels = map[string]bool{"low": true, "medium": true, "high": true, "highest": true}
	validSinks    = map[string]bool{"filesystem": true, "s3": true}
)

func (c *Config) validate() error {
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if !validQRLevels[strings.ToLower(c.QR.Level)] {
		return fmt.Errorf("qr.level must be one of low, medium, high, highest, got %q", c.QR.Level)
	}
	if c.QR.Size < 21 {
		return fmt.Errorf("qr.size must be at least 21 pixels, got %d", c.QR.Size)
	}
	if c.QR.Margin < 0 {
		return fmt.Errorf("qr.margin cannot be negative")
	}
	if !validSinks[c.Delivery.Sink] {
		return fmt.Errorf("delivery.sink must be filesystem or s3, got %q", c.Delivery.Sink)
	}
	if c.Delivery.Sink == "s3" && !c.S3.Enabled {
		return fmt.Errorf("delivery.sink=s3 requires s3.enabled=true")
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when s3 is enabled")
	}
	if c.Delivery.HandleTTL <= 0 || c.Delivery.SweepInterval <= 0 {
		return fmt.Errorf("delivery.handle_ttl and delivery.sweep_interval must be positive")
	}
	if c.Delivery.Retention < 0 {
		return fmt.Errorf("delivery.retention cannot be negative")
	}
	if c.HTTP.RateLimitRPS < 0 || c.HTTP.RateLimitBurst < 0 {
		return fmt.Errorf("http rate limit settings cannot be negative")
	}

	if c.App.Env == "production" {
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.S3.Enabled && (c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "") {
			return fmt.Errorf("s3 credentials are required in production")
		}
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
