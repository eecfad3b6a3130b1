package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/cancoktug/ginovainno-replit-sub001/media"
)

// AppConfig holds environment driven configuration values.
// Secrets have no defaults in code and must come from the config file or the environment.
type AppConfig struct {
	App      AppSection      `mapstructure:"app"`
	JWT      JWTSection      `mapstructure:"jwt"`
	Database DatabaseSection `mapstructure:"database"`
	Redis    RedisSection    `mapstructure:"redis"`
	Log      LogSection      `mapstructure:"log"`
	SMTP     SMTPSection     `mapstructure:"smtp"`
	Media    MediaSection    `mapstructure:"media"`
	Storage  StorageSection  `mapstructure:"storage"`
	Captcha  CaptchaSection  `mapstructure:"captcha"`
}

type AppSection struct {
	Port               string        `mapstructure:"port"`
	GinMode            string        `mapstructure:"gin_mode"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	// ContentCacheTTL controls how long public listings stay in Redis.
	ContentCacheTTL time.Duration `mapstructure:"content_cache_ttl"`
}

type JWTSection struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type DatabaseSection struct {
	// Driver is one of mysql, postgres or sqlite.
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisSection struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

type LogSection struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	GinPath    string `mapstructure:"gin_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type SMTPSection struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	TLS      bool   `mapstructure:"tls"`
	// NotifyTo receives contact form submissions.
	NotifyTo string `mapstructure:"notify_to"`
}

type MediaSection struct {
	MaxBytes      int64         `mapstructure:"max_bytes"`
	AllowedTypes  []string      `mapstructure:"allowed_types"`
	Categories    []string      `mapstructure:"categories"`
	Width         int           `mapstructure:"width"`
	Height        int           `mapstructure:"height"`
	Quality       int           `mapstructure:"quality"`
	MaxPixels     int           `mapstructure:"max_pixels"`
	Workers       int64         `mapstructure:"workers"`
	PublicBaseURL string        `mapstructure:"public_base_url"`
	PresignTTL    time.Duration `mapstructure:"presign_ttl"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
	// ObjectMaxBytes bounds direct (non-image) object uploads.
	ObjectMaxBytes int64 `mapstructure:"object_max_bytes"`
}

type StorageSection struct {
	// Driver is one of local, s3 or memory.
	Driver    string    `mapstructure:"driver"`
	Prefix    string    `mapstructure:"prefix"`
	LocalRoot string    `mapstructure:"local_root"`
	S3        S3Section `mapstructure:"s3"`
}

type S3Section struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

type CaptchaSection struct {
	Enabled bool `mapstructure:"enabled"`
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// DefaultConfigPath is read when Load is given an empty path; a missing file is not an error.
const DefaultConfigPath = "config/config.yaml"

// Load reads defaults, then the optional YAML file, then environment overrides.
// Environment keys are the upper-cased dotted keys with "." replaced by "_",
// e.g. MEDIA_MAX_BYTES or STORAGE_S3_BUCKET.
func Load(path string) (AppConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var out AppConfig
	if err := v.Unmarshal(&out); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	normalize(&out)

	mu.Lock()
	cfg = out
	loaded = true
	mu.Unlock()
	return out, nil
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()
	c, err := Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return c
}

// Set replaces the cached configuration.
func Set(c AppConfig) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// Validate reports the first fatal misconfiguration as a *media.ConfigurationError.
func Validate(c AppConfig) error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return &media.ConfigurationError{Field: "jwt.secret", Reason: "must be set (JWT_SECRET)"}
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return &media.ConfigurationError{Field: "database.driver", Reason: fmt.Sprintf("unsupported driver %q", c.Database.Driver)}
	}
	if c.Media.MaxBytes <= 0 {
		return &media.ConfigurationError{Field: "media.max_bytes", Reason: "must be positive"}
	}
	if c.Media.Quality < 1 || c.Media.Quality > 100 {
		return &media.ConfigurationError{Field: "media.quality", Reason: "must be between 1 and 100"}
	}
	if c.Media.Width <= 0 || c.Media.Height <= 0 {
		return &media.ConfigurationError{Field: "media.width/height", Reason: "must be positive"}
	}
	if _, err := media.NewResolver(c.Media.PublicBaseURL); err != nil {
		return err
	}
	switch c.Storage.Driver {
	case "local":
		if strings.TrimSpace(c.Storage.LocalRoot) == "" {
			return &media.ConfigurationError{Field: "storage.local_root", Reason: "required for the local driver"}
		}
	case "s3":
		if strings.TrimSpace(c.Storage.S3.Bucket) == "" {
			return &media.ConfigurationError{Field: "storage.s3.bucket", Reason: "required for the s3 driver"}
		}
		if strings.TrimSpace(c.Storage.S3.Region) == "" {
			return &media.ConfigurationError{Field: "storage.s3.region", Reason: "required for the s3 driver"}
		}
	case "memory":
	default:
		return &media.ConfigurationError{Field: "storage.driver", Reason: fmt.Sprintf("unsupported driver %q", c.Storage.Driver)}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.gin_mode", "release")
	v.SetDefault("app.allowed_origins", []string{"*"})
	v.SetDefault("app.rate_limit_per_minute", 60)
	v.SetDefault("app.shutdown_timeout", 10*time.Second)
	v.SetDefault("app.content_cache_ttl", time.Hour)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "ginova")
	v.SetDefault("jwt.ttl", 24*time.Hour)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "")
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "ginova")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "logs/app.log")
	v.SetDefault("log.gin_path", "logs/gin.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", false)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.from_name", "Ginova")
	v.SetDefault("smtp.tls", false)
	v.SetDefault("smtp.notify_to", "")

	v.SetDefault("media.max_bytes", 10<<20)
	v.SetDefault("media.allowed_types", media.DefaultAllowedTypes)
	v.SetDefault("media.categories", []string{"team", "mentors", "programs", "startups", "events", "blog", "general"})
	v.SetDefault("media.width", media.DefaultWidth)
	v.SetDefault("media.height", media.DefaultHeight)
	v.SetDefault("media.quality", media.DefaultQuality)
	v.SetDefault("media.max_pixels", media.DefaultMaxPixels)
	v.SetDefault("media.workers", 4)
	v.SetDefault("media.public_base_url", "/media")
	v.SetDefault("media.presign_ttl", 15*time.Minute)
	v.SetDefault("media.upload_timeout", time.Minute)
	v.SetDefault("media.object_max_bytes", 25<<20)

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.prefix", "uploads")
	v.SetDefault("storage.local_root", "data/objects")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.use_path_style", false)

	v.SetDefault("captcha.enabled", false)
}

func normalize(c *AppConfig) {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.App.AllowedOrigins = splitAndTrim(c.App.AllowedOrigins)
	c.Media.AllowedTypes = splitAndTrim(c.Media.AllowedTypes)
	c.Media.Categories = splitAndTrim(c.Media.Categories)
	if c.Database.Port == "" {
		if c.Database.Driver == "postgres" {
			c.Database.Port = "5432"
		} else {
			c.Database.Port = "3306"
		}
	}
}

// splitAndTrim flattens comma separated entries coming from env vars.
func splitAndTrim(in []string) []string {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		for _, item := range strings.Split(raw, ",") {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
