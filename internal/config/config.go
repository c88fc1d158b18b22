package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

// Config is the server and CLI configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Model     Model     `yaml:"model"`
	Rules     Rules     `yaml:"rules"`
	Redis     Redis     `yaml:"redis"`
	Detection Detection `yaml:"detection"`
}

type Server struct {
	Addr           string        `yaml:"addr"`
	GinMode        string        `yaml:"gin_mode"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	MaxBatchSize   int           `yaml:"max_batch_size"`
	StatsInterval  time.Duration `yaml:"stats_interval"`
}

type Model struct {
	ClassifierPath      string  `yaml:"classifier_path"`
	VectorizerPath      string  `yaml:"vectorizer_path"`
	FallbackProbability float64 `yaml:"fallback_probability"`
	// Preload loads the artifacts at startup instead of on first request.
	Preload bool `yaml:"preload"`
}

type Rules struct {
	CacheSize int `yaml:"cache_size"`
}

type Redis struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	Channel   string        `yaml:"channel"`
	MaxAlerts int64         `yaml:"max_alerts"`
	AlertTTL  time.Duration `yaml:"alert_ttl"`
}

type Detection struct {
	Workers int `yaml:"workers"`
	// AlertLevel is the lowest risk level that raises an alert.
	AlertLevel models.RiskLevel `yaml:"alert_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:           ":8888",
			GinMode:        "release",
			MaxUploadBytes: 10 << 20,
			MaxBatchSize:   10000,
			StatsInterval:  5 * time.Second,
		},
		Model: Model{
			ClassifierPath:      "models/url_model.json",
			VectorizerPath:      "models/vectorizer.json",
			FallbackProbability: 0.05,
		},
		Rules: Rules{CacheSize: 4096},
		Redis: Redis{
			Enabled:   false,
			Addr:      "localhost:6379",
			Channel:   "alerts",
			MaxAlerts: 500,
			AlertTTL:  24 * time.Hour,
		},
		Detection: Detection{
			AlertLevel: models.RiskHigh,
		},
	}
}

// Load reads path over the defaults, applies URLRISK_* overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("URLRISK_ADDR", &c.Server.Addr)
	str("URLRISK_GIN_MODE", &c.Server.GinMode)
	str("URLRISK_CLASSIFIER_PATH", &c.Model.ClassifierPath)
	str("URLRISK_VECTORIZER_PATH", &c.Model.VectorizerPath)
	boolean("URLRISK_MODEL_PRELOAD", &c.Model.Preload)
	if v, ok := lookup("URLRISK_FALLBACK_PROBABILITY"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("URLRISK_FALLBACK_PROBABILITY: %w", err))
		} else {
			c.Model.FallbackProbability = f
		}
	}
	integer("URLRISK_RULE_CACHE_SIZE", &c.Rules.CacheSize)
	boolean("URLRISK_REDIS_ENABLED", &c.Redis.Enabled)
	str("URLRISK_REDIS_ADDR", &c.Redis.Addr)
	str("URLRISK_REDIS_PASSWORD", &c.Redis.Password)
	integer("URLRISK_REDIS_DB", &c.Redis.DB)
	str("URLRISK_REDIS_CHANNEL", &c.Redis.Channel)
	integer("URLRISK_WORKERS", &c.Detection.Workers)
	if v, ok := lookup("URLRISK_ALERT_LEVEL"); ok {
		c.Detection.AlertLevel = models.RiskLevel(strings.TrimSpace(v))
	}
	return errors.Join(errs...)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.gin_mode %q must be one of: debug, release, test", c.Server.GinMode))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be > 0"))
	}
	if c.Server.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("server.max_batch_size must be > 0"))
	}
	if c.Server.StatsInterval <= 0 {
		errs = append(errs, errors.New("server.stats_interval must be > 0"))
	}
	if c.Model.ClassifierPath == "" || c.Model.VectorizerPath == "" {
		errs = append(errs, errors.New("model.classifier_path and model.vectorizer_path are required"))
	}
	if p := c.Model.FallbackProbability; p < 0 || p >= 0.5 {
		errs = append(errs, fmt.Errorf("model.fallback_probability %v must be in [0, 0.5)", p))
	}
	if c.Rules.CacheSize < 0 {
		errs = append(errs, errors.New("rules.cache_size must be >= 0"))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	if c.Redis.MaxAlerts < 0 {
		errs = append(errs, errors.New("redis.max_alerts must be >= 0"))
	}
	if c.Detection.Workers < 0 {
		errs = append(errs, errors.New("detection.workers must be >= 0"))
	}
	switch c.Detection.AlertLevel {
	case models.RiskLow, models.RiskMedium, models.RiskHigh:
	default:
		errs = append(errs, fmt.Errorf("detection.alert_level %q must be one of: Low, Medium, High", c.Detection.AlertLevel))
	}
	return errors.Join(errs...)
}
