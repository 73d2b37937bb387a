package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                `yaml:"port"`
	Env            string             `yaml:"env"` // "development" | "production"
	AllowedOrigins []string           `yaml:"allowed_origins"`
	JWTSecret      string             `yaml:"jwt_secret"`
	Paths          RuntimePathsConfig `yaml:"paths"`
	Data           DataConfig         `yaml:"data"`
	Storage        StorageConfig      `yaml:"storage"`
	AI             AIConfig           `yaml:"ai"`
	Geocoder       GeocoderConfig     `yaml:"geocoder"`
	Slideshow      SlideshowConfig    `yaml:"slideshow"`
	Explorer       ExplorerConfig     `yaml:"explorer"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

// DataConfig locates the posts document.
type DataConfig struct {
	// Sources are tried in order; the first one that yields a document wins.
	// Entries are file paths, http(s) URLs or s3://bucket/key references.
	Sources        []string      `yaml:"sources"`
	BaseURL        string        `yaml:"base_url"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	S3             S3Config      `yaml:"s3"`
}

type S3Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}

type StorageConfig struct {
	Driver   string                `yaml:"driver"`
	Prefix   string                `yaml:"prefix"`
	Redis    RedisRuntimeConfig    `yaml:"redis"`
	Database DatabaseRuntimeConfig `yaml:"database"`
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

// AIConfig configures the optional AI ranking call.
type AIConfig struct {
	Provider       AIProviderConfig `yaml:"provider"`
	SecretsFile    string           `yaml:"secrets_file"`
	CandidateLimit int              `yaml:"candidate_limit"`
	DefaultTopN    int              `yaml:"default_top_n"`
	Timeout        time.Duration    `yaml:"timeout"`
}

type AIProviderConfig struct {
	Type     string `yaml:"type"` // openai | anthropic | openai-compatible
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

type GeocoderConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	UserAgent     string        `yaml:"user_agent"`
	Concurrency   int           `yaml:"concurrency"`
	MaxAttempts   int           `yaml:"max_attempts"`
	BaseDelay     time.Duration `yaml:"base_delay"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	WarmOnStart   bool          `yaml:"warm_on_start"`
}

type SlideshowConfig struct {
	DefaultIntervalMs int `yaml:"default_interval_ms"`
	// PrefetchImages downloads each slide image before it is shown.
	PrefetchImages bool `yaml:"prefetch_images"`
}

type ExplorerConfig struct {
	PageSize          int           `yaml:"page_size"`
	PageStep          int           `yaml:"page_step"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	AIModeConstraints string        `yaml:"ai_mode_constraints"`
}

type RateLimitConfig struct {
	Enable    bool `yaml:"enable"`
	PerMinute int  `yaml:"per_minute"`
}

// Load reads configPath. A missing file yields the defaults.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			normalize(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	if err := decode(&cfg, content); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	normalize(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%w in %q", err, path)
	}
	return &cfg, nil
}

// Parse decodes YAML content on top of the defaults.
func Parse(content []byte) (*AppConfig, error) {
	cfg := defaultAppConfig()
	if err := decode(&cfg, content); err != nil {
		return nil, err
	}
	normalize(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(cfg *AppConfig, content []byte) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Data: DataConfig{
			Sources:      append([]string(nil), DefaultSources...),
			FetchTimeout: 10 * time.Second,
			S3:           S3Config{Region: defaultS3Region, PathStyle: true},
		},
		Storage: StorageConfig{
			Driver: StorageMemory,
			Database: DatabaseRuntimeConfig{
				Host:      defaultDBHost,
				Port:      defaultDBPort,
				User:      defaultDBUser,
				Password:  defaultDBPassword,
				Name:      defaultDBName,
				Charset:   defaultDBCharset,
				ParseTime: true,
				Loc:       defaultDBLoc,
			},
			Redis: RedisRuntimeConfig{
				Host: defaultRedisHost,
				Port: defaultRedisPort,
				DB:   defaultRedisDB,
			},
		},
		AI: AIConfig{
			Provider:       AIProviderConfig{Type: "openai", Model: defaultAIModel},
			SecretsFile:    defaultAISecretsFile,
			CandidateLimit: defaultAICandidateLimit,
			DefaultTopN:    defaultAITopN,
			Timeout:        30 * time.Second,
		},
		Geocoder: GeocoderConfig{
			Endpoint:      defaultGeocoderEndpoint,
			UserAgent:     defaultGeocoderUserAgent,
			Concurrency:   defaultGeocoderConcurrency,
			MaxAttempts:   defaultGeocoderAttempts,
			BaseDelay:     defaultGeocoderBaseDelay,
			RatePerSecond: defaultGeocoderRate,
		},
		Slideshow: SlideshowConfig{DefaultIntervalMs: defaultSlideIntervalMs},
		Explorer: ExplorerConfig{
			PageSize:          defaultPageSize,
			PageStep:          defaultPageStep,
			SessionTTL:        defaultSessionTTL,
			AIModeConstraints: AIConstraintsIgnore,
		},
		RateLimit: RateLimitConfig{PerMinute: defaultRateLimitPerMinute},
	}
	return cfg
}

func validate(cfg *AppConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", cfg.Port)
	}
	switch cfg.Storage.Driver {
	case StorageMemory, StorageRedis, StorageMySQL:
	default:
		return fmt.Errorf("invalid storage.driver %q, expected memory, redis or mysql", cfg.Storage.Driver)
	}
	if cfg.Storage.Database.Port < 1 || cfg.Storage.Database.Port > 65535 {
		return fmt.Errorf("invalid storage.database.port %d, expected 1-65535", cfg.Storage.Database.Port)
	}
	if cfg.Storage.Redis.Port < 1 || cfg.Storage.Redis.Port > 65535 {
		return fmt.Errorf("invalid storage.redis.port %d, expected 1-65535", cfg.Storage.Redis.Port)
	}
	if cfg.Storage.Redis.DB < 0 {
		return fmt.Errorf("invalid storage.redis.db %d, expected >= 0", cfg.Storage.Redis.DB)
	}
	if len(cfg.Data.Sources) == 0 {
		return errors.New("data.sources must list at least one location")
	}
	switch cfg.Explorer.AIModeConstraints {
	case AIConstraintsIgnore, AIConstraintsApply:
	default:
		return fmt.Errorf("invalid explorer.ai_mode_constraints %q, expected ignore or apply", cfg.Explorer.AIModeConstraints)
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}
