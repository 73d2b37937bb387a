package config

import (
	"strings"
	"time"
)

func normalize(cfg *AppConfig) {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	cfg.Paths.Logs = strings.TrimSpace(cfg.Paths.Logs)
	cfg.Data = normalizeDataConfig(cfg.Data)
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageMemory
	}
	cfg.Storage.Prefix = strings.TrimSpace(cfg.Storage.Prefix)
	cfg.Storage.Database = normalizeDatabaseConfig(cfg.Storage.Database)
	cfg.Storage.Redis = normalizeRedisConfig(cfg.Storage.Redis)
	cfg.AI = normalizeAIConfig(cfg.AI)
	cfg.Geocoder = normalizeGeocoderConfig(cfg.Geocoder)
	if cfg.Slideshow.DefaultIntervalMs <= 0 {
		cfg.Slideshow.DefaultIntervalMs = defaultSlideIntervalMs
	}
	cfg.Explorer = normalizeExplorerConfig(cfg.Explorer)
	if cfg.RateLimit.PerMinute <= 0 {
		cfg.RateLimit.PerMinute = defaultRateLimitPerMinute
	}
}

func normalizeDataConfig(cfg DataConfig) DataConfig {
	sources := make([]string, 0, len(cfg.Sources))
	seen := make(map[string]struct{}, len(cfg.Sources))
	for _, src := range cfg.Sources {
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		sources = append(sources, trimmed)
	}
	cfg.Sources = sources
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.ReloadInterval < 0 {
		cfg.ReloadInterval = 0
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	cfg.S3.Region = strings.TrimSpace(cfg.S3.Region)
	if cfg.S3.Region == "" {
		cfg.S3.Region = defaultS3Region
	}
	cfg.S3.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.S3.Endpoint), "/")
	cfg.S3.AccessKeyID = strings.TrimSpace(cfg.S3.AccessKeyID)
	cfg.S3.SecretAccessKey = strings.TrimSpace(cfg.S3.SecretAccessKey)
	return cfg
}

func normalizeDatabaseConfig(cfg DatabaseRuntimeConfig) DatabaseRuntimeConfig {
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.Password = strings.TrimSpace(cfg.Password)
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Charset = strings.TrimSpace(cfg.Charset)
	cfg.Loc = strings.TrimSpace(cfg.Loc)

	if cfg.Host == "" {
		cfg.Host = defaultDBHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultDBPort
	}
	if cfg.User == "" {
		cfg.User = defaultDBUser
	}
	if cfg.Name == "" {
		cfg.Name = defaultDBName
	}
	if cfg.Charset == "" {
		cfg.Charset = defaultDBCharset
	}
	if cfg.Loc == "" {
		cfg.Loc = defaultDBLoc
	}
	if cfg.Params != nil {
		cfg.Params = copyStringMap(cfg.Params)
	}
	return cfg
}

func normalizeRedisConfig(cfg RedisRuntimeConfig) RedisRuntimeConfig {
	cfg.URL = normalizeRedisRawURL(cfg.URL)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)
	cfg.Scheme = strings.ToLower(strings.TrimSpace(cfg.Scheme))

	if cfg.Host == "" && cfg.URL == "" {
		cfg.Host = defaultRedisHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultRedisPort
	}
	if cfg.Scheme == "" {
		if cfg.TLS {
			cfg.Scheme = "rediss"
		} else {
			cfg.Scheme = "redis"
		}
	}
	if cfg.Params != nil {
		cfg.Params = copyStringMap(cfg.Params)
	}
	return cfg
}

func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func normalizeAIConfig(cfg AIConfig) AIConfig {
	cfg.Provider.Type = strings.ToLower(strings.TrimSpace(cfg.Provider.Type))
	if cfg.Provider.Type == "" {
		cfg.Provider.Type = "openai"
	}
	cfg.Provider.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Provider.Endpoint), "/")
	cfg.Provider.APIKey = strings.TrimSpace(cfg.Provider.APIKey)
	cfg.Provider.Model = strings.TrimSpace(cfg.Provider.Model)
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = defaultAIModel
	}
	cfg.SecretsFile = strings.TrimSpace(cfg.SecretsFile)
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = defaultAICandidateLimit
	}
	if cfg.DefaultTopN <= 0 {
		cfg.DefaultTopN = defaultAITopN
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return cfg
}

func normalizeGeocoderConfig(cfg GeocoderConfig) GeocoderConfig {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultGeocoderEndpoint
	}
	cfg.UserAgent = strings.TrimSpace(cfg.UserAgent)
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultGeocoderUserAgent
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultGeocoderConcurrency
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultGeocoderAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultGeocoderBaseDelay
	}
	if cfg.RatePerSecond < 0 {
		cfg.RatePerSecond = 0
	}
	return cfg
}

func normalizeExplorerConfig(cfg ExplorerConfig) ExplorerConfig {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.PageStep <= 0 {
		cfg.PageStep = defaultPageStep
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	cfg.AIModeConstraints = strings.ToLower(strings.TrimSpace(cfg.AIModeConstraints))
	if cfg.AIModeConstraints == "" {
		cfg.AIModeConstraints = AIConstraintsIgnore
	}
	return cfg
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}

func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
