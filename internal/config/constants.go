package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 2333
	defaultEnv        = "development"

	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "memory_explorer"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultRedisDB    = 0

	defaultS3Region = "us-east-1"

	defaultAIModel          = "gpt-4o-mini"
	defaultAISecretsFile    = "secrets.json"
	defaultAICandidateLimit = 25
	defaultAITopN           = 10

	defaultGeocoderEndpoint    = "https://nominatim.openstreetmap.org/search"
	defaultGeocoderUserAgent   = "MemoryExplorerMap/1.0"
	defaultGeocoderConcurrency = 2
	defaultGeocoderAttempts    = 3
	defaultGeocoderBaseDelay   = 400 * time.Millisecond
	defaultGeocoderRate        = 1.0

	defaultSlideIntervalMs = 5000

	defaultPageSize   = 60
	defaultPageStep   = 40
	defaultSessionTTL = 24 * time.Hour

	defaultRateLimitPerMinute = 120
)

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageMySQL  = "mysql"
)

// How AI search results interact with the manual year/city/event/persons
// and favorites controls.
const (
	AIConstraintsIgnore = "ignore"
	AIConstraintsApply  = "apply"
)

// DefaultSources is the post document lookup order when none is configured.
var DefaultSources = []string{"./posts_full.json", "../posts_full.json", "/posts_full.json"}
