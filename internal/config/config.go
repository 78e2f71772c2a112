package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/kodama/internal/provider/openai"
)

// Config represents the engine configuration.
type Config struct {
	Server ServerConfig
	CORS   CORSConfig
	OpenAI openai.Config
	Redis  RedisConfig
	Cache  CacheConfig
	Agents AgentsConfig
	Search SearchConfig
	Batch  BatchConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"120"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// RedisConfig contains chunk store settings. When Addr is empty the
// in-memory chunk store is used instead.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"     envDefault:""`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB"       envDefault:"0"`
}

// CacheConfig bounds the embedding and response caches.
type CacheConfig struct {
	EmbeddingMaxSize   int `env:"CACHE_EMBEDDING_MAX_SIZE"   envDefault:"2048"`
	EmbeddingTTLHours  int `env:"CACHE_EMBEDDING_TTL_HOURS"  envDefault:"24"`
	ResponseMaxSize    int `env:"CACHE_RESPONSE_MAX_SIZE"    envDefault:"1024"`
	ResponseTTLMinutes int `env:"CACHE_RESPONSE_TTL_MINUTES" envDefault:"60"`
}

// AgentsConfig tunes the shared agent execution policy.
type AgentsConfig struct {
	MaxRetries       int     `env:"AGENT_MAX_RETRIES"       envDefault:"3"`
	RateLimit        int     `env:"AGENT_RATE_LIMIT_RPM"    envDefault:"60"`
	CallTimeoutSecs  int     `env:"AGENT_CALL_TIMEOUT"      envDefault:"60"`
	AccuracyPriority float64 `env:"AGENT_ACCURACY_PRIORITY" envDefault:"0.4"`
	CostPriority     float64 `env:"AGENT_COST_PRIORITY"     envDefault:"0.3"`
	SpeedPriority    float64 `env:"AGENT_SPEED_PRIORITY"    envDefault:"0.3"`
}

// SearchConfig tunes similarity search. Weights are a plain weighted sum
// and are intentionally not normalized.
type SearchConfig struct {
	Hybrid         bool    `env:"SEARCH_HYBRID"          envDefault:"false"`
	SemanticWeight float64 `env:"SEARCH_SEMANTIC_WEIGHT" envDefault:"0.7"`
	KeywordWeight  float64 `env:"SEARCH_KEYWORD_WEIGHT"  envDefault:"0.3"`
	Threshold      float64 `env:"SEARCH_THRESHOLD"       envDefault:"0.3"`
	Limit          int     `env:"SEARCH_LIMIT"           envDefault:"10"`
}

// BatchConfig tunes optional request batching.
type BatchConfig struct {
	Size        int `env:"BATCH_SIZE"         envDefault:"8"`
	MaxWaitSecs int `env:"BATCH_MAX_WAIT"     envDefault:"2"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*openai.Config
	*RedisConfig
	*CacheConfig
	*AgentsConfig
	*SearchConfig
	*BatchConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.OpenAI,
		&cfg.Redis,
		&cfg.Cache,
		&cfg.Agents,
		&cfg.Search,
		&cfg.Batch,
	}
}
