package config

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
	"github.com/cypherlabdev/odds-analytics-service/internal/service"
)

const envPrefix = "ODDS_ANALYTICS"

// Config holds all configuration for odds-analytics-service
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Artifacts  ArtifactsConfig  `mapstructure:"artifacts"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Detection  DetectionConfig  `mapstructure:"detection"`
	Consensus  ConsensusConfig  `mapstructure:"consensus"`
	Movements  MovementsConfig  `mapstructure:"movements"`
	Bookmakers BookmakersConfig `mapstructure:"bookmakers"`
	Leagues    LeaguesConfig    `mapstructure:"leagues"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
}

// ProviderConfig holds odds provider client configuration
type ProviderConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	EventsTTL  time.Duration `mapstructure:"events_ttl"`
	LiveTTL    time.Duration `mapstructure:"live_ttl"`
	LeaguesTTL time.Duration `mapstructure:"leagues_ttl"`
	OddsTTL    time.Duration `mapstructure:"odds_ttl"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	TriggerTopic string   `mapstructure:"trigger_topic"` // consumed: generation_triggers
	UpdateTopic  string   `mapstructure:"update_topic"`  // produced: artifact_updates
	GroupID      string   `mapstructure:"group_id"`
}

// PostgresConfig holds PostgreSQL configuration. An empty DSN keeps
// generation state in memory.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ArtifactsConfig selects where generated files are written
type ArtifactsConfig struct {
	Backend string   `mapstructure:"backend"` // file, s3
	Dir     string   `mapstructure:"dir"`
	S3      S3Config `mapstructure:"s3"`
}

// S3Config holds S3 compatible object storage configuration
type S3Config struct {
	Endpoint       string `mapstructure:"endpoint"`
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	Prefix         string `mapstructure:"prefix"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
}

// PipelineConfig holds generation and refresh settings
type PipelineConfig struct {
	Workers         int           `mapstructure:"workers"`
	QueueSize       int           `mapstructure:"queue_size"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	ActiveWindow    time.Duration `mapstructure:"active_window"`
	PruneAt         string        `mapstructure:"prune_at"`
}

// DetectionConfig holds the value bet and arbitrage defaults
type DetectionConfig struct {
	MinEV          float64 `mapstructure:"min_ev"`     // percent
	ValueBetLimit  int     `mapstructure:"value_bet_limit"`
	MinProfit      float64 `mapstructure:"min_profit"` // percent
	ArbitrageLimit int     `mapstructure:"arbitrage_limit"`
	TotalStake     float64 `mapstructure:"total_stake"`
}

// ConsensusConfig selects the consensus method
type ConsensusConfig struct {
	Method string `mapstructure:"method"` // mean, novig
}

// MovementsConfig selects the movement log backend
type MovementsConfig struct {
	Backend   string        `mapstructure:"backend"` // redis, postgres, memory
	Retention time.Duration `mapstructure:"retention"`
}

// BookmakersConfig holds the bookmaker set used when a request names none
// and the bookmakers licensed per region
type BookmakersConfig struct {
	Default []string            `mapstructure:"default"`
	Regions map[string][]string `mapstructure:"regions"`
}

// LeaguesConfig restricts event listings. An empty whitelist lists every league.
type LeaguesConfig struct {
	Whitelist []string `mapstructure:"whitelist"` // slugs or names, * and ? allowed
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig loads configuration from .env, an optional file and environment
// variables, in increasing precedence
func LoadConfig(configPath string) (*Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// Read config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("provider.base_url", "https://api.odds-api.io/v3")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.timeout", 10*time.Second)
	v.SetDefault("provider.events_ttl", 5*time.Minute)
	v.SetDefault("provider.live_ttl", 30*time.Second)
	v.SetDefault("provider.leagues_ttl", 24*time.Hour)
	v.SetDefault("provider.odds_ttl", 60*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "odds:")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.trigger_topic", "generation_triggers")
	v.SetDefault("kafka.update_topic", "artifact_updates")
	v.SetDefault("kafka.group_id", "odds-analytics")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 1)

	v.SetDefault("artifacts.backend", "file")
	v.SetDefault("artifacts.dir", "./data/artifacts")
	v.SetDefault("artifacts.s3.endpoint", "")
	v.SetDefault("artifacts.s3.region", "us-east-1")
	v.SetDefault("artifacts.s3.bucket", "")
	v.SetDefault("artifacts.s3.prefix", "artifacts")
	v.SetDefault("artifacts.s3.access_key", "")
	v.SetDefault("artifacts.s3.secret_key", "")
	v.SetDefault("artifacts.s3.use_ssl", true)
	v.SetDefault("artifacts.s3.force_path_style", false)

	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.queue_size", 100)
	v.SetDefault("pipeline.run_timeout", 60*time.Second)
	v.SetDefault("pipeline.refresh_interval", 5*time.Minute)
	v.SetDefault("pipeline.active_window", time.Hour)
	v.SetDefault("pipeline.prune_at", "03:00")

	v.SetDefault("detection.min_ev", 2.0)
	v.SetDefault("detection.value_bet_limit", 10)
	v.SetDefault("detection.min_profit", 1.0)
	v.SetDefault("detection.arbitrage_limit", 5)
	v.SetDefault("detection.total_stake", 100.0)

	v.SetDefault("consensus.method", "mean")

	v.SetDefault("movements.backend", "redis")
	v.SetDefault("movements.retention", 30*24*time.Hour)

	v.SetDefault("bookmakers.default", []string{"betano", "sportingbet", "betfair", "bet365"})
	v.SetDefault("bookmakers.regions", map[string][]string{
		"br": {"betano", "sportingbet", "betfair", "bet365"},
	})
	v.SetDefault("leagues.whitelist", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects combinations the service cannot start with
func (c *Config) Validate() error {
	switch c.Artifacts.Backend {
	case "file":
		if c.Artifacts.Dir == "" {
			return fmt.Errorf("artifacts.dir is required for the file backend")
		}
	case "s3":
		if c.Artifacts.S3.Bucket == "" {
			return fmt.Errorf("artifacts.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown artifacts.backend %q", c.Artifacts.Backend)
	}

	switch c.Movements.Backend {
	case "redis", "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the postgres movements backend")
		}
	default:
		return fmt.Errorf("unknown movements.backend %q", c.Movements.Backend)
	}

	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must not be negative")
	}
	if len(c.Bookmakers.Default) == 0 {
		return fmt.Errorf("bookmakers.default must name at least one bookmaker")
	}
	for region, books := range c.Bookmakers.Regions {
		if len(models.CanonicalBookmakers(books)) == 0 {
			return fmt.Errorf("bookmakers.regions.%s must name at least one bookmaker", region)
		}
	}
	for _, pattern := range c.Leagues.Whitelist {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid leagues.whitelist entry %q: %w", pattern, err)
		}
	}
	return nil
}

// Regions returns the region bookmaker sets keyed by lowercase region code
func (c *Config) Regions() models.Regions {
	regions := make(models.Regions, len(c.Bookmakers.Regions))
	for code, books := range c.Bookmakers.Regions {
		regions[strings.ToLower(code)] = books
	}
	return regions
}

// ToDefaults converts config to the analytics query defaults
func (c *Config) ToDefaults() service.Defaults {
	return service.Defaults{
		Bookmakers:      c.Bookmakers.Default,
		MinEV:           c.Detection.MinEV,
		ValueBetLimit:   c.Detection.ValueBetLimit,
		MinProfit:       c.Detection.MinProfit,
		ArbitrageLimit:  c.Detection.ArbitrageLimit,
		TotalStake:      decimal.NewFromFloat(c.Detection.TotalStake),
		Regions:         c.Regions(),
		LeagueWhitelist: c.Leagues.Whitelist,
	}
}
