// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (sources, indexer, tokenizer, search, Redis, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Workdir   string          `yaml:"workdir"`
	Sources   []SourceConfig  `yaml:"sources"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Sqlite    SqliteConfig    `yaml:"sqlite"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// SourceConfig names one document source. The field names match the
// config.yml written for earlier sagasu releases.
type SourceConfig struct {
	Kind   string `yaml:"source_type"`
	Target string `yaml:"target"`
}

// IndexerConfig controls n-gram widths, worker parallelism and where
// snapshots are written.
type IndexerConfig struct {
	Widths      []int         `yaml:"widths"`
	Parallelism int           `yaml:"parallelism"`
	SnapshotDir string        `yaml:"snapshotDir"`
	LoadTimeout time.Duration `yaml:"loadTimeout"`
}

// TokenizerConfig selects the tokenizer implementation: "word" (morphological
// segmentation), "whitespace" or "char".
type TokenizerConfig struct {
	Mode string `yaml:"mode"`
}

// SearchConfig controls the query engine cache and result preview.
type SearchConfig struct {
	CacheSize    int `yaml:"cacheSize"`
	DefaultLimit int `yaml:"defaultLimit"`
	PreviewRunes int `yaml:"previewRunes"`
}

// ServerConfig holds HTTP server settings. Host defaults to loopback.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	WatchSnapshots  bool          `yaml:"watchSnapshots"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SqliteConfig points at the SQLite database used by sqlite sources.
type SqliteConfig struct {
	Path string `yaml:"path"`
}

// KafkaConfig holds Kafka broker and topic settings. An empty broker list
// disables index-complete notifications.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete string `yaml:"indexComplete"`
}

// RedisConfig holds Redis connection and caching parameters. An empty Addr
// disables the shared lookup cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// DefaultWorkdir returns $SAGASU_WORKDIR or ~/.sagasu.
func DefaultWorkdir() string {
	if v := os.Getenv("SAGASU_WORKDIR"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sagasu"
	}
	return filepath.Join(home, ".sagasu")
}

// DefaultPath returns the config.yml location inside the default workdir.
func DefaultPath() string {
	return filepath.Join(DefaultWorkdir(), "config", "config.yml")
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the indexing engine cannot run with.
func (c *Config) Validate() error {
	if len(c.Indexer.Widths) == 0 {
		return fmt.Errorf("indexer.widths must list at least one n-gram width")
	}
	for _, n := range c.Indexer.Widths {
		if n < 1 {
			return fmt.Errorf("indexer.widths: width %d must be positive", n)
		}
	}
	if c.Indexer.Parallelism < 1 {
		return fmt.Errorf("indexer.parallelism must be at least 1, got %d", c.Indexer.Parallelism)
	}
	for i, s := range c.Sources {
		if s.Kind == "" {
			return fmt.Errorf("sources[%d]: source_type is required", i)
		}
	}
	return nil
}

// defaultConfig returns a Config with defaults for a single-user install.
func defaultConfig() *Config {
	return &Config{
		Workdir: DefaultWorkdir(),
		Indexer: IndexerConfig{
			Widths:      []int{1, 2, 3},
			Parallelism: 4,
			LoadTimeout: 2 * time.Minute,
		},
		Tokenizer: TokenizerConfig{
			Mode: "word",
		},
		Search: SearchConfig{
			CacheSize:    1024,
			DefaultLimit: 20,
			PreviewRunes: 200,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			WatchSnapshots:  true,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "sagasu",
			User:            "sagasu",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "sagasu-search",
			Topics: KafkaTopics{
				IndexComplete: "index.complete",
			},
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// resolvePaths fills workdir-relative locations left empty by the file.
func (c *Config) resolvePaths() {
	if c.Indexer.SnapshotDir == "" {
		c.Indexer.SnapshotDir = filepath.Join(c.Workdir, "index")
	}
	if c.Sqlite.Path == "" {
		c.Sqlite.Path = filepath.Join(c.Workdir, "sagasu.db")
	}
}

// applyEnvOverrides reads SAGASU_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SAGASU_WORKDIR"); v != "" {
		cfg.Workdir = v
	}
	if v := os.Getenv("SAGASU_INDEXER_WIDTHS"); v != "" {
		var widths []int
		for _, part := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				widths = nil
				break
			}
			widths = append(widths, n)
		}
		if widths != nil {
			cfg.Indexer.Widths = widths
		}
	}
	if v := os.Getenv("SAGASU_INDEXER_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Parallelism = n
		}
	}
	if v := os.Getenv("SAGASU_SNAPSHOT_DIR"); v != "" {
		cfg.Indexer.SnapshotDir = v
	}
	if v := os.Getenv("SAGASU_TOKENIZER_MODE"); v != "" {
		cfg.Tokenizer.Mode = v
	}
	if v := os.Getenv("SAGASU_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SAGASU_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SAGASU_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SAGASU_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SAGASU_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SAGASU_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SAGASU_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SAGASU_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
